package domain

import "testing"

func TestJobStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{name: "pending to processing", from: JobStatusPending, to: JobStatusProcessing, want: true},
		{name: "pending to completed", from: JobStatusPending, to: JobStatusCompleted, want: true},
		{name: "pending to failed", from: JobStatusPending, to: JobStatusFailed, want: true},
		{name: "processing to completed", from: JobStatusProcessing, to: JobStatusCompleted, want: true},
		{name: "processing to failed", from: JobStatusProcessing, to: JobStatusFailed, want: true},
		{name: "processing back to pending", from: JobStatusProcessing, to: JobStatusPending, want: false},
		{name: "completed is terminal", from: JobStatusCompleted, to: JobStatusFailed, want: false},
		{name: "completed to processing", from: JobStatusCompleted, to: JobStatusProcessing, want: false},
		{name: "failed is terminal", from: JobStatusFailed, to: JobStatusCompleted, want: false},
		{name: "self transition", from: JobStatusProcessing, to: JobStatusProcessing, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestParseAssetType(t *testing.T) {
	for _, valid := range []string{"video", "image", "text", "avatar"} {
		if _, ok := ParseAssetType(valid); !ok {
			t.Fatalf("ParseAssetType(%q) rejected a valid type", valid)
		}
	}
	for _, invalid := range []string{"", "audio", "VIDEO", "gif"} {
		if _, ok := ParseAssetType(invalid); ok {
			t.Fatalf("ParseAssetType(%q) accepted an invalid type", invalid)
		}
	}
}
