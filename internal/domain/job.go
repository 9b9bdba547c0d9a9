package domain

import "time"

// AssetType enumerates the media kinds a job can produce.
type AssetType string

const (
	AssetTypeVideo  AssetType = "video"
	AssetTypeImage  AssetType = "image"
	AssetTypeText   AssetType = "text"
	AssetTypeAvatar AssetType = "avatar"
)

// ParseAssetType validates a request-supplied asset type.
func ParseAssetType(s string) (AssetType, bool) {
	switch AssetType(s) {
	case AssetTypeVideo, AssetTypeImage, AssetTypeText, AssetTypeAvatar:
		return AssetType(s), true
	}
	return "", false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge of
// the forward-only machine pending → processing → {completed, failed}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	}
	return false
}

// FailureReason classifies why a job ended up failed.
type FailureReason string

const (
	FailureReasonProvider FailureReason = "provider_failure"
	FailureReasonTimeout  FailureReason = "provider_timeout"
)

// Job is the persistent record of one generation request.
type Job struct {
	ID            string
	OwnerID       string
	ProjectID     *string
	AssetType     AssetType
	Prompt        string
	Style         string
	Duration      int
	AspectRatio   string
	Status        JobStatus
	ResultURL     string
	ProviderID    string
	FailureReason FailureReason
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
