package providers

import (
	"context"
	"time"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

// Stock media served while no real model backend is configured. Same sources
// the hosted demo uses.
const (
	stockImageURL  = "https://images.unsplash.com/photo-1618005182384-a83a8bd57fbe?auto=format&fit=crop&q=80&w=1000"
	stockVideoURL  = "https://assets.mixkit.co/videos/preview/mixkit-waves-in-the-water-1164-large.mp4"
	stockAvatarURL = "https://assets.mixkit.co/videos/preview/mixkit-young-woman-talking-on-video-call-4246-large.mp4"
)

const (
	defaultVideoDuration  = 5
	defaultAvatarDuration = 10
)

// stockGenerator resolves every request with a fixed stock URL after a
// simulated latency. Cancelling the context aborts the wait.
type stockGenerator struct {
	assetType domain.AssetType
	url       string
	duration  int
	latency   time.Duration
}

// NewImageGenerator returns the stock image provider.
func NewImageGenerator(latency time.Duration) Generator {
	return &stockGenerator{assetType: domain.AssetTypeImage, url: stockImageURL, latency: latency}
}

// NewVideoGenerator returns the stock video provider.
func NewVideoGenerator(latency time.Duration) Generator {
	return &stockGenerator{assetType: domain.AssetTypeVideo, url: stockVideoURL, duration: defaultVideoDuration, latency: latency}
}

// NewAvatarGenerator returns the stock avatar provider.
func NewAvatarGenerator(latency time.Duration) Generator {
	return &stockGenerator{assetType: domain.AssetTypeAvatar, url: stockAvatarURL, duration: defaultAvatarDuration, latency: latency}
}

func (g *stockGenerator) AssetType() domain.AssetType {
	return g.assetType
}

func (g *stockGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	metadata := map[string]any{"provider_ref": req.ProviderRef}
	duration := req.Duration
	if duration <= 0 {
		duration = g.duration
	}
	if duration > 0 {
		metadata["duration"] = duration
	}
	if req.AspectRatio != "" {
		metadata["aspect_ratio"] = req.AspectRatio
	}
	return &Result{URL: g.url, Metadata: metadata}, nil
}
