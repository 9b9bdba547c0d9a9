package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/storage"
)

// ScriptGenerator produces text assets. It renders a short marketing script
// from the prompt, persists it through the file store and returns the public
// URL, so text jobs carry a result URL like every other asset type.
type ScriptGenerator struct {
	store   *storage.FileStore
	baseURL string
	latency time.Duration
}

// NewScriptGenerator builds the text provider writing under the given store.
func NewScriptGenerator(store *storage.FileStore, baseURL string, latency time.Duration) *ScriptGenerator {
	return &ScriptGenerator{store: store, baseURL: baseURL, latency: latency}
}

func (g *ScriptGenerator) AssetType() domain.AssetType {
	return domain.AssetTypeText
}

func (g *ScriptGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	script := renderScript(req)
	key := fmt.Sprintf("generated/scripts/%s.txt", req.JobID)
	savedKey, err := g.store.Write(ctx, key, []byte(script))
	if err != nil {
		return nil, fmt.Errorf("script: persist: %w", err)
	}

	return &Result{
		URL: storage.PublicURL(g.baseURL, savedKey),
		Metadata: map[string]any{
			"provider_ref": req.ProviderRef,
			"word_count":   len(strings.Fields(script)),
		},
	}, nil
}

func renderScript(req Request) string {
	tag, err := language.Parse(req.Locale)
	if err != nil {
		tag = language.English
	}
	title := cases.Title(tag).String(req.Prompt)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if req.Style != "" {
		fmt.Fprintf(&b, "Tone: %s\n\n", req.Style)
	}
	fmt.Fprintf(&b, "HOOK: %s — here's why it matters.\n\n", req.Prompt)
	b.WriteString("BODY: Walk the viewer through the idea in three beats, ")
	b.WriteString("each one building on the last.\n\n")
	b.WriteString("CTA: Tell them exactly what to do next.\n")
	return b.String()
}
