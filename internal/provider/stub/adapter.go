// Package stub provides a deterministic in-memory image provider. It
// implements the domain.ImageProvider interface without making external API
// calls, for local development and tests when no Together API key is
// configured.
package stub

import (
	"context"
	"fmt"

	"github.com/promptlyprinted/forge/internal/domain"
	"github.com/promptlyprinted/forge/internal/observability"
)

const providerName = "stub"

// transparentPixelPNG is a 1x1 transparent PNG, base64-encoded.
const transparentPixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Provider implements the domain.ImageProvider interface with canned output.
type Provider struct {
	name string
}

// NewProvider creates a new stub provider. No configuration is required as
// this provider operates entirely in-memory.
func NewProvider() *Provider {
	return &Provider{name: providerName}
}

// Generate returns a placeholder image without calling anything external.
func (p *Provider) Generate(ctx context.Context, params domain.NormalizedParams) (domain.ImageResult, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("stub generation",
		observability.String("model", params.Model),
		observability.Int("width", params.Width),
		observability.Int("height", params.Height))

	return domain.ImageResult{InlineData: transparentPixelPNG}, nil
}

// ExtractError turns an opaque failure into a message. The stub never fails,
// so this only matters when the gateway reports an empty result.
func (p *Provider) ExtractError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("stub provider: %v", err)
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}
