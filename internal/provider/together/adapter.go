// Package together provides an adapter for the Together AI image API using
// the openai-go SDK (Together's API is OpenAI-compatible). It implements the
// domain.ImageProvider interface and handles conversion between domain
// parameters and SDK types, including the Together-specific extensions
// (inference steps, LoRA overlays) that the SDK does not model directly.
package together

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/promptlyprinted/forge/internal/domain"
	"github.com/promptlyprinted/forge/internal/observability"
)

const providerName = "together"

// modelRefs maps gateway model identifiers to Together model references.
// Unknown identifiers are passed through untouched so new models work
// without a code change.
//
//nolint:gochecknoglobals // Static lookup table
var modelRefs = map[string]string{
	"flux-schnell": "black-forest-labs/FLUX.1-schnell",
	"flux-dev":     "black-forest-labs/FLUX.1-dev",
	"flux-pro":     "black-forest-labs/FLUX.1.1-pro",
}

// Provider implements the domain.ImageProvider interface for Together AI.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new Together provider. The client is constructed
// once here with validated configuration and injected into the gateway;
// there is no ambient singleton.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("Together API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   providerName,
	}, nil
}

// Generate produces a single image for the normalized parameters.
func (p *Provider) Generate(ctx context.Context, params domain.NormalizedParams) (domain.ImageResult, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Together image API")

	sdkParams, opts := p.toSDKParams(params)

	resp, err := p.client.Images.Generate(ctx, sdkParams, opts...)
	if err != nil {
		logger.Error("Together API call failed", observability.Error(err))
		return domain.ImageResult{}, fmt.Errorf("Together API call failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return domain.ImageResult{}, nil
	}

	logger.Debug("Together API call succeeded",
		observability.Int("images", len(resp.Data)))

	return domain.ImageResult{
		URL:        resp.Data[0].URL,
		InlineData: resp.Data[0].B64JSON,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// toSDKParams converts domain parameters to SDK params plus the per-request
// options carrying Together's non-OpenAI fields in the JSON body.
func (p *Provider) toSDKParams(params domain.NormalizedParams) (openai.ImageGenerateParams, []option.RequestOption) {
	sdkParams := openai.ImageGenerateParams{
		Prompt: params.Prompt,
		Model:  openai.ImageModel(resolveModelRef(params.Model)),
		N:      openai.Int(1),
	}

	opts := []option.RequestOption{
		option.WithJSONSet("width", params.Width),
		option.WithJSONSet("height", params.Height),
		option.WithJSONSet("steps", params.Steps),
	}

	if len(params.Overlays) > 0 {
		loras := make([]map[string]any, len(params.Overlays))
		for i, overlay := range params.Overlays {
			loras[i] = map[string]any{
				"path":  overlay.ModelRef,
				"scale": overlay.Weight,
			}
		}
		opts = append(opts, option.WithJSONSet("image_loras", loras))
	}

	return sdkParams, opts
}

// resolveModelRef maps a gateway model identifier to the Together model
// reference, passing unknown identifiers through.
func resolveModelRef(model string) string {
	if ref, exists := modelRefs[model]; exists {
		return ref
	}
	return model
}
