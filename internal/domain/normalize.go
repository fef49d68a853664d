package domain

import (
	"fmt"
	"math"
)

const (
	// MaxDimension is the provider's hard upper bound per side.
	MaxDimension = 1024

	// dimensionStep is the provider's required granularity per side.
	dimensionStep = 8

	// defaultSteps is the fixed inference-step count sent to the provider.
	defaultSteps = 28
)

// Normalize derives provider-ready parameters from a validated request:
// it splits the descriptor list into the single base and zero-or-more
// overlays, scales overlay weights by the optional global scalar, and clamps
// dimensions so both sides are positive multiples of 8 within the provider
// maximum while preserving aspect ratio.
func Normalize(req *GenerationRequest) (NormalizedParams, error) {
	var base *ModelDescriptor
	overlays := make([]ModelDescriptor, 0, len(req.Models))

	for i := range req.Models {
		descriptor := req.Models[i]
		switch descriptor.Kind {
		case KindBase:
			if base != nil {
				return NormalizedParams{}, fmt.Errorf("%w: multiple base models", ErrNoBaseModel)
			}
			base = &descriptor
		case KindOverlay:
			if req.OverlayScale > 0 {
				descriptor.Weight *= req.OverlayScale
			}
			overlays = append(overlays, descriptor)
		}
	}

	if base == nil {
		return NormalizedParams{}, ErrNoBaseModel
	}

	width, height := clampDimensions(req.Width, req.Height)

	model := req.TargetModel
	if model == "" {
		model = DefaultModel
	}

	if len(overlays) == 0 {
		overlays = nil
	}

	return NormalizedParams{
		Prompt:   req.Prompt,
		Model:    model,
		Base:     *base,
		Overlays: overlays,
		Width:    width,
		Height:   height,
		Steps:    defaultSteps,
	}, nil
}

// clampDimensions scales both sides by a common factor so neither exceeds
// MaxDimension, then floors each to a multiple of dimensionStep. The common
// factor preserves aspect ratio; the floor keeps the provider's granularity
// requirement, with a lower bound of one step.
func clampDimensions(width, height int) (int, int) {
	w, h := float64(width), float64(height)

	scale := 1.0
	if longest := max(w, h); longest > MaxDimension {
		scale = MaxDimension / longest
	}

	return floorToStep(w * scale), floorToStep(h * scale)
}

func floorToStep(dim float64) int {
	// Round before stepping so scale factors that land a hair under an
	// integer do not lose a whole step.
	stepped := (int(math.Round(dim)) / dimensionStep) * dimensionStep
	if stepped < dimensionStep {
		return dimensionStep
	}
	return stepped
}
