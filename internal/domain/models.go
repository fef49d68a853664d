package domain

import "time"

// DescriptorKind distinguishes the primary model selection from style overlays.
type DescriptorKind string

const (
	// KindBase is the primary generative model. Exactly one per request.
	KindBase DescriptorKind = "base"

	// KindOverlay is an auxiliary style-adaptation model (LoRA) applied on
	// top of the base model with an independent weight.
	KindOverlay DescriptorKind = "lora"
)

// ModelDescriptor is one entry of the caller-supplied model list.
type ModelDescriptor struct {
	ModelRef string         `json:"model"`
	Kind     DescriptorKind `json:"type"`
	Weight   float64        `json:"weight"`
}

// GenerationRequest carries the untrusted caller-supplied parameters.
type GenerationRequest struct {
	Prompt       string            `json:"prompt"`
	Models       []ModelDescriptor `json:"models"`
	OverlayScale float64           `json:"loraScale,omitempty"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	DPI          int               `json:"dpi,omitempty"` // accepted but unused downstream
	TargetModel  string            `json:"aiModel,omitempty"`
}

// CallerContext identifies who is asking. Resolved once per request and
// immutable afterwards. Exactly one of the two identities is set.
type CallerContext struct {
	UserID    string
	SessionID string
	IPAddress string
}

// Authenticated reports whether the caller carries a user identity.
func (c CallerContext) Authenticated() bool {
	return c.UserID != ""
}

// Identity returns the stable identity string for logging and records.
func (c CallerContext) Identity() string {
	if c.Authenticated() {
		return c.UserID
	}
	return c.SessionID
}

// NormalizedParams are the provider-ready parameters derived from a
// GenerationRequest. Width and Height are always positive multiples of 8,
// each at most the provider maximum.
type NormalizedParams struct {
	Prompt   string            `json:"prompt"`
	Model    string            `json:"model"`
	Base     ModelDescriptor   `json:"base"`
	Overlays []ModelDescriptor `json:"overlays,omitempty"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Steps    int               `json:"steps"`
}

// ImageResult is the provider's successful output: a hosted URL or an
// inline base64-encoded image, at least one of which is set.
type ImageResult struct {
	URL        string `json:"url,omitempty"`
	InlineData string `json:"b64_json,omitempty"`
}

// Empty reports whether the provider returned no usable image reference.
func (r ImageResult) Empty() bool {
	return r.URL == "" && r.InlineData == ""
}

// Ref returns whichever reference is present, preferring the URL.
func (r ImageResult) Ref() string {
	if r.URL != "" {
		return r.URL
	}
	return r.InlineData
}

// BalanceCheck is the entitlement evaluation for an authenticated caller.
type BalanceCheck struct {
	Allowed        bool
	RequiredUnits  int
	CurrentBalance int
}

// QuotaCheck is the entitlement evaluation for a guest caller.
type QuotaCheck struct {
	Allowed   bool
	Remaining int
	ResetsAt  time.Time
}

// CreditInfo is the post-settlement balance returned to authenticated callers.
type CreditInfo struct {
	Charged   int `json:"charged"`
	Remaining int `json:"remaining"`
}

// GuestInfo is the post-settlement quota state returned to guest callers.
type GuestInfo struct {
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// GenerationResult is the gateway's successful response payload.
type GenerationResult struct {
	Image            ImageResult `json:"data"`
	Credits          *CreditInfo `json:"credits,omitempty"`
	Guest            *GuestInfo  `json:"guestInfo,omitempty"`
	GenerationTimeMs int64       `json:"generationTimeMs"`
}

// GenerationRecord is the append-only audit entry, written once per request
// that reaches the provider-invocation stage and never mutated afterwards.
type GenerationRecord struct {
	CallerID     string
	Guest        bool
	IPAddress    string
	Prompt       string
	TargetModel  string
	UnitsCharged int
	Succeeded    bool
	ImageRef     string
	ErrorMessage string
	DurationMs   int64
	Params       NormalizedParams
	CreatedAt    time.Time
}
