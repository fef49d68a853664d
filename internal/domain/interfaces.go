package domain

import "context"

// ImageProvider invokes an external generative image model. Implementations
// make exactly one attempt per call; the gateway never retries.
type ImageProvider interface {
	// Generate produces a single image for the normalized parameters.
	Generate(ctx context.Context, params NormalizedParams) (ImageResult, error)

	// ExtractError turns an opaque provider failure into a best-effort
	// human-readable message.
	ExtractError(err error) string

	// Name returns the provider identifier.
	Name() string
}

// CreditLedger manages spendable balances for authenticated callers.
// Implementations must provide atomic check-then-deduct semantics under
// concurrency; the gateway assumes that guarantee rather than locking.
type CreditLedger interface {
	// CheckBalance evaluates whether the user can cover the required units.
	CheckBalance(ctx context.Context, userID string, required int) (BalanceCheck, error)

	// Deduct atomically removes units from the user's balance and returns
	// the new balance. Fails if the balance no longer covers the units.
	Deduct(ctx context.Context, userID string, units int, reason string) (int, error)
}

// GuestQuota bounds free usage for anonymous callers over a rolling window.
type GuestQuota interface {
	// CheckLimit evaluates the remaining free quota for a guest identity.
	CheckLimit(ctx context.Context, sessionID, ip string) (QuotaCheck, error)

	// RecordUsage consumes one unit of the guest's quota.
	RecordUsage(ctx context.Context, sessionID, ip string) error
}

// GenerationRecorder persists the append-only audit trail. Writes are
// best-effort from the gateway's perspective: failures are logged, never
// propagated to the caller.
type GenerationRecorder interface {
	Record(ctx context.Context, record GenerationRecord) error
}

// CostTable resolves the credit cost of a target model. Lookups never fail:
// unknown models cost the minimum.
type CostTable interface {
	UnitsFor(model string) int
}
