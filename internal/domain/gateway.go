package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptlyprinted/forge/internal/observability"
)

// GatewayService meters external image generation: it gates callers on their
// entitlement, invokes the provider once, and settles the outcome.
type GatewayService struct {
	provider ImageProvider
	ledger   CreditLedger
	quota    GuestQuota
	recorder GenerationRecorder
	costs    CostTable
}

// NewGatewayService creates a new gateway service (DI constructor).
func NewGatewayService(
	provider ImageProvider,
	ledger CreditLedger,
	quota GuestQuota,
	recorder GenerationRecorder,
	costs CostTable,
) *GatewayService {
	return &GatewayService{
		provider: provider,
		ledger:   ledger,
		quota:    quota,
		recorder: recorder,
		costs:    costs,
	}
}

// Generate runs one metered generation request end to end. Validation,
// entitlement and normalization errors short-circuit before the provider is
// invoked and are never charged. Provider failures are recorded with zero
// units charged. Settlement failures after a successful generation are
// logged, never surfaced.
func (g *GatewayService) Generate(
	ctx context.Context,
	caller CallerContext,
	req *GenerationRequest,
) (*GenerationResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", ErrValidation)
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("%w: models are required", ErrValidation)
	}

	targetModel := req.TargetModel
	if targetModel == "" {
		targetModel = DefaultModel
	}
	units := g.costs.UnitsFor(targetModel)

	ctx = observability.WithModel(ctx, targetModel)
	ctx = observability.WithCaller(ctx, caller.Identity())
	logger := observability.FromContext(ctx)

	// Entitlement gate. Rejections short-circuit before normalization so
	// the provider is never invoked and nothing is recorded.
	var balance BalanceCheck
	var quota QuotaCheck
	if caller.Authenticated() {
		check, err := g.ledger.CheckBalance(ctx, caller.UserID, units)
		if err != nil {
			return nil, fmt.Errorf("balance check failed: %w", err)
		}
		if !check.Allowed {
			logger.Info("request rejected: insufficient credits",
				observability.Int("required", check.RequiredUnits),
				observability.Int("balance", check.CurrentBalance))
			return nil, &InsufficientCreditsError{
				Required: check.RequiredUnits,
				Balance:  check.CurrentBalance,
			}
		}
		balance = check
	} else {
		check, err := g.quota.CheckLimit(ctx, caller.SessionID, caller.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("quota check failed: %w", err)
		}
		if !check.Allowed {
			logger.Info("request rejected: guest quota exhausted",
				observability.Time("resets_at", check.ResetsAt))
			return nil, &QuotaExceededError{ResetsAt: check.ResetsAt}
		}
		quota = check
	}

	params, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	logger.Info("invoking provider",
		observability.String("provider", g.provider.Name()),
		observability.Int("width", params.Width),
		observability.Int("height", params.Height),
		observability.Int("overlays", len(params.Overlays)))

	start := time.Now()
	image, genErr := g.provider.Generate(ctx, params)
	elapsed := time.Since(start)

	if genErr == nil && image.Empty() {
		genErr = ErrEmptyResult
	}

	if genErr != nil {
		message := g.provider.ExtractError(genErr)
		if errors.Is(genErr, ErrEmptyResult) {
			message = ErrEmptyResult.Error()
		}
		logger.Error("generation failed",
			observability.Error(genErr),
			observability.Duration("elapsed", elapsed))

		// Failed attempts are never charged, but always recorded.
		g.record(ctx, caller, req.Prompt, targetModel, params, GenerationRecord{
			UnitsCharged: 0,
			Succeeded:    false,
			ErrorMessage: message,
			DurationMs:   elapsed.Milliseconds(),
		})

		return nil, &ProviderError{Message: message, Err: genErr}
	}

	result := &GenerationResult{
		Image:            image,
		GenerationTimeMs: elapsed.Milliseconds(),
	}

	chargedUnits := 0
	if caller.Authenticated() {
		chargedUnits = units
		remaining := balance.CurrentBalance - units
		newBalance, deductErr := g.ledger.Deduct(ctx, caller.UserID, units, "generation:"+targetModel)
		if deductErr != nil {
			logger.Error("credit deduction failed after successful generation",
				observability.Error(deductErr))
		} else {
			remaining = newBalance
		}
		result.Credits = &CreditInfo{Charged: units, Remaining: remaining}
	} else {
		if usageErr := g.quota.RecordUsage(ctx, caller.SessionID, caller.IPAddress); usageErr != nil {
			logger.Error("guest usage recording failed after successful generation",
				observability.Error(usageErr))
		}
		result.Guest = &GuestInfo{Remaining: quota.Remaining - 1, ResetsAt: quota.ResetsAt}
	}

	g.record(ctx, caller, req.Prompt, targetModel, params, GenerationRecord{
		UnitsCharged: chargedUnits,
		Succeeded:    true,
		ImageRef:     image.Ref(),
		DurationMs:   elapsed.Milliseconds(),
	})

	logger.Info("generation succeeded",
		observability.Duration("elapsed", elapsed),
		observability.Int("units_charged", chargedUnits))

	return result, nil
}

// record persists the audit entry best-effort: failures are logged and
// swallowed so the caller-visible outcome never depends on the write.
func (g *GatewayService) record(
	ctx context.Context,
	caller CallerContext,
	prompt string,
	targetModel string,
	params NormalizedParams,
	record GenerationRecord,
) {
	record.CallerID = caller.Identity()
	record.Guest = !caller.Authenticated()
	record.IPAddress = caller.IPAddress
	record.Prompt = prompt
	record.TargetModel = targetModel
	record.Params = params
	record.CreatedAt = time.Now()

	if err := g.recorder.Record(ctx, record); err != nil {
		observability.FromContext(ctx).Error("failed to persist generation record",
			observability.Error(err))
	}
}
