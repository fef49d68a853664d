package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptlyprinted/forge/internal/domain"
)

// mockProvider is a mock implementation of ImageProvider for testing.
type mockProvider struct {
	generateFunc func(ctx context.Context, params domain.NormalizedParams) (domain.ImageResult, error)
	calls        int
	lastParams   domain.NormalizedParams
}

func (m *mockProvider) Generate(ctx context.Context, params domain.NormalizedParams) (domain.ImageResult, error) {
	m.calls++
	m.lastParams = params
	if m.generateFunc != nil {
		return m.generateFunc(ctx, params)
	}
	return domain.ImageResult{URL: "https://img.example/out.png"}, nil
}

func (m *mockProvider) ExtractError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m *mockProvider) Name() string {
	return "mock"
}

// mockLedger is a mock implementation of CreditLedger for testing.
type mockLedger struct {
	balance     int
	checkErr    error
	deductErr   error
	checkCalls  int
	deductCalls int
}

func (m *mockLedger) CheckBalance(_ context.Context, _ string, required int) (domain.BalanceCheck, error) {
	m.checkCalls++
	if m.checkErr != nil {
		return domain.BalanceCheck{}, m.checkErr
	}
	return domain.BalanceCheck{
		Allowed:        m.balance >= required,
		RequiredUnits:  required,
		CurrentBalance: m.balance,
	}, nil
}

func (m *mockLedger) Deduct(_ context.Context, _ string, units int, _ string) (int, error) {
	m.deductCalls++
	if m.deductErr != nil {
		return 0, m.deductErr
	}
	m.balance -= units
	return m.balance, nil
}

// mockQuota is a mock implementation of GuestQuota for testing.
type mockQuota struct {
	remaining  int
	resetsAt   time.Time
	checkErr   error
	usageErr   error
	checkCalls int
	usageCalls int
}

func (m *mockQuota) CheckLimit(_ context.Context, _, _ string) (domain.QuotaCheck, error) {
	m.checkCalls++
	if m.checkErr != nil {
		return domain.QuotaCheck{}, m.checkErr
	}
	return domain.QuotaCheck{
		Allowed:   m.remaining > 0,
		Remaining: m.remaining,
		ResetsAt:  m.resetsAt,
	}, nil
}

func (m *mockQuota) RecordUsage(_ context.Context, _, _ string) error {
	m.usageCalls++
	if m.usageErr != nil {
		return m.usageErr
	}
	m.remaining--
	return nil
}

// mockRecorder is a mock implementation of GenerationRecorder for testing.
type mockRecorder struct {
	records   []domain.GenerationRecord
	recordErr error
}

func (m *mockRecorder) Record(_ context.Context, record domain.GenerationRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, record)
	return nil
}

func validRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{
		Prompt: "a corgi astronaut on the moon",
		Models: []domain.ModelDescriptor{
			{ModelRef: "flux-base", Kind: domain.KindBase, Weight: 1.0},
		},
		Width:       1024,
		Height:      1024,
		TargetModel: "flux-schnell",
	}
}

func authedCaller() domain.CallerContext {
	return domain.CallerContext{UserID: "user-1"}
}

func guestCaller() domain.CallerContext {
	return domain.CallerContext{SessionID: "session-1", IPAddress: "203.0.113.7"}
}

func newGateway(
	provider *mockProvider,
	ledger *mockLedger,
	quota *mockQuota,
	recorder *mockRecorder,
) *domain.GatewayService {
	return domain.NewGatewayService(provider, ledger, quota, recorder, domain.NewStaticCostTable())
}

func TestGatewayService_Generate_Authenticated(t *testing.T) {
	t.Run("should charge required units and return updated balance", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{balance: 5}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.NoError(t, err)
		require.NotNil(t, result)
		require.Equal(t, "https://img.example/out.png", result.Image.URL)
		require.NotNil(t, result.Credits)
		require.Equal(t, 1, result.Credits.Charged)
		require.Equal(t, 4, result.Credits.Remaining)
		require.Nil(t, result.Guest)
		require.Equal(t, 1, ledger.deductCalls)

		require.Len(t, recorder.records, 1)
		record := recorder.records[0]
		require.True(t, record.Succeeded)
		require.Equal(t, 1, record.UnitsCharged)
		require.Equal(t, "user-1", record.CallerID)
		require.False(t, record.Guest)
	})

	t.Run("should reject with PaymentRequired when balance is insufficient", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{balance: 0}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)

		var insufficient *domain.InsufficientCreditsError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, 1, insufficient.Required)
		require.Equal(t, 0, insufficient.Balance)

		// Rejected attempts never reach the provider and are not recorded.
		require.Equal(t, 0, provider.calls)
		require.Empty(t, recorder.records)
	})

	t.Run("should fail closed when the balance check errors", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{checkErr: errors.New("ledger down")}
		gateway := newGateway(provider, ledger, &mockQuota{}, &mockRecorder{})

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)
		require.Contains(t, err.Error(), "balance check failed")
		require.Equal(t, 0, provider.calls)
	})

	t.Run("should not reverse a delivered image when deduction fails", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{balance: 5, deductErr: errors.New("ledger write failed")}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.NoError(t, err)
		require.NotNil(t, result)
		require.NotNil(t, result.Credits)
		require.Equal(t, 4, result.Credits.Remaining)
		require.Len(t, recorder.records, 1)
		require.True(t, recorder.records[0].Succeeded)
	})

	t.Run("should charge the default model cost when aiModel is absent", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{balance: 5}
		gateway := newGateway(provider, ledger, &mockQuota{}, &mockRecorder{})

		req := validRequest()
		req.TargetModel = ""

		result, err := gateway.Generate(context.Background(), authedCaller(), req)

		require.NoError(t, err)
		// flux-dev is the default and costs 2 units.
		require.Equal(t, 2, result.Credits.Charged)
		require.Equal(t, 3, result.Credits.Remaining)
		require.Equal(t, "flux-dev", provider.lastParams.Model)
	})
}

func TestGatewayService_Generate_Guest(t *testing.T) {
	t.Run("should consume one quota unit on success", func(t *testing.T) {
		provider := &mockProvider{}
		resetsAt := time.Now().Add(24 * time.Hour)
		quota := &mockQuota{remaining: 1, resetsAt: resetsAt}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, &mockLedger{}, quota, recorder)

		result, err := gateway.Generate(context.Background(), guestCaller(), validRequest())

		require.NoError(t, err)
		require.NotNil(t, result.Guest)
		require.Equal(t, 0, result.Guest.Remaining)
		require.Equal(t, resetsAt, result.Guest.ResetsAt)
		require.Nil(t, result.Credits)
		require.Equal(t, 1, quota.usageCalls)

		// A subsequent check sees the quota exhausted.
		check, err := quota.CheckLimit(context.Background(), "session-1", "203.0.113.7")
		require.NoError(t, err)
		require.Equal(t, 0, check.Remaining)
		require.False(t, check.Allowed)

		require.Len(t, recorder.records, 1)
		require.True(t, recorder.records[0].Guest)
		require.Equal(t, 0, recorder.records[0].UnitsCharged)
	})

	t.Run("should reject with TooManyRequests when quota is exhausted", func(t *testing.T) {
		provider := &mockProvider{}
		resetsAt := time.Now().Add(6 * time.Hour)
		quota := &mockQuota{remaining: 0, resetsAt: resetsAt}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, &mockLedger{}, quota, recorder)

		result, err := gateway.Generate(context.Background(), guestCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)

		var exhausted *domain.QuotaExceededError
		require.ErrorAs(t, err, &exhausted)
		require.Equal(t, resetsAt, exhausted.ResetsAt)

		require.Equal(t, 0, provider.calls)
		require.Empty(t, recorder.records)
	})
}

func TestGatewayService_Generate_Validation(t *testing.T) {
	t.Run("should reject nil request", func(t *testing.T) {
		gateway := newGateway(&mockProvider{}, &mockLedger{balance: 5}, &mockQuota{}, &mockRecorder{})

		result, err := gateway.Generate(context.Background(), authedCaller(), nil)

		require.ErrorIs(t, err, domain.ErrValidation)
		require.Nil(t, result)
	})

	t.Run("should reject missing prompt before any entitlement check", func(t *testing.T) {
		ledger := &mockLedger{balance: 5}
		provider := &mockProvider{}
		gateway := newGateway(provider, ledger, &mockQuota{}, &mockRecorder{})

		req := validRequest()
		req.Prompt = ""

		result, err := gateway.Generate(context.Background(), authedCaller(), req)

		require.ErrorIs(t, err, domain.ErrValidation)
		require.Nil(t, result)
		require.Equal(t, 0, ledger.checkCalls)
		require.Equal(t, 0, provider.calls)
	})

	t.Run("should reject empty model list before any entitlement check", func(t *testing.T) {
		ledger := &mockLedger{balance: 5}
		provider := &mockProvider{}
		gateway := newGateway(provider, ledger, &mockQuota{}, &mockRecorder{})

		req := validRequest()
		req.Models = nil

		result, err := gateway.Generate(context.Background(), authedCaller(), req)

		require.ErrorIs(t, err, domain.ErrValidation)
		require.Nil(t, result)
		require.Equal(t, 0, ledger.checkCalls)
		require.Equal(t, 0, provider.calls)
	})

	t.Run("should reject overlay-only model list after the entitlement gate", func(t *testing.T) {
		ledger := &mockLedger{balance: 5}
		provider := &mockProvider{}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		req := validRequest()
		req.Models = []domain.ModelDescriptor{
			{ModelRef: "style-a", Kind: domain.KindOverlay, Weight: 0.8},
		}

		result, err := gateway.Generate(context.Background(), authedCaller(), req)

		require.ErrorIs(t, err, domain.ErrNoBaseModel)
		require.Nil(t, result)
		require.Equal(t, 1, ledger.checkCalls)
		require.Equal(t, 0, provider.calls)
		require.Empty(t, recorder.records)
	})
}

func TestGatewayService_Generate_ProviderFailure(t *testing.T) {
	t.Run("should record zero units charged for authenticated failures", func(t *testing.T) {
		provider := &mockProvider{
			generateFunc: func(_ context.Context, _ domain.NormalizedParams) (domain.ImageResult, error) {
				return domain.ImageResult{}, errors.New("model overloaded")
			},
		}
		ledger := &mockLedger{balance: 5}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, providerErr.Message, "model overloaded")

		require.Equal(t, 0, ledger.deductCalls)
		require.Len(t, recorder.records, 1)
		record := recorder.records[0]
		require.False(t, record.Succeeded)
		require.Equal(t, 0, record.UnitsCharged)
		require.Equal(t, "model overloaded", record.ErrorMessage)
	})

	t.Run("should record zero units charged for guest failures", func(t *testing.T) {
		provider := &mockProvider{
			generateFunc: func(_ context.Context, _ domain.NormalizedParams) (domain.ImageResult, error) {
				return domain.ImageResult{}, errors.New("transient error")
			},
		}
		quota := &mockQuota{remaining: 3, resetsAt: time.Now().Add(24 * time.Hour)}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, &mockLedger{}, quota, recorder)

		result, err := gateway.Generate(context.Background(), guestCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)
		require.Equal(t, 0, quota.usageCalls)
		require.Len(t, recorder.records, 1)
		require.Equal(t, 0, recorder.records[0].UnitsCharged)
	})

	t.Run("should treat an empty provider result as a failure", func(t *testing.T) {
		provider := &mockProvider{
			generateFunc: func(_ context.Context, _ domain.NormalizedParams) (domain.ImageResult, error) {
				return domain.ImageResult{}, nil
			},
		}
		ledger := &mockLedger{balance: 5}
		recorder := &mockRecorder{}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.Error(t, err)
		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrEmptyResult)
		require.Equal(t, 0, ledger.deductCalls)
		require.Len(t, recorder.records, 1)
		require.False(t, recorder.records[0].Succeeded)
	})

	t.Run("should not fail the response when the record write fails", func(t *testing.T) {
		provider := &mockProvider{}
		ledger := &mockLedger{balance: 5}
		recorder := &mockRecorder{recordErr: errors.New("db unavailable")}
		gateway := newGateway(provider, ledger, &mockQuota{}, recorder)

		result, err := gateway.Generate(context.Background(), authedCaller(), validRequest())

		require.NoError(t, err)
		require.NotNil(t, result)
		require.Equal(t, 4, result.Credits.Remaining)
	})
}
