package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptlyprinted/forge/internal/domain"
)

// Recorder implements domain.GenerationRecorder on the shared store.
type Recorder struct {
	store *Store
}

// NewRecorder creates a generation record store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one audit entry. Rows are never updated afterwards.
func (r *Recorder) Record(ctx context.Context, record domain.GenerationRecord) error {
	params, err := json.Marshal(record.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = r.store.pool.Exec(ctx,
		`INSERT INTO generation_records
		    (caller_id, guest, ip_address, prompt, target_model, units_charged,
		     succeeded, image_ref, error_message, duration_ms, params, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.CallerID,
		record.Guest,
		record.IPAddress,
		record.Prompt,
		record.TargetModel,
		record.UnitsCharged,
		record.Succeeded,
		record.ImageRef,
		record.ErrorMessage,
		record.DurationMs,
		params,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record insert failed: %w", err)
	}

	return nil
}
