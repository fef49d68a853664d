package together

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go"
)

const genericFailureMessage = "image generation failed"

// errorBody covers the closed set of error envelope shapes Together has
// been observed to return: {"error":{"message":...}}, {"error":"..."} and
// {"message":"..."}.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type nestedError struct {
	Message string `json:"message"`
}

// ExtractError turns an opaque provider failure into a best-effort
// human-readable message.
func (p *Provider) ExtractError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "generation timed out"
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.Message != "" {
			return apierr.Message
		}
		if message := extractMessage([]byte(apierr.RawJSON())); message != "" {
			return message
		}
		return genericFailureMessage
	}

	return err.Error()
}

// extractMessage pattern-matches the known error envelope shapes. Returns
// an empty string when no shape matches.
func extractMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	if body.Message != "" {
		return body.Message
	}

	if len(body.Error) == 0 {
		return ""
	}

	// error may be an object with a message, or a bare string.
	var nested nestedError
	if err := json.Unmarshal(body.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var plain string
	if err := json.Unmarshal(body.Error, &plain); err == nil {
		return plain
	}

	return ""
}
