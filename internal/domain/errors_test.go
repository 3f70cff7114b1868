package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: NewNotFoundError("paper", "10.1/x"), sentinel: ErrNotFound},
		{name: "validation", err: NewValidationError("doi", "bad"), sentinel: ErrInvalidInput},
		{name: "rate limit", err: NewRateLimitError("crossref", time.Second), sentinel: ErrRateLimited},
		{name: "no metadata", err: NewNoMetadataError("10.1/x"), sentinel: ErrNoMetadataFound},
		{
			name:     "external api wraps cause",
			err:      NewExternalAPIError("openalex", 503, "down", ErrSourceUnavailable),
			sentinel: ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestExternalAPIError_Message(t *testing.T) {
	assert.Equal(t, "crossref API error (status 500): boom", NewExternalAPIError("crossref", 500, "boom", nil).Error())
	assert.Equal(t, "crossref API error: dial failed", NewExternalAPIError("crossref", 0, "dial failed", nil).Error())
}

func TestEnrichmentError_Message(t *testing.T) {
	assert.Equal(t, "enrich 10.1/x: no metadata found", NewNoMetadataError("10.1/x").Error())
}
