package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-engine/internal/apperrors"
)

func TestDecodeErrorNil(t *testing.T) {
	assert.NoError(t, decodeError("ListFolders", nil))
}

func TestDecodeErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind apperrors.Kind
		wantCode string
	}{
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("executing request: %w", context.DeadlineExceeded),
			wantKind: apperrors.KindTimeout,
			wantCode: "REMOTE_TIMEOUT",
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantKind: apperrors.KindNetwork,
			wantCode: "REMOTE_CANCELED",
		},
		{
			name:     "breaker open",
			err:      gobreaker.ErrOpenState,
			wantKind: apperrors.KindNetwork,
			wantCode: "CIRCUIT_OPEN",
		},
		{
			name:     "breaker half open saturated",
			err:      gobreaker.ErrTooManyRequests,
			wantKind: apperrors.KindNetwork,
			wantCode: "CIRCUIT_OPEN",
		},
		{
			name:     "quota trigger",
			err:      errors.New("(54000) folder limit reached for tier"),
			wantKind: apperrors.KindQuota,
			wantCode: "TIER_LIMIT",
		},
		{
			name:     "single object no rows",
			err:      errors.New("(PGRST116) JSON object requested, multiple (or no) rows returned"),
			wantKind: apperrors.KindNotFound,
			wantCode: "REMOTE_NOT_FOUND",
		},
		{
			name:     "foreign key violation",
			err:      errors.New(`(23503) insert or update on table "items" violates foreign key constraint`),
			wantKind: apperrors.KindNotFound,
			wantCode: "FOLDER_GONE",
		},
		{
			name:     "unrecognized server code",
			err:      errors.New("(42501) permission denied"),
			wantKind: apperrors.KindNetwork,
			wantCode: "REMOTE_ERROR",
		},
		{
			name:     "plain transport failure",
			err:      errors.New("dial tcp: connection refused"),
			wantKind: apperrors.KindNetwork,
			wantCode: "REMOTE_ERROR",
		},
		{
			name:     "code not at start of message",
			err:      errors.New("request failed (54000) quota"),
			wantKind: apperrors.KindNetwork,
			wantCode: "REMOTE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeError("Op", tt.err)

			var appErr *apperrors.Error
			require.ErrorAs(t, got, &appErr)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, "Op", appErr.Operation)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
