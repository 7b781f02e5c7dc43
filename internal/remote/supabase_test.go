package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loom-engine/internal/apperrors"
)

func TestRunListRetriesRetryableFailures(t *testing.T) {
	c := NewClient(nil, Config{}, zap.NewNop())

	calls := 0
	data, err := c.runList(context.Background(), "folders.list", func() ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return []byte(`[]`), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)
	assert.Equal(t, 3, calls)
}

func TestRunListDoesNotRetryBusinessRejections(t *testing.T) {
	c := NewClient(nil, Config{}, zap.NewNop())

	calls := 0
	_, err := c.runList(context.Background(), "items.list", func() ([]byte, error) {
		calls++
		return nil, errors.New("(54000) item limit reached for tier")
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsQuota(err))
	assert.Equal(t, 1, calls)
}

func TestRunListGivesUpAfterMaxAttempts(t *testing.T) {
	c := NewClient(nil, Config{}, zap.NewNop())

	calls := 0
	_, err := c.runList(context.Background(), "items.list", func() ([]byte, error) {
		calls++
		return nil, errors.New("dial tcp: connection refused")
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, 1+listRetries, calls)
}

func TestRunEnforcesDeadline(t *testing.T) {
	c := NewClient(nil, Config{Timeout: time.Second}, zap.NewNop())

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := c.run(context.Background(), "folders.list", func() ([]byte, error) {
		<-release
		return nil, nil
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSanitizeFilterValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"two words", "two words"},
		{"a,b", "a b"},
		{"f(x)", "f x"},
		{`say "hi"`, "say  hi"},
		{"v1.2", "v1 2"},
		{`back\slash`, "back slash"},
		{",().", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilterValue(tt.in), "input %q", tt.in)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil, Config{}, zap.NewNop())

	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, "folders", c.cfg.FoldersTable)
	assert.Equal(t, "items", c.cfg.ItemsTable)
}
