package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterBusy(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return newError(CodeBusy, "add offer", tableOffersSell, nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return newError(CodeDuplicateKey, "add offer", tableOffersSell, nil)
	})
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return newError(CodeBusy, "", "", nil)
	})
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 3, calls)
}

func TestRetry_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 10, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return ErrBusy
	})
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRetry_AtLeastOnce(t *testing.T) {
	calls := 0
	require.NoError(t, Retry(context.Background(), 0, 0, func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestRetry_WaitsOutWriteLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	holder, _ := openRecorded(t, path, Options{BusyTimeout: 10 * time.Millisecond})
	writer, _ := openRecorded(t, path, Options{BusyTimeout: 10 * time.Millisecond})

	tx, err := holder.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "INSERT INTO filterList (filter) VALUES (?)", "held")
	require.NoError(t, err)

	err = writer.Filters().Add(ctx, "US-USD")
	require.ErrorIs(t, err, ErrBusy)
	assert.True(t, IsRetryable(err))

	committed := make(chan error, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		committed <- tx.Commit()
	}()

	calls := 0
	err = Retry(ctx, 20, 10*time.Millisecond, func(ctx context.Context) error {
		calls++
		return writer.Filters().Add(ctx, "US-USD")
	})
	require.NoError(t, err)
	require.NoError(t, <-committed)
	assert.Greater(t, calls, 1)

	filters, err := writer.Filters().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"US-USD", "held"}, filters)
}
