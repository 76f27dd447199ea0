package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/offerdb/internal/notify"
)

func TestFilters_AddListDelete(t *testing.T) {
	ctx := context.Background()
	s, rec := createRecordedStore(t)

	for _, f := range []string{"scam", "Spam", "фишинг"} {
		require.NoError(t, s.Filters().Add(ctx, f))
	}
	last, _ := rec.Last()
	assert.Equal(t, notify.Event{Table: notify.FiltersList, Op: notify.Add, Outcome: notify.Ok}, last)

	list, err := s.Filters().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spam", "scam", "фишинг"}, list)

	require.ErrorIs(t, s.Filters().Add(ctx, "scam"), ErrDuplicateKey)

	require.NoError(t, s.Filters().Delete(ctx, "scam"))
	require.NoError(t, s.Filters().Delete(ctx, "scam"))
	list, err = s.Filters().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spam", "фишинг"}, list)
}

func TestFilters_Validation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.ErrorIs(t, s.Filters().Add(ctx, ""), ErrInvalidArgument)
	require.ErrorIs(t, s.Filters().Add(ctx, strings.Repeat("x", MaxFilterLen+1)), ErrInvalidArgument)
	require.NoError(t, s.Filters().Add(ctx, strings.Repeat("ж", MaxFilterLen)))
}
