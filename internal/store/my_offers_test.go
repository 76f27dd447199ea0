package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/offer"
	"github.com/dexnode/offerdb/internal/testutil"
)

func TestMyOfferSet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	o := testutil.MyOffer("mine", offer.TypeBuy)
	o.Status = offer.StatusUnconfirmed
	require.NoError(t, s.Mine().Add(ctx, o))

	got, err := s.Mine().GetByHash(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	got, err = s.Mine().Get(ctx, o.TxID)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	require.ErrorIs(t, s.Mine().Add(ctx, o), ErrDuplicateKey)
}

func TestMyOfferSet_Edit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	o := testutil.MyOffer("edit", offer.TypeSell)
	require.NoError(t, s.Mine().Add(ctx, o))

	edited := o
	edited.Record = testutil.Edited(o.Record, 400)
	edited.Type = offer.TypeBuy
	edited.Status = offer.StatusActive
	require.NoError(t, s.Mine().Edit(ctx, edited))

	got, err := s.Mine().GetByHash(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, edited, got)

	require.ErrorIs(t, s.Mine().Edit(ctx, edited), ErrStaleVersion)

	ghost := testutil.MyOffer("ghost", offer.TypeSell)
	require.ErrorIs(t, s.Mine().Edit(ctx, ghost), ErrNotFound)
}

func TestMyOfferSet_EditStatus(t *testing.T) {
	ctx := context.Background()
	s, rec := createRecordedStore(t)

	o := testutil.MyOffer("status", offer.TypeSell)
	require.NoError(t, s.Mine().Add(ctx, o))

	require.NoError(t, s.Mine().EditStatus(ctx, o.TxID, offer.StatusSold))
	last, _ := rec.Last()
	assert.Equal(t, notify.Event{Table: notify.MyOffers, Op: notify.Edit, Outcome: notify.Ok}, last)

	got, err := s.Mine().GetByHash(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusSold, got.Status)
	// Status is local bookkeeping; versioning is untouched
	assert.Equal(t, o.EditingVersion, got.EditingVersion)
	assert.Equal(t, o.TimeModification, got.TimeModification)

	require.NoError(t, s.Mine().EditStatusByHash(ctx, o.Hash, offer.StatusCancelled))
	got, err = s.Mine().GetByHash(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusCancelled, got.Status)

	err = s.Mine().EditStatusByHash(ctx, testutil.Hash("nope"), offer.StatusSold)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Mine().EditStatus(ctx, offer.ZeroHash, offer.StatusSold), ErrInvalidArgument)
}

func TestMyOfferSet_ListByTypeAndStatus(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	fixtures := []struct {
		typ    offer.Type
		status offer.Status
	}{
		{offer.TypeSell, offer.StatusActive},
		{offer.TypeSell, offer.StatusDraft},
		{offer.TypeBuy, offer.StatusActive},
		{offer.TypeBuy, offer.StatusSold},
	}
	var all []offer.MyOffer
	for i, fx := range fixtures {
		o := testutil.MyOffer(fmt.Sprintf("my%d", i), fx.typ)
		o.Status = fx.status
		require.NoError(t, s.Mine().Add(ctx, o))
		all = append(all, o)
	}

	sell := offer.TypeSell
	got, err := s.Mine().List(ctx, Filter{Type: &sell}, Page{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, offer.TypeSell, o.Type)
	}

	// Draft is the zero status and must still be selectable
	draft := offer.StatusDraft
	got, err = s.Mine().List(ctx, Filter{Status: &draft}, Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, all[1].Hash, got[0].Hash)

	buy := offer.TypeBuy
	active := offer.StatusActive
	n, err := s.Mine().Count(ctx, Filter{Type: &buy, Status: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Mine().CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestMyOfferSet_SweepFlagsWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	s, rec := createRecordedStore(t)

	expirations := []uint64{400, 500, 600}
	var offers []offer.MyOffer
	for i, exp := range expirations {
		o := testutil.MyOffer(fmt.Sprintf("sw%d", i), offer.TypeSell)
		o.TimeToExpiration = exp
		require.NoError(t, s.Mine().Add(ctx, o))
		offers = append(offers, o)
	}

	// Boundary is exclusive: expiration == now stays active
	n, err := s.Mine().SweepExpired(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, _ := rec.Last()
	assert.Equal(t, notify.Edit, last.Op)

	wantStatus := []offer.Status{offer.StatusExpired, offer.StatusActive, offer.StatusActive}
	for i, o := range offers {
		got, err := s.Mine().GetByHash(ctx, o.Hash)
		require.NoError(t, err)
		assert.Equal(t, wantStatus[i], got.Status, "expiration %d", o.TimeToExpiration)
	}

	// Already expired rows are not counted again
	n, err = s.Mine().SweepExpired(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := s.Mine().CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestMyOfferSet_ManifestAndDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	o := testutil.MyOffer("md", offer.TypeBuy)
	require.NoError(t, s.Mine().Add(ctx, o))

	manifest, err := s.Mine().Manifest(ctx, All())
	require.NoError(t, err)
	assert.Equal(t, []ManifestEntry{{Hash: o.Hash}}, manifest)

	require.NoError(t, s.Mine().DeleteByTxID(ctx, o.TxID))
	ok, err := s.Mine().ExistsByHash(ctx, o.Hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
