package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := New(nil)
	var order []string
	bus.Subscribe(ObserverFunc(func(Event) { order = append(order, "first") }))
	bus.Subscribe(ObserverFunc(func(Event) { order = append(order, "second") }))

	bus.Publish(Event{Table: OffersSell, Op: Add})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSameObserverHoldsIndependentTokens(t *testing.T) {
	bus := New(nil)
	rec := &Recorder{}
	s1 := bus.Subscribe(rec)
	s2 := bus.Subscribe(rec)
	assert.NotEqual(t, s1.ID(), s2.ID())

	bus.Publish(Event{Table: MyOffers, Op: Edit})
	assert.Len(t, rec.Events(), 2)

	s1.Close()
	rec.Reset()
	bus.Publish(Event{Table: MyOffers, Op: Edit})
	assert.Len(t, rec.Events(), 1, "still subscribed through the second token")

	s2.Close()
	rec.Reset()
	bus.Publish(Event{Table: MyOffers, Op: Edit})
	assert.Empty(t, rec.Events())
	assert.Equal(t, 0, bus.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := New(nil)
	keep := bus.Subscribe(&Recorder{})
	sub := bus.Subscribe(&Recorder{})

	sub.Close()
	sub.Close()

	assert.Equal(t, 1, bus.Len())
	keep.Close()
	assert.Equal(t, 0, bus.Len())
}

func TestPanickingObserverDoesNotStopOthers(t *testing.T) {
	bus := New(nil)
	bus.Subscribe(ObserverFunc(func(Event) { panic("boom") }))
	rec := &Recorder{}
	bus.Subscribe(rec)

	require.NotPanics(t, func() {
		bus.Publish(Event{Table: Countries, Op: Read})
	})
	assert.Len(t, rec.Events(), 1)
}

func TestObserverMayCloseDuringDelivery(t *testing.T) {
	bus := New(nil)
	var sub *Subscription
	calls := 0
	sub = bus.Subscribe(ObserverFunc(func(Event) {
		calls++
		sub.Close()
	}))

	bus.Publish(Event{})
	bus.Publish(Event{})

	assert.Equal(t, 1, calls)
}

func TestRecorderLast(t *testing.T) {
	rec := &Recorder{}
	_, ok := rec.Last()
	assert.False(t, ok)

	errBoom := errors.New("boom")
	rec.OnEvent(Event{Table: OffersBuy, Op: Delete, Outcome: Error, Err: errBoom})
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, Error, last.Outcome)
	assert.ErrorIs(t, last.Err, errBoom)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "offersSell", OffersSell.String())
	assert.Equal(t, "filterList", FiltersList.String())
	assert.Equal(t, "table(99)", Table(99).String())
	assert.Equal(t, "read", Read.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "ok", Ok.String())
}
