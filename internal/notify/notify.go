// Package notify fans out store operation outcomes to subscribed observers.
//
// Observers subscribe and receive a Subscription token; closing the token
// is the only way to stop delivery. The same observer may hold several
// tokens and receives one delivery per open token.
//
// Delivery is synchronous and ordered by subscription time. A panicking
// observer is recovered and logged; the remaining observers still run.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Table identifies the record set an event refers to.
type Table int

const (
	Countries Table = iota
	Currencies
	PaymentMethods
	OffersSell
	OffersBuy
	MyOffers
	FiltersList
)

var tableNames = [...]string{
	Countries:      "countries",
	Currencies:     "currencies",
	PaymentMethods: "paymentMethods",
	OffersSell:     "offersSell",
	OffersBuy:      "offersBuy",
	MyOffers:       "myOffers",
	FiltersList:    "filterList",
}

// String returns the SQL table name.
func (t Table) String() string {
	if t >= 0 && int(t) < len(tableNames) {
		return tableNames[t]
	}
	return fmt.Sprintf("table(%d)", int(t))
}

// Op is the kind of store operation.
type Op int

const (
	Add Op = iota
	Edit
	Delete
	Read
)

func (o Op) String() string {
	switch o {
	case Add:
		return "add"
	case Edit:
		return "edit"
	case Delete:
		return "delete"
	case Read:
		return "read"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Outcome is the result of an operation.
type Outcome int

const (
	Ok Outcome = iota
	Error
)

func (o Outcome) String() string {
	if o == Ok {
		return "ok"
	}
	return "error"
}

// Event describes one completed store operation.
type Event struct {
	Table   Table
	Op      Op
	Outcome Outcome
	Err     error // Set when Outcome is Error
}

// Observer receives events.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Bus is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	logger *slog.Logger
}

// Subscription is the token returned by Subscribe.
type Subscription struct {
	id       string
	bus      *Bus
	observer Observer
	once     sync.Once
}

// New creates a bus. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers an observer and returns its token.
func (b *Bus) Subscribe(o Observer) *Subscription {
	sub := &Subscription{
		id:       uuid.Must(uuid.NewV7()).String(),
		bus:      b,
		observer: o,
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// ID returns the token identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (b *Bus) remove(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == target {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of open subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers e to every open subscription.
// The subscriber list is snapshotted, so observers may subscribe or close
// tokens from inside OnEvent.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked",
				"subscription", sub.id,
				"table", e.Table.String(),
				"op", e.Op.String(),
				"panic", r)
		}
	}()
	sub.observer.OnEvent(e)
}

// Recorder is an Observer that keeps every event it receives.
// Useful in tests and for diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event and false when none were recorded.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
