// Package ledger maintains the append-only purchase record list for the
// current process and notifies interested parties of every insert.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/messaging"
	"github.com/mkravets/vigil/pkg/messaging/events"
)

var ErrInvalidRecord = errors.New("invalid purchase record")

// Status is the fulfillment state of a purchase record.
type Status string

const (
	StatusCompleted  Status = "COMPLETED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
)

// Record is one line item of a completed checkout. Once appended to the
// ledger a record is never mutated or removed.
type Record struct {
	ID              uuid.UUID `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	UserEmail       string    `json:"user_email" validate:"required,email"`
	UserName        string    `json:"user_name"`
	UserType        string    `json:"user_type"`
	Country         string    `json:"country"`
	ProductName     string    `json:"product_name" validate:"required"`
	UnitPrice       int64     `json:"unit_price" validate:"min=0"` // price in cents
	Quantity        int32     `json:"quantity" validate:"required,min=1"`
	Total           int64     `json:"total" validate:"min=0"`
	PaymentMethod   string    `json:"payment_method"`
	PurchaseDate    time.Time `json:"purchase_date"` // truncated to day precision
	Status          Status    `json:"status"`
	ShippingAddress string    `json:"shipping_address"`
}

// Subscriber receives a snapshot of the full, updated record list after
// every insert, most-recent-first.
type Subscriber func(records []Record)

type subEntry struct {
	id uint64
	fn Subscriber
}

// Subscription is the token returned by Subscribe and accepted by Unsubscribe.
type Subscription struct {
	id uint64
}

// Ledger is the append-only in-memory purchase list. Records live for the
// lifetime of the process; there is no update or delete operation.
// Construct one per application and inject it where needed.
type Ledger struct {
	mu      sync.RWMutex
	records []Record // most-recent-first
	subs    []subEntry
	nextID  uint64

	bus      *bus.Bus
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an empty Ledger publishing its events on the given bus.
func New(b *bus.Bus, logger *slog.Logger) *Ledger {
	return &Ledger{
		bus:      b,
		validate: validator.New(),
		logger:   logger.With("component", "ledger"),
		now:      time.Now,
	}
}

// Add validates the record, assigns identity, inserts it at the head of the
// list and then, before returning, (a) invokes every registered subscriber
// with a snapshot of the updated list in registration order and (b) publishes
// a purchase-confirmed event plus a user-facing notification on the bus.
// Returns ErrInvalidRecord if required fields are missing.
func (l *Ledger) Add(ctx context.Context, record Record) error {
	if err := l.validate.StructCtx(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	record.ID = uuid.New()
	if record.TransactionID == "" {
		record.TransactionID = uuid.NewString()
	}
	if record.PurchaseDate.IsZero() {
		record.PurchaseDate = l.now()
	}
	record.PurchaseDate = record.PurchaseDate.Truncate(24 * time.Hour)
	if record.Status == "" {
		record.Status = StatusCompleted
	}

	l.mu.Lock()
	l.records = append([]Record{record}, l.records...)
	snapshot := make([]Record, len(l.records))
	copy(snapshot, l.records)
	subs := make([]subEntry, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		l.notify(s, snapshot)
	}

	l.bus.Publish(messaging.TopicPurchaseConfirmed, events.PurchaseConfirmed{
		TransactionID: record.TransactionID,
		UserEmail:     record.UserEmail,
		ProductName:   record.ProductName,
		Total:         record.Total,
		CreatedAt:     l.now(),
	})
	l.bus.Publish(messaging.TopicNotification, events.Notification{
		Severity: events.SeveritySuccess,
		Title:    "Order confirmed",
		Message:  fmt.Sprintf("Your order for %s has been placed (transaction %s)", record.ProductName, record.TransactionID),
		Duration: 5 * time.Second,
	})

	l.logger.InfoContext(ctx, "purchase recorded",
		slog.String("transaction_id", record.TransactionID),
		slog.String("user_email", record.UserEmail),
		slog.String("product", record.ProductName))
	return nil
}

// Purchases returns a snapshot of all records, most-recent-first.
// Returns an empty slice for a fresh ledger.
func (l *Ledger) Purchases() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]Record, len(l.records))
	copy(snapshot, l.records)
	return snapshot
}

// Subscribe registers a callback invoked after every insert.
func (l *Ledger) Subscribe(fn Subscriber) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.subs = append(l.subs, subEntry{id: l.nextID, fn: fn})
	return &Subscription{id: l.nextID}
}

// Unsubscribe removes a subscriber. Unsubscribing a nil token, a token twice,
// or a token never registered is a no-op. After Unsubscribe returns, the
// callback is not invoked by later inserts.
func (l *Ledger) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.subs {
		if s.id == sub.id {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			return
		}
	}
}

// notify invokes a single subscriber, isolating its panics so one faulty
// listener cannot stop delivery to the rest.
func (l *Ledger) notify(s subEntry, snapshot []Record) {
	defer func() {
		if rvr := recover(); rvr != nil {
			l.logger.Error("subscriber panic recovered", "panic", rvr)
		}
	}()
	s.fn(snapshot)
}
