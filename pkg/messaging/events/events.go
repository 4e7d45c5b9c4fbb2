// Package events defines the typed payloads exchanged over the in-process
// bus and mirrored to NATS by the relay.
package events

import (
	"encoding/json"
	"time"

	"github.com/mkravets/vigil/pkg/messaging"
)

// PurchaseConfirmed is published after every successful ledger insert.
type PurchaseConfirmed struct {
	TransactionID string    `json:"transaction_id"`
	UserEmail     string    `json:"user_email"`
	ProductName   string    `json:"product_name"`
	Total         int64     `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e PurchaseConfirmed) Subject() string {
	return messaging.SubjectPurchaseConfirmed
}

func (e PurchaseConfirmed) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// AvatarUpdated is published when a user sets or clears their avatar.
// AvatarURL is empty when the avatar was cleared.
type AvatarUpdated struct {
	UserEmail string `json:"user_email"`
	AvatarURL string `json:"avatar_url"`
}

func (e AvatarUpdated) Subject() string {
	return messaging.SubjectAvatarUpdated
}

func (e AvatarUpdated) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Severity classifies a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a user-facing, non-blocking notification payload.
type Notification struct {
	Severity Severity      `json:"severity"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}
