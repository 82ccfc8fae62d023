package models

import (
	"time"

	"gorm.io/gorm"
)

// Job statuses. A job leaves "queued" only through an atomic conditional
// update: the delivery processor claims it into "processing" before sending,
// the pause API flips it between "queued" and "paused". "sent", "failed" and
// "canceled" are terminal.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusPaused     = "paused"
	JobStatusSent       = "sent"
	JobStatusFailed     = "failed"
	JobStatusCanceled   = "canceled"
)

// Job kinds
const (
	JobKindPaymentReminder = "payment_reminder"
	JobKindFollowUp        = "follow_up"
	JobKindCheckIn         = "check_in"
)

// FollowUpJob is a single scheduled email unit. Payment reminders reference
// an invoice (and its client); follow-ups and check-ins reference a client
// directly. One of InvoiceID/ClientID is always set.
type FollowUpJob struct {
	gorm.Model
	OwnerID uint   `gorm:"not null;index" json:"owner_id"`
	Kind    string `gorm:"not null;index" json:"kind"`

	InvoiceID *uint `gorm:"index" json:"invoice_id"`
	ClientID  *uint `gorm:"index" json:"client_id"`

	TemplateID  string    `gorm:"not null" json:"template_id"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`

	Status string     `gorm:"default:'queued';index" json:"status"`
	SentAt *time.Time `json:"sent_at"`

	// Set at send time; tracking events correlate back through it.
	MessageID string `gorm:"index" json:"message_id"`

	// Cadence bookkeeping for multi-step reminder strategies. StrategyStep is
	// 1-based; the pair (invoice, strategy, step) is what the scheduler
	// dedupes on.
	StrategyID   *string `json:"strategy_id"`
	StrategyStep int     `gorm:"default:0" json:"strategy_step"`

	LastError string `json:"last_error,omitempty"`

	// Relations
	Invoice *Invoice `json:"-"`
	Client  *Client  `json:"-"`
}

// TrackingEvent is an append-only engagement record correlated to a sent
// message. Repeat opens and clicks are meaningful and kept as separate rows;
// only (message, complained) is recorded at most once.
type TrackingEvent struct {
	gorm.Model
	MessageID string `gorm:"not null;index" json:"message_id"`
	OwnerID   uint   `gorm:"not null;index" json:"owner_id"`
	ClientID  uint   `gorm:"index" json:"client_id"`

	Event     string                 `gorm:"not null;index" json:"event"` // opened, clicked, complained
	EventData map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"event_data"`

	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

// Tracking event types
const (
	TrackingEventOpened     = "opened"
	TrackingEventClicked    = "clicked"
	TrackingEventComplained = "complained"
)
