package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusOpen  = "open"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

// Invoice represents a billed amount owed by a client. The reminder pipeline
// only ever reads invoices; the single mutation it performs is marking an
// invoice paid from a verified payment webhook.
type Invoice struct {
	gorm.Model
	OwnerID  uint `gorm:"not null;index" json:"owner_id"`
	ClientID uint `gorm:"not null;index" json:"client_id"`

	Number      string `gorm:"not null" json:"number"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"default:'usd'" json:"currency"`

	Status  string    `gorm:"default:'open';index" json:"status"`
	DueDate time.Time `gorm:"not null;index" json:"due_date"`

	// Reminder cadence assigned to this invoice; empty means the default
	// strategy from the catalog.
	StrategyID string `json:"strategy_id"`

	PaidAt     *time.Time `json:"paid_at"`
	PaymentRef string     `json:"payment_ref"`

	// Relations
	Client Client `json:"-"`
}

// EmailAudit records pipeline side effects that need a durable trail
// (payment webhooks marking invoices paid, bulk job cleanups).
type EmailAudit struct {
	gorm.Model
	OwnerID   uint   `gorm:"index" json:"owner_id"`
	InvoiceID *uint  `gorm:"index" json:"invoice_id"`
	ClientID  *uint  `gorm:"index" json:"client_id"`
	Action    string `gorm:"not null" json:"action"`
	Detail    string `json:"detail"`
}
