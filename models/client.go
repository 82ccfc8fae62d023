package models

import (
	"time"

	"gorm.io/gorm"
)

// Client represents a billable contact of a tenant
type Client struct {
	gorm.Model
	OwnerID uint `gorm:"not null;index" json:"owner_id"`

	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null;index" json:"email"`
	Company string `json:"company"`
	Phone   string `json:"phone"`

	// Suppression state. Once a client unsubscribes, no further jobs may be
	// scheduled for them and queued jobs are skipped at send time.
	IsUnsubscribed bool       `gorm:"default:false" json:"is_unsubscribed"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`

	LastContact *time.Time `json:"last_contact"`

	// Relations
	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}
