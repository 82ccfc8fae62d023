package models

import (
	"gorm.io/gorm"
)

// User is the tenant that owns clients, invoices and follow-up jobs. Every
// query in the system is scoped by the owning user's ID.
type User struct {
	gorm.Model
	Email       string  `gorm:"not null;uniqueIndex" json:"email"`
	Name        *string `json:"name"`
	CompanyName string  `json:"company_name"`

	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Sender identity used on outgoing reminder emails
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`

	// Relations
	Clients  []Client  `gorm:"foreignKey:OwnerID" json:"clients,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:OwnerID" json:"invoices,omitempty"`
}
