package controller

import (
	"io"
	"log"
	"testing"
	"time"

	"dunly/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Invoice{},
		&models.FollowUpJob{},
		&models.TrackingEvent{},
		&models.EmailAudit{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// asUser replaces the JWT middleware in handler tests.
func asUser(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FromName: "Acme Billing", CompanyName: "Acme"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedTestClient(t *testing.T, db *gorm.DB, ownerID uint, email string) *models.Client {
	t.Helper()
	client := &models.Client{OwnerID: ownerID, Name: "Jordan Example", Email: email}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}
	return client
}

func seedTestInvoice(t *testing.T, db *gorm.DB, ownerID, clientID uint, status string, due time.Time) *models.Invoice {
	t.Helper()
	invoice := &models.Invoice{
		OwnerID:     ownerID,
		ClientID:    clientID,
		Number:      "INV-2001",
		AmountCents: 48000,
		Currency:    "usd",
		Status:      status,
		DueDate:     due,
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return invoice
}
