package pipeline

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"dunly/models"

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

func seedOwner(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FromName: "Acme Billing", CompanyName: "Acme"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed owner: %v", err)
	}
	return user
}

func seedClient(t *testing.T, db *gorm.DB, ownerID uint, email string) *models.Client {
	t.Helper()
	client := &models.Client{OwnerID: ownerID, Name: "Jordan Example", Email: email, Company: "Example Co"}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}
	return client
}

func seedInvoice(t *testing.T, db *gorm.DB, ownerID, clientID uint, dueDate time.Time, status string) *models.Invoice {
	t.Helper()
	invoice := &models.Invoice{
		OwnerID:     ownerID,
		ClientID:    clientID,
		Number:      "INV-1001",
		AmountCents: 125000,
		Currency:    "usd",
		Status:      status,
		DueDate:     dueDate,
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return invoice
}

func countJobs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.FollowUpJob{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count jobs: %v", err)
	}
	return count
}

type fakeSend struct {
	To      string
	Subject string
	Body    string
}

// fakeMailer stands in for the SMTP transport in processor tests.
type fakeMailer struct {
	failFor map[string]bool
	sent    []fakeSend
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.failFor[to] {
		return errors.New("smtp 550: mailbox unavailable")
	}
	m.sent = append(m.sent, fakeSend{To: to, Subject: subject, Body: body})
	return nil
}
