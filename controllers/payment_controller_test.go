package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dunly/config"
	"dunly/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

func newPaymentApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	pc := NewPaymentController(db, discardLogger())
	app.Post("/webhooks/payment", pc.HandlePaymentWebhook)
	return app
}

// signPayload produces a Stripe-Signature header the verifier accepts.
func signPayload(payload, secret string, at time.Time) string {
	signed := fmt.Sprintf("%d.%s", at.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func paymentEventJSON(eventType, paymentID string, invoiceID uint) string {
	metadata := ""
	if invoiceID != 0 {
		metadata = fmt.Sprintf(`,"metadata":{"invoice_id":"%d"}`, invoiceID)
	}
	return fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": "2023-10-16",
		"type": %q,
		"data": {"object": {"id": %q, "object": "payment_intent"%s}}
	}`, eventType, paymentID, metadata)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader("{}"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")
	invoice := seedTestInvoice(t, db, owner.ID, client.ID, models.InvoiceStatusOpen, time.Now().AddDate(0, 0, -3))

	payload := paymentEventJSON("payment_intent.succeeded", "pi_bad", invoice.ID)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, "whsec_wrong_secret", time.Now()))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var fresh models.Invoice
	db.First(&fresh, invoice.ID)
	if fresh.Status != models.InvoiceStatusOpen {
		t.Fatalf("forged webhook mutated the invoice: %s", fresh.Status)
	}
	var audits int64
	db.Model(&models.EmailAudit{}).Count(&audits)
	if audits != 0 {
		t.Fatalf("forged webhook left an audit trail: %d rows", audits)
	}
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	payload := paymentEventJSON("payment_intent.succeeded", "pi_old", 0)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for replayed payload, got %d", resp.StatusCode)
	}
}

func TestWebhookMarksInvoicePaid(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")
	invoice := seedTestInvoice(t, db, owner.ID, client.ID, models.InvoiceStatusOpen, time.Now().AddDate(0, 0, -3))

	payload := paymentEventJSON("payment_intent.succeeded", "pi_123", invoice.ID)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var fresh models.Invoice
	db.First(&fresh, invoice.ID)
	if fresh.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice not marked paid: %s", fresh.Status)
	}
	if fresh.PaidAt == nil {
		t.Fatal("paid_at not recorded")
	}
	if fresh.PaymentRef != "pi_123" {
		t.Fatalf("payment reference not kept: %q", fresh.PaymentRef)
	}

	var audit models.EmailAudit
	if err := db.Where("action = ?", "invoice_paid").First(&audit).Error; err != nil {
		t.Fatalf("no audit row for the payment: %v", err)
	}
	if audit.OwnerID != owner.ID {
		t.Fatalf("audit row for wrong owner: %d", audit.OwnerID)
	}
}

func TestWebhookAcksPaymentWithoutInvoice(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	payload := paymentEventJSON("payment_intent.succeeded", "pi_orphan", 0)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("payments without an invoice must still be acknowledged, got %d", resp.StatusCode)
	}
}

func TestWebhookAcksUnhandledEventTypes(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = testWebhookSecret

	payload := paymentEventJSON("charge.refunded", "ch_1", 0)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 ack, got %d", resp.StatusCode)
	}
}

func TestWebhookFailsClosedWithoutSecret(t *testing.T) {
	db := newTestDB(t)
	app := newPaymentApp(db)
	config.AppConfig.PaymentWebhookSecret = ""

	payload := paymentEventJSON("payment_intent.succeeded", "pi_1", 0)
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 when unconfigured, got %d", resp.StatusCode)
	}
}
