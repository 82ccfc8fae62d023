package controller

import (
	"encoding/json"
	"log"
	"time"

	"dunly/config"
	"dunly/models"
	"dunly/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

type PaymentController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewPaymentController(db *gorm.DB, logger *log.Logger) *PaymentController {
	return &PaymentController{DB: db, Logger: logger}
}

// HandlePaymentWebhook verifies and applies inbound payment events. Marking
// an invoice paid is what makes future overdue scans skip it; any job still
// queued for it is canceled by the processor's pre-send re-check.
func (pc *PaymentController) HandlePaymentWebhook(c *fiber.Ctx) error {
	secret := config.AppConfig.PaymentWebhookSecret
	if secret == "" {
		pc.Logger.Println("Payment webhook called but PAYMENT_WEBHOOK_SECRET is not set")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook secret not configured",
		})
	}

	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing signature header",
		})
	}

	// HMAC-SHA256 over the raw payload, constant-time compare, with
	// tolerance for clock drift between us and the provider.
	event, err := webhook.ConstructEventWithTolerance(c.Body(), signature, secret, 5*time.Minute)
	if err != nil {
		pc.Logger.Printf("Webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			pc.Logger.Printf("Failed to parse payment intent: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing payment intent",
			})
		}
		return pc.handlePaymentCaptured(c, &paymentIntent)

	default:
		// Event types we don't act on are acknowledged so the provider stops
		// redelivering them.
		return c.JSON(fiber.Map{"received": true})
	}
}

func (pc *PaymentController) handlePaymentCaptured(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	invoiceRef := pi.Metadata["invoice_id"]
	if invoiceRef == "" {
		// Not every payment maps to an invoice; acknowledge and move on.
		pc.Logger.Printf("Payment %s has no invoice reference, ignoring", pi.ID)
		return c.JSON(fiber.Map{"received": true, "invoice_matched": false})
	}

	var invoice models.Invoice
	if err := pc.DB.First(&invoice, utils.ParseUint(invoiceRef)).Error; err != nil {
		pc.Logger.Printf("Payment %s references unknown invoice %s", pi.ID, invoiceRef)
		return c.JSON(fiber.Map{"received": true, "invoice_matched": false})
	}

	if invoice.Status != models.InvoiceStatusPaid {
		if err := pc.DB.Model(&invoice).Updates(map[string]interface{}{
			"status":      models.InvoiceStatusPaid,
			"paid_at":     time.Now(),
			"payment_ref": pi.ID,
		}).Error; err != nil {
			pc.Logger.Printf("Failed to mark invoice %d paid: %v", invoice.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update invoice",
			})
		}

		pc.DB.Create(&models.EmailAudit{
			OwnerID:   invoice.OwnerID,
			InvoiceID: &invoice.ID,
			ClientID:  &invoice.ClientID,
			Action:    "invoice_paid",
			Detail:    "payment webhook " + pi.ID,
		})

		pc.Logger.Printf("Invoice %d marked paid by payment %s", invoice.ID, pi.ID)
	}

	return c.JSON(fiber.Map{"received": true, "invoice_matched": true})
}
