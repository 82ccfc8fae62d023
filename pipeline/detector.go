package pipeline

import (
	"fmt"
	"log"
	"time"

	"dunly/models"

	"gorm.io/gorm"
)

// OverdueDetector scans a tenant's unpaid invoices that are past due and asks
// the scheduler to materialize their reminder jobs. It is safe to run on any
// interval: the scheduler's per-step dedupe makes repeated runs no-ops.
type OverdueDetector struct {
	DB        *gorm.DB
	Scheduler *Scheduler
	Logger    *log.Logger
}

func NewOverdueDetector(db *gorm.DB, scheduler *Scheduler, logger *log.Logger) *OverdueDetector {
	return &OverdueDetector{
		DB:        db,
		Scheduler: scheduler,
		Logger:    logger,
	}
}

// CheckOverdueInvoices returns how many invoices were scanned and how many
// new jobs were created. Per-invoice scheduling errors are logged and do not
// abort the scan; only a failure to query invoices is a hard error.
func (d *OverdueDetector) CheckOverdueInvoices(ownerID uint) (checked int, created int, err error) {
	var invoices []models.Invoice
	if err := d.DB.
		Where("owner_id = ? AND status != ? AND due_date < ?", ownerID, models.InvoiceStatusPaid, time.Now()).
		Find(&invoices).Error; err != nil {
		return 0, 0, fmt.Errorf("overdue invoice scan failed: %w", err)
	}

	for _, invoice := range invoices {
		checked++

		strategyID := invoice.StrategyID
		if strategyID == "" {
			strategyID = models.DefaultStrategyID
		}

		jobs, err := d.Scheduler.SchedulePaymentReminders(ownerID, invoice.ID, strategyID)
		if err != nil {
			d.Logger.Printf("Failed to schedule reminders for invoice %d: %v", invoice.ID, err)
			continue
		}
		created += len(jobs)
	}

	return checked, created, nil
}
