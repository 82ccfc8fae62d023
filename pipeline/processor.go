package pipeline

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dunly/models"
	"dunly/store"
	"dunly/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultBatchLimit bounds a single processing pass. Invocations arrive over
// request/response triggers, so each pass has to stay short-lived.
const DefaultBatchLimit = 10

// Summary is returned from every processing pass, including partially failed
// ones. Only a failure to query the job table surfaces as an error.
type Summary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// DeliveryProcessor drains due jobs: claim, render, send, record outcome.
// Multiple processors may run concurrently over the same jobs; the atomic
// claim in the store guarantees each job is sent at most once.
type DeliveryProcessor struct {
	DB         *gorm.DB
	Store      *store.JobStore
	Mailer     utils.MailSender
	Logger     *log.Logger
	BaseURL    string
	BatchLimit int
}

func NewDeliveryProcessor(db *gorm.DB, mailer utils.MailSender, baseURL string, logger *log.Logger) *DeliveryProcessor {
	return &DeliveryProcessor{
		DB:         db,
		Store:      store.NewJobStore(db),
		Mailer:     mailer,
		Logger:     logger,
		BaseURL:    baseURL,
		BatchLimit: DefaultBatchLimit,
	}
}

// ProcessJobs runs one batch across all tenants (cron-triggered path).
func (p *DeliveryProcessor) ProcessJobs() (Summary, error) {
	jobs, err := p.Store.DueJobs(p.BatchLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("due job query failed: %w", err)
	}
	return p.run(jobs)
}

// ProcessJobsForOwner runs one batch for a single tenant (user-triggered path).
func (p *DeliveryProcessor) ProcessJobsForOwner(ownerID uint) (Summary, error) {
	jobs, err := p.Store.DueJobsForOwner(ownerID, p.BatchLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("due job query failed: %w", err)
	}
	return p.run(jobs)
}

func (p *DeliveryProcessor) run(jobs []models.FollowUpJob) (Summary, error) {
	var summary Summary

	for _, job := range jobs {
		claimed, err := p.Store.Claim(job.ID)
		if err != nil {
			// Store-level failure; jobs already transitioned keep their new
			// state, the rest of the batch is abandoned.
			return summary, fmt.Errorf("claim failed for job %d: %w", job.ID, err)
		}
		if !claimed {
			// Another processor invocation won the race. Already handled.
			continue
		}
		summary.Processed++

		outcome, err := p.deliver(&job)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Dangling invoice/client reference; fail the job, keep going.
				p.markFailed(&summary, job.ID, err.Error())
				continue
			}
			return summary, err
		}

		switch outcome {
		case models.JobStatusSent:
			summary.Sent++
		case models.JobStatusFailed:
			summary.Failed++
		case models.JobStatusCanceled:
			summary.Skipped++
		}
	}

	return summary, nil
}

// deliver handles a single claimed job and returns the terminal status it
// reached. A non-nil error means a persistence failure that should bubble up.
func (p *DeliveryProcessor) deliver(job *models.FollowUpJob) (string, error) {
	if job.ClientID == nil {
		if err := p.Store.MarkFailed(job.ID, "job has no client reference"); err != nil {
			return "", err
		}
		return models.JobStatusFailed, nil
	}

	var client models.Client
	if err := p.DB.Where("id = ? AND owner_id = ?", *job.ClientID, job.OwnerID).First(&client).Error; err != nil {
		return "", err
	}

	// Unsubscribe is an absolute suppression: re-checked here even though the
	// scheduler already screens for it, because the client may have opted out
	// after the job was queued.
	if client.IsUnsubscribed {
		if err := p.Store.Cancel(job.ID, "client unsubscribed"); err != nil {
			return "", err
		}
		return models.JobStatusCanceled, nil
	}

	data := utils.ReminderData{
		ClientName:  client.Name,
		CompanyName: client.Company,
		Year:        time.Now().Year(),
	}

	var owner models.User
	if err := p.DB.First(&owner, job.OwnerID).Error; err == nil {
		data.SenderName = owner.FromName
		if data.SenderName == "" {
			data.SenderName = owner.CompanyName
		}
	}

	if job.Kind == models.JobKindPaymentReminder {
		if job.InvoiceID == nil {
			if err := p.Store.MarkFailed(job.ID, "reminder job has no invoice reference"); err != nil {
				return "", err
			}
			return models.JobStatusFailed, nil
		}

		var invoice models.Invoice
		if err := p.DB.Where("id = ? AND owner_id = ?", *job.InvoiceID, job.OwnerID).First(&invoice).Error; err != nil {
			return "", err
		}

		// The invoice may have been paid between scheduling and this pass.
		if invoice.Status == models.InvoiceStatusPaid {
			if err := p.Store.Cancel(job.ID, "invoice paid"); err != nil {
				return "", err
			}
			return models.JobStatusCanceled, nil
		}

		data.InvoiceNumber = invoice.Number
		data.AmountDue = formatAmount(invoice.AmountCents, invoice.Currency)
		data.DueDate = invoice.DueDate.Format("January 2, 2006")
		data.DaysOverdue = int(time.Since(invoice.DueDate).Hours() / 24)
	}

	subject, body, err := utils.RenderReminderTemplate(job.TemplateID, data)
	if err != nil {
		if markErr := p.Store.MarkFailed(job.ID, err.Error()); markErr != nil {
			return "", markErr
		}
		p.Logger.Printf("Render failed for job %d: %v", job.ID, err)
		return models.JobStatusFailed, nil
	}

	messageID := uuid.New().String()
	body = utils.InjectTracking(body, p.BaseURL, messageID, client.ID)

	if err := p.Mailer.Send(client.Email, subject, body); err != nil {
		// Transport failure: mark and move on. Never retried in place.
		if markErr := p.Store.MarkFailed(job.ID, err.Error()); markErr != nil {
			return "", markErr
		}
		utils.LogError("delivery_failed", err, map[string]interface{}{
			"job_id":   job.ID,
			"owner_id": job.OwnerID,
		})
		return models.JobStatusFailed, nil
	}

	if err := p.Store.MarkSent(job.ID, messageID); err != nil {
		return "", err
	}

	// Best effort: record when we last emailed this client.
	p.DB.Model(&client).Update("last_contact", time.Now())

	p.Logger.Printf("Sent job %d (%s) to client %d", job.ID, job.Kind, client.ID)
	return models.JobStatusSent, nil
}

func (p *DeliveryProcessor) markFailed(summary *Summary, jobID uint, reason string) {
	if err := p.Store.MarkFailed(jobID, reason); err != nil {
		p.Logger.Printf("Failed to mark job %d failed: %v", jobID, err)
		return
	}
	summary.Failed++
}

func formatAmount(cents int64, currency string) string {
	amount := float64(cents) / 100
	if strings.EqualFold(currency, "usd") {
		return fmt.Sprintf("$%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(currency))
}
