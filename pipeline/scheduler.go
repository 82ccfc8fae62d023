package pipeline

import (
	"errors"
	"fmt"
	"log"
	"time"

	"dunly/models"
	"dunly/store"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"
)

var (
	// ErrDaysOutOfRange is a client error: days_from_now must be in [0, 365].
	ErrDaysOutOfRange = errors.New("days_from_now must be between 0 and 365")
	// ErrClientUnsubscribed rejects scheduling for suppressed clients.
	ErrClientUnsubscribed = errors.New("client has unsubscribed")
	// ErrUnknownStrategy rejects cadence ids not in the catalog.
	ErrUnknownStrategy = errors.New("unknown reminder strategy")
	// ErrInvalidRecipient rejects clients whose email cannot receive mail.
	ErrInvalidRecipient = errors.New("client email address is invalid")
)

// Scheduler decides which follow-up jobs should exist and materializes them
// in the job store. All of its operations are idempotent per cadence step so
// callers (the overdue detector, API handlers) may invoke it repeatedly.
type Scheduler struct {
	DB     *gorm.DB
	Store  *store.JobStore
	Logger *log.Logger
}

func NewScheduler(db *gorm.DB, logger *log.Logger) *Scheduler {
	return &Scheduler{
		DB:     db,
		Store:  store.NewJobStore(db),
		Logger: logger,
	}
}

// SchedulePaymentReminders materializes reminder jobs for every cadence step
// of the invoice's strategy whose send time has already arrived. Future steps
// are picked up by later invocations, which keeps a paid invoice from ever
// growing pending reminders. Steps that already have a job, in any status,
// are skipped. A paid invoice yields an empty result, not an error.
func (s *Scheduler) SchedulePaymentReminders(ownerID, invoiceID uint, strategyID string) ([]models.FollowUpJob, error) {
	var invoice models.Invoice
	if err := s.DB.Where("id = ? AND owner_id = ?", invoiceID, ownerID).First(&invoice).Error; err != nil {
		return nil, fmt.Errorf("invoice lookup failed: %w", err)
	}

	if invoice.Status == models.InvoiceStatusPaid {
		return nil, nil
	}

	if strategyID == "" {
		strategyID = invoice.StrategyID
	}
	if strategyID == "" {
		strategyID = models.DefaultStrategyID
	}
	strategy, ok := models.StrategyByID(strategyID)
	if !ok {
		return nil, ErrUnknownStrategy
	}

	var client models.Client
	if err := s.DB.Where("id = ? AND owner_id = ?", invoice.ClientID, ownerID).First(&client).Error; err != nil {
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}
	if client.IsUnsubscribed {
		s.Logger.Printf("Skipping reminders for invoice %d: client %d unsubscribed", invoice.ID, client.ID)
		return nil, nil
	}
	if err := checkmail.ValidateFormat(client.Email); err != nil {
		return nil, ErrInvalidRecipient
	}

	now := time.Now()
	var created []models.FollowUpJob
	for i, step := range strategy.Steps {
		stepNumber := i + 1
		scheduledAt := invoice.DueDate.AddDate(0, 0, step.OffsetDays)
		if scheduledAt.After(now) {
			continue
		}

		exists, err := s.Store.StepExists(ownerID, invoice.ID, strategy.ID, stepNumber)
		if err != nil {
			return created, fmt.Errorf("step existence check failed: %w", err)
		}
		if exists {
			continue
		}

		job := models.FollowUpJob{
			OwnerID:      ownerID,
			Kind:         models.JobKindPaymentReminder,
			InvoiceID:    &invoice.ID,
			ClientID:     &client.ID,
			TemplateID:   step.TemplateID,
			ScheduledAt:  scheduledAt,
			Status:       models.JobStatusQueued,
			StrategyID:   &strategy.ID,
			StrategyStep: stepNumber,
		}
		if err := s.Store.Create(&job); err != nil {
			return created, fmt.Errorf("job creation failed: %w", err)
		}
		created = append(created, job)
	}

	if len(created) > 0 {
		s.Logger.Printf("Scheduled %d reminder job(s) for invoice %d (strategy %s)", len(created), invoice.ID, strategy.ID)
	}
	return created, nil
}

// ScheduleFollowUp creates exactly one follow-up (or check-in) job for a
// client, daysFromNow days out. The bound is a hard client error, never
// silently clamped.
func (s *Scheduler) ScheduleFollowUp(ownerID, clientID uint, daysFromNow int, templateID, kind string) (*models.FollowUpJob, error) {
	if daysFromNow < 0 || daysFromNow > 365 {
		return nil, ErrDaysOutOfRange
	}

	if kind != models.JobKindCheckIn {
		kind = models.JobKindFollowUp
	}
	if templateID == "" {
		templateID = kind
	}

	var client models.Client
	if err := s.DB.Where("id = ? AND owner_id = ?", clientID, ownerID).First(&client).Error; err != nil {
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}
	if client.IsUnsubscribed {
		return nil, ErrClientUnsubscribed
	}
	if err := checkmail.ValidateFormat(client.Email); err != nil {
		return nil, ErrInvalidRecipient
	}

	job := models.FollowUpJob{
		OwnerID:     ownerID,
		Kind:        kind,
		ClientID:    &client.ID,
		TemplateID:  templateID,
		ScheduledAt: time.Now().AddDate(0, 0, daysFromNow),
		Status:      models.JobStatusQueued,
	}
	if err := s.Store.Create(&job); err != nil {
		return nil, fmt.Errorf("job creation failed: %w", err)
	}

	s.Logger.Printf("Scheduled %s job %d for client %d in %d day(s)", kind, job.ID, client.ID, daysFromNow)
	return &job, nil
}

// PauseClient suspends a client's pending jobs. History is untouched.
func (s *Scheduler) PauseClient(ownerID, clientID uint) (int64, error) {
	var client models.Client
	if err := s.DB.Where("id = ? AND owner_id = ?", clientID, ownerID).First(&client).Error; err != nil {
		return 0, fmt.Errorf("client lookup failed: %w", err)
	}
	return s.Store.PauseForClient(ownerID, clientID)
}

// ResumeClient reactivates a client's paused jobs.
func (s *Scheduler) ResumeClient(ownerID, clientID uint) (int64, error) {
	var client models.Client
	if err := s.DB.Where("id = ? AND owner_id = ?", clientID, ownerID).First(&client).Error; err != nil {
		return 0, fmt.Errorf("client lookup failed: %w", err)
	}
	return s.Store.ResumeForClient(ownerID, clientID)
}
