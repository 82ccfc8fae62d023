package controller

import (
	"errors"
	"log"

	"dunly/models"
	"dunly/pipeline"
	"dunly/store"
	"dunly/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type JobController struct {
	DB        *gorm.DB
	Store     *store.JobStore
	Scheduler *pipeline.Scheduler
	Logger    *log.Logger
}

func NewJobController(db *gorm.DB, scheduler *pipeline.Scheduler, logger *log.Logger) *JobController {
	return &JobController{
		DB:        db,
		Store:     store.NewJobStore(db),
		Scheduler: scheduler,
		Logger:    logger,
	}
}

type CreateJobRequest struct {
	Type        string `json:"type" validate:"required,oneof=payment_reminder follow_up check_in"`
	InvoiceID   uint   `json:"invoice_id"`
	ClientID    uint   `json:"client_id"`
	TemplateID  string `json:"template_id"`
	DaysFromNow int    `json:"days_from_now" validate:"min=0,max=365"`
	StrategyID  string `json:"strategy_id"`
}

// CreateJob schedules reminder or follow-up jobs for the calling tenant.
func (jc *JobController) CreateJob(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	details := utils.ValidateStruct(req)
	if req.Type == models.JobKindPaymentReminder && req.InvoiceID == 0 {
		details = append(details, "invoice_id is required for payment reminders")
	}
	if req.Type != models.JobKindPaymentReminder && req.ClientID == 0 {
		details = append(details, "client_id is required")
	}
	if req.TemplateID != "" && !utils.IsKnownTemplate(req.TemplateID) {
		details = append(details, "template_id is unknown")
	}
	if len(details) > 0 {
		return utils.ValidationErrorResponse(c, details)
	}

	var jobs []models.FollowUpJob
	var err error
	switch req.Type {
	case models.JobKindPaymentReminder:
		jobs, err = jc.Scheduler.SchedulePaymentReminders(user.ID, req.InvoiceID, req.StrategyID)
	default:
		var job *models.FollowUpJob
		job, err = jc.Scheduler.ScheduleFollowUp(user.ID, req.ClientID, req.DaysFromNow, req.TemplateID, req.Type)
		if job != nil {
			jobs = append(jobs, *job)
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrDaysOutOfRange),
			errors.Is(err, pipeline.ErrUnknownStrategy),
			errors.Is(err, pipeline.ErrInvalidRecipient):
			return utils.ValidationErrorResponse(c, []string{err.Error()})
		case errors.Is(err, pipeline.ErrClientUnsubscribed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Referenced invoice or client not found",
			})
		default:
			jc.Logger.Printf("Job creation failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create jobs",
			})
		}
	}

	if jobs == nil {
		jobs = []models.FollowUpJob{}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobs lists the caller's jobs, newest first. Default limit is 50.
func (jc *JobController) GetJobs(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	status := c.Query("status")

	jobs, err := jc.Store.ListByOwner(user.ID, status, limit)
	if err != nil {
		jc.Logger.Printf("Job listing failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch jobs",
		})
	}

	return c.JSON(fiber.Map{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CleanupJobs deletes every job of the calling tenant. Administrative escape
// hatch only.
func (jc *JobController) CleanupJobs(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	deleted, err := jc.Store.PurgeForOwner(user.ID)
	if err != nil {
		jc.Logger.Printf("Job cleanup failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete jobs",
		})
	}

	jc.DB.Create(&models.EmailAudit{
		OwnerID: user.ID,
		Action:  "jobs_purged",
		Detail:  "bulk cleanup via API",
	})

	return c.JSON(fiber.Map{
		"deleted": deleted,
	})
}

// PauseClient suspends a client's queued jobs.
func (jc *JobController) PauseClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := utils.ParseUint(c.Params("id"))

	paused, err := jc.Scheduler.PauseClient(user.ID, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Client not found",
			})
		}
		jc.Logger.Printf("Pause failed for client %d: %v", clientID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to pause jobs",
		})
	}

	return c.JSON(fiber.Map{
		"paused": paused,
	})
}

// ResumeClient resumes a client's paused jobs.
func (jc *JobController) ResumeClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := utils.ParseUint(c.Params("id"))

	resumed, err := jc.Scheduler.ResumeClient(user.ID, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Client not found",
			})
		}
		jc.Logger.Printf("Resume failed for client %d: %v", clientID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resume jobs",
		})
	}

	return c.JSON(fiber.Map{
		"resumed": resumed,
	})
}

// GetStrategies exposes the reminder cadence catalog.
func (jc *JobController) GetStrategies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"strategies": models.StrategyIDs(),
		"default":    models.DefaultStrategyID,
	})
}
