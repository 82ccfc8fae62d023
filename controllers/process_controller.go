package controller

import (
	"log"

	"dunly/models"
	"dunly/pipeline"

	"github.com/gofiber/fiber/v2"
)

type ProcessController struct {
	Processor *pipeline.DeliveryProcessor
	Detector  *pipeline.OverdueDetector
	Logger    *log.Logger
}

func NewProcessController(processor *pipeline.DeliveryProcessor, detector *pipeline.OverdueDetector, logger *log.Logger) *ProcessController {
	return &ProcessController{
		Processor: processor,
		Detector:  detector,
		Logger:    logger,
	}
}

// ProcessJobs drains one batch of due jobs across all tenants. Invoked by
// cron-like external callers holding the processing secret. The summary is
// returned even when individual jobs failed; only a failed job-table query is
// a hard error.
func (pc *ProcessController) ProcessJobs(c *fiber.Ctx) error {
	summary, err := pc.Processor.ProcessJobs()
	if err != nil {
		pc.Logger.Printf("Processing batch aborted: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Processing aborted",
			"summary": summary,
		})
	}

	return c.JSON(fiber.Map{
		"summary": summary,
	})
}

// ProcessOwnJobs is the user-triggered variant, scoped to the caller's
// tenant. Fired by the dashboard's polling and visibility-change triggers.
func (pc *ProcessController) ProcessOwnJobs(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	summary, err := pc.Processor.ProcessJobsForOwner(user.ID)
	if err != nil {
		pc.Logger.Printf("Processing batch aborted for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Processing aborted",
			"summary": summary,
		})
	}

	return c.JSON(fiber.Map{
		"summary": summary,
	})
}

// OverdueCheck scans the caller's overdue invoices and materializes reminder
// jobs for them. Safe to call on any interval.
func (pc *ProcessController) OverdueCheck(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	checked, created, err := pc.Detector.CheckOverdueInvoices(user.ID)
	if err != nil {
		pc.Logger.Printf("Overdue check failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Overdue check failed",
		})
	}

	return c.JSON(fiber.Map{
		"checked": checked,
		"created": created,
	})
}
