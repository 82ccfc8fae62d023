package routes

import (
	"log"
	"os"

	"dunly/config"
	controller "dunly/controllers"
	"dunly/middleware"
	"dunly/pipeline"
	"dunly/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Pipeline components shared by the controllers
	scheduler := pipeline.NewScheduler(db, log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	detector := pipeline.NewOverdueDetector(db, scheduler, log.New(os.Stdout, "OVERDUE: ", log.LstdFlags))
	processor := pipeline.NewDeliveryProcessor(db, utils.NewSMTPMailer(), config.AppConfig.AppBaseURL,
		log.New(os.Stdout, "DELIVERY: ", log.LstdFlags))
	tracker := pipeline.NewTracker(db, log.New(os.Stdout, "TRACKING: ", log.LstdFlags))

	jobController := controller.NewJobController(db, scheduler, log.New(os.Stdout, "JOBS: ", log.LstdFlags))
	processController := controller.NewProcessController(processor, detector, log.New(os.Stdout, "PROCESS: ", log.LstdFlags))
	trackingController := controller.NewTrackingController(tracker, log.New(os.Stdout, "TRACKING: ", log.LstdFlags))
	paymentController := controller.NewPaymentController(db, log.New(os.Stdout, "PAYMENT: ", log.LstdFlags))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Tracking endpoints are public: they are hit by recipients' mail
	// clients and browsers, never by authenticated sessions.
	track := app.Group("/track")
	track.Get("/open/:messageID", trackingController.HandleOpenTracking)
	track.Get("/click/:messageID", trackingController.HandleClickTracking)
	track.Get("/unsubscribe/:clientID/:messageID", trackingController.HandleUnsubscribe)

	// Provider webhooks authenticate by signature, not session
	app.Post("/webhooks/payment", paymentController.HandlePaymentWebhook)

	// Batch processing for cron-like external callers; bearer secret distinct
	// from user auth
	app.Post("/jobs/process", middleware.CronProtected(), processController.ProcessJobs)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	jobs := api.Group("/jobs")
	jobs.Post("/", middleware.JobRateLimiter(), jobController.CreateJob)
	jobs.Get("/", jobController.GetJobs)
	jobs.Delete("/", jobController.CleanupJobs)
	jobs.Post("/process", processController.ProcessOwnJobs)

	api.Get("/strategies", jobController.GetStrategies)
	api.Post("/overdue-check", processController.OverdueCheck)
	api.Get("/messages/:messageID/status", trackingController.GetMessageStatus)

	clients := api.Group("/clients")
	clients.Post("/:id/pause", jobController.PauseClient)
	clients.Post("/:id/resume", jobController.ResumeClient)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("Routes initialized successfully")
}
