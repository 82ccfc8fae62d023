package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"dunly/config"
	"dunly/models"
	"dunly/pipeline"
	"dunly/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TrackingController struct {
	Tracker *pipeline.Tracker
	Logger  *log.Logger
}

func NewTrackingController(tracker *pipeline.Tracker, logger *log.Logger) *TrackingController {
	return &TrackingController{
		Tracker: tracker,
		Logger:  logger,
	}
}

// HandleOpenTracking serves the 1x1 pixel. The GIF is returned no matter
// what: a failed tracking write degrades to "no record", never to a broken
// image in the recipient's mail client.
func (tc *TrackingController) HandleOpenTracking(c *fiber.Ctx) error {
	messageID := strings.TrimSuffix(c.Params("messageID"), ".gif")

	if err := tc.Tracker.RecordEvent(messageID, models.TrackingEventOpened, map[string]interface{}{
		"timestamp": time.Now().Unix(),
		"source":    "pixel",
	}, c.Get("User-Agent"), c.IP()); err != nil {
		tc.Logger.Printf("Open tracking failed for message %s: %v", messageID, err)
	}

	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	return c.Type("gif").Send(transparentPixel())
}

// HandleClickTracking records the click and redirects. The redirect happens
// regardless of whether the event was recorded.
func (tc *TrackingController) HandleClickTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	targetURL := c.Query("url")

	if err := tc.Tracker.RecordEvent(messageID, models.TrackingEventClicked, map[string]interface{}{
		"timestamp": time.Now().Unix(),
		"url":       targetURL,
	}, c.Get("User-Agent"), c.IP()); err != nil {
		tc.Logger.Printf("Click tracking failed for message %s: %v", messageID, err)
	}

	if targetURL == "" {
		targetURL = config.AppConfig.AppBaseURL
	}
	return c.Redirect(targetURL, fiber.StatusFound)
}

// HandleUnsubscribe records the complaint, suppresses the client and lands
// the visitor on a confirmation page.
func (tc *TrackingController) HandleUnsubscribe(c *fiber.Ctx) error {
	clientID := utils.ParseUint(c.Params("clientID"))
	messageID := c.Params("messageID")

	if err := tc.Tracker.RecordUnsubscribe(0, clientID, messageID, c.Get("User-Agent"), c.IP()); err != nil {
		tc.Logger.Printf("Unsubscribe failed for client %d: %v", clientID, err)
		return c.Redirect(config.AppConfig.AppBaseURL+"/unsubscribe-error", fiber.StatusFound)
	}

	return c.Redirect(config.AppConfig.AppBaseURL+"/unsubscribed", fiber.StatusFound)
}

// GetMessageStatus returns the aggregate engagement for one of the caller's
// sent messages.
func (tc *TrackingController) GetMessageStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID := c.Params("messageID")

	status, err := tc.Tracker.MessageStatus(user.ID, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Message not found",
			})
		}
		tc.Logger.Printf("Message status lookup failed for %s: %v", messageID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch message status",
		})
	}

	return c.JSON(status)
}

func transparentPixel() []byte {
	// 1x1 transparent GIF
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
