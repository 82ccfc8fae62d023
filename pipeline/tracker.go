package pipeline

import (
	"fmt"
	"log"
	"time"

	"dunly/models"
	"dunly/utils"

	"gorm.io/gorm"
)

// Tracker correlates engagement events back onto sent messages. Every method
// is best-effort from the HTTP handler's point of view: handlers serve their
// pixel/redirect regardless of what the tracker returns.
type Tracker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTracker(db *gorm.DB, logger *log.Logger) *Tracker {
	return &Tracker{DB: db, Logger: logger}
}

// RecordEvent appends an engagement event for a message. Repeat opens and
// clicks are kept as separate rows. Unknown message ids are silently ignored;
// a pixel load for a message we never sent is not an error worth surfacing.
func (t *Tracker) RecordEvent(messageID, event string, eventData map[string]interface{}, userAgent, ipAddress string) error {
	var job models.FollowUpJob
	if err := t.DB.Where("message_id = ?", messageID).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		t.Logger.Printf("Tracking lookup failed for message %s: %v", messageID, err)
		return err
	}

	if eventData == nil {
		eventData = map[string]interface{}{}
	}
	if _, ok := eventData["timestamp"]; !ok {
		eventData["timestamp"] = time.Now().Unix()
	}

	record := models.TrackingEvent{
		MessageID: messageID,
		OwnerID:   job.OwnerID,
		Event:     event,
		EventData: eventData,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if job.ClientID != nil {
		record.ClientID = *job.ClientID
	}

	if err := t.DB.Create(&record).Error; err != nil {
		t.Logger.Printf("Failed to record %s event for message %s: %v", event, messageID, err)
		return err
	}
	return nil
}

// RecordUnsubscribe records a complained event and flips the client's
// suppression flag. Idempotent: a second unsubscribe for the same message is
// a no-op, not a second row.
func (t *Tracker) RecordUnsubscribe(ownerHint, clientID uint, messageID, userAgent, ipAddress string) error {
	var client models.Client
	q := t.DB.Where("id = ?", clientID)
	if ownerHint != 0 {
		q = q.Where("owner_id = ?", ownerHint)
	}
	if err := q.First(&client).Error; err != nil {
		return fmt.Errorf("client lookup failed: %w", err)
	}

	var existing int64
	if err := t.DB.Model(&models.TrackingEvent{}).
		Where("message_id = ? AND client_id = ? AND event = ?", messageID, client.ID, models.TrackingEventComplained).
		Count(&existing).Error; err != nil {
		return err
	}

	if existing == 0 {
		record := models.TrackingEvent{
			MessageID: messageID,
			OwnerID:   client.OwnerID,
			ClientID:  client.ID,
			Event:     models.TrackingEventComplained,
			EventData: map[string]interface{}{
				"timestamp": time.Now().Unix(),
				"source":    "unsubscribe_link",
			},
			UserAgent: userAgent,
			IPAddress: ipAddress,
		}
		if err := t.DB.Create(&record).Error; err != nil {
			return err
		}
	}

	if !client.IsUnsubscribed {
		if err := t.DB.Model(&client).Updates(map[string]interface{}{
			"is_unsubscribed": true,
			"unsubscribed_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		utils.LogEvent("client_unsubscribed", map[string]interface{}{
			"client_id":  client.ID,
			"owner_id":   client.OwnerID,
			"message_id": messageID,
		})
	}

	return nil
}

// EngagementStatus summarizes what happened to a sent message.
type EngagementStatus struct {
	MessageID  string     `json:"message_id"`
	Opens      int64      `json:"opens"`
	Clicks     int64      `json:"clicks"`
	Complained bool       `json:"complained"`
	FirstOpen  *time.Time `json:"first_open,omitempty"`
}

// MessageStatus aggregates the tracking rows for one message, tenant-scoped.
func (t *Tracker) MessageStatus(ownerID uint, messageID string) (EngagementStatus, error) {
	status := EngagementStatus{MessageID: messageID}

	var job models.FollowUpJob
	if err := t.DB.
		Where("owner_id = ? AND message_id = ?", ownerID, messageID).
		First(&job).Error; err != nil {
		return status, err
	}

	var events []models.TrackingEvent
	if err := t.DB.
		Where("owner_id = ? AND message_id = ?", ownerID, messageID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return status, err
	}

	for _, ev := range events {
		switch ev.Event {
		case models.TrackingEventOpened:
			status.Opens++
			if status.FirstOpen == nil {
				created := ev.CreatedAt
				status.FirstOpen = &created
			}
		case models.TrackingEventClicked:
			status.Clicks++
		case models.TrackingEventComplained:
			status.Complained = true
		}
	}

	return status, nil
}
