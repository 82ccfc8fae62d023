package controller

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"dunly/config"
	"dunly/models"
	"dunly/pipeline"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func newTrackingApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	tc := NewTrackingController(pipeline.NewTracker(db, discardLogger()), discardLogger())
	track := app.Group("/track")
	track.Get("/open/:messageID", tc.HandleOpenTracking)
	track.Get("/click/:messageID", tc.HandleClickTracking)
	track.Get("/unsubscribe/:clientID/:messageID", tc.HandleUnsubscribe)
	return app
}

func TestOpenTrackingAlwaysServesPixel(t *testing.T) {
	db := newTestDB(t)
	app := newTrackingApp(db)

	// Message id nobody ever sent
	req := httptest.NewRequest("GET", "/track/open/ghost-message.gif", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/gif" {
		t.Fatalf("expected image/gif, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 43 {
		t.Fatalf("expected 43-byte GIF, got %d bytes", len(body))
	}
	if resp.Header.Get("Cache-Control") == "" {
		t.Fatal("pixel response must disable caching")
	}

	var count int64
	db.Model(&models.TrackingEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("event recorded for a message that was never sent")
	}
}

func TestClickTrackingRedirects(t *testing.T) {
	db := newTestDB(t)
	app := newTrackingApp(db)

	req := httptest.NewRequest("GET", "/track/click/ghost-message?url=https%3A%2F%2Fpay.example.test%2Finv", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://pay.example.test/inv" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestClickTrackingEmptyURLFallsBack(t *testing.T) {
	db := newTestDB(t)
	app := newTrackingApp(db)
	config.AppConfig.AppBaseURL = "http://app.test"

	req := httptest.NewRequest("GET", "/track/click/ghost-message", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://app.test" {
		t.Fatalf("unexpected fallback target: %s", loc)
	}
}

func TestUnsubscribeSuppressesClient(t *testing.T) {
	db := newTestDB(t)
	app := newTrackingApp(db)
	config.AppConfig.AppBaseURL = "http://app.test"

	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")

	req := httptest.NewRequest("GET", fmt.Sprintf("/track/unsubscribe/%d/any-message", client.ID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://app.test/unsubscribed" {
		t.Fatalf("unexpected redirect: %s", loc)
	}

	var fresh models.Client
	db.First(&fresh, client.ID)
	if !fresh.IsUnsubscribed {
		t.Fatal("client not suppressed after unsubscribe")
	}
}

func TestUnsubscribeUnknownClientRedirectsToError(t *testing.T) {
	db := newTestDB(t)
	app := newTrackingApp(db)
	config.AppConfig.AppBaseURL = "http://app.test"

	req := httptest.NewRequest("GET", "/track/unsubscribe/999/any-message", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://app.test/unsubscribe-error" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}
