package controller

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"dunly/config"
	"dunly/middleware"
	"dunly/models"
	"dunly/pipeline"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type stubMailer struct {
	sent int
	err  error
}

func (m *stubMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	return nil
}

func newProcessApp(db *gorm.DB, user *models.User, mailer *stubMailer) *fiber.App {
	app := fiber.New()
	processor := pipeline.NewDeliveryProcessor(db, mailer, "http://app.test", discardLogger())
	scheduler := pipeline.NewScheduler(db, discardLogger())
	detector := pipeline.NewOverdueDetector(db, scheduler, discardLogger())
	pc := NewProcessController(processor, detector, discardLogger())

	app.Post("/jobs/process", middleware.CronProtected(), pc.ProcessJobs)
	api := app.Group("/api/v1", asUser(user))
	api.Post("/jobs/process", pc.ProcessOwnJobs)
	api.Post("/overdue-check", pc.OverdueCheck)
	return app
}

func TestCronEndpointRequiresSecret(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@acme.test")
	app := newProcessApp(db, owner, &stubMailer{})
	config.AppConfig.CronSecret = "cron-secret"

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic cron-secret", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer cron-secret", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/jobs/process", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestCronEndpointFailsClosedWithoutConfig(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@acme.test")
	app := newProcessApp(db, owner, &stubMailer{})
	config.AppConfig.CronSecret = ""

	req := httptest.NewRequest("POST", "/jobs/process", nil)
	req.Header.Set("Authorization", "Bearer anything")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 when unconfigured, got %d", resp.StatusCode)
	}
}

func TestProcessOwnJobsReturnsSummary(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")
	mailer := &stubMailer{}
	app := newProcessApp(db, owner, mailer)

	scheduler := pipeline.NewScheduler(db, discardLogger())
	if _, err := scheduler.ScheduleFollowUp(owner.ID, client.ID, 0, "", ""); err != nil {
		t.Fatalf("scheduling errored: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/jobs/process", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed struct {
		Summary pipeline.Summary `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if parsed.Summary.Processed != 1 || parsed.Summary.Sent != 1 {
		t.Fatalf("unexpected summary: %+v", parsed.Summary)
	}
	if mailer.sent != 1 {
		t.Fatalf("expected 1 delivery, got %d", mailer.sent)
	}
}

func TestProcessReturnsSummaryDespiteSendFailures(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")
	mailer := &stubMailer{err: errors.New("smtp 421: service not available")}
	app := newProcessApp(db, owner, mailer)
	config.AppConfig.CronSecret = "cron-secret"

	scheduler := pipeline.NewScheduler(db, discardLogger())
	scheduler.ScheduleFollowUp(owner.ID, client.ID, 0, "", "")

	req := httptest.NewRequest("POST", "/jobs/process", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("send failures are per-job, not batch errors; got %d", resp.StatusCode)
	}

	var parsed struct {
		Summary pipeline.Summary `json:"summary"`
	}
	json.NewDecoder(resp.Body).Decode(&parsed)
	if parsed.Summary.Failed != 1 || parsed.Summary.Sent != 0 {
		t.Fatalf("unexpected summary: %+v", parsed.Summary)
	}
}

func TestOverdueCheckEndpoint(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@acme.test")
	client := seedTestClient(t, db, owner.ID, "jordan@example.test")
	seedTestInvoice(t, db, owner.ID, client.ID, models.InvoiceStatusOpen, time.Now().AddDate(0, 0, -5))
	app := newProcessApp(db, owner, &stubMailer{})

	req := httptest.NewRequest("POST", "/api/v1/overdue-check", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed struct {
		Checked int `json:"checked"`
		Created int `json:"created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if parsed.Checked != 1 || parsed.Created == 0 {
		t.Fatalf("unexpected result: %+v", parsed)
	}
}
