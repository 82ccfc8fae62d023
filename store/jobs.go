package store

import (
	"time"

	"dunly/models"

	"gorm.io/gorm"
)

// JobStore is the single seam through which follow-up jobs are created and
// mutated. Status transitions out of "queued" go through conditional updates
// keyed on the current status so overlapping processor invocations cannot
// claim the same job twice.
type JobStore struct {
	DB *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{DB: db}
}

func (s *JobStore) Create(job *models.FollowUpJob) error {
	return s.DB.Create(job).Error
}

// ListByOwner returns a tenant's jobs, newest first. An empty status lists
// every status.
func (s *JobStore) ListByOwner(ownerID uint, status string, limit int) ([]models.FollowUpJob, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.DB.Where("owner_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []models.FollowUpJob
	err := q.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// StepExists reports whether any job, in any status, already covers the given
// cadence step of an invoice. Sent and failed steps count: a step is never
// recreated once a job for it has existed.
func (s *JobStore) StepExists(ownerID, invoiceID uint, strategyID string, step int) (bool, error) {
	var count int64
	err := s.DB.Model(&models.FollowUpJob{}).
		Where("owner_id = ? AND invoice_id = ? AND kind = ? AND strategy_id = ? AND strategy_step = ?",
			ownerID, invoiceID, models.JobKindPaymentReminder, strategyID, step).
		Count(&count).Error
	return count > 0, err
}

// DueJobs selects queued jobs whose scheduled time has passed, oldest first,
// across all tenants. Used by the cron-triggered processor.
func (s *JobStore) DueJobs(limit int) ([]models.FollowUpJob, error) {
	var jobs []models.FollowUpJob
	err := s.DB.
		Where("status = ? AND scheduled_at <= ?", models.JobStatusQueued, time.Now()).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// DueJobsForOwner is the tenant-scoped variant used by user-triggered runs.
func (s *JobStore) DueJobsForOwner(ownerID uint, limit int) ([]models.FollowUpJob, error) {
	var jobs []models.FollowUpJob
	err := s.DB.
		Where("owner_id = ? AND status = ? AND scheduled_at <= ?", ownerID, models.JobStatusQueued, time.Now()).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim atomically moves a job from queued to processing. Returns false when
// another processor won the race; the caller must then skip the job.
func (s *JobStore) Claim(jobID uint) (bool, error) {
	res := s.DB.Model(&models.FollowUpJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusQueued).
		Update("status", models.JobStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSent finalizes a claimed job. Conditional on the processing status so a
// job can never end up sent without having been claimed first.
func (s *JobStore) MarkSent(jobID uint, messageID string) error {
	return s.DB.Model(&models.FollowUpJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusSent,
			"sent_at":    time.Now(),
			"message_id": messageID,
		}).Error
}

// MarkFailed records a transport failure. Failed jobs are never retried in
// place; a fresh scheduling call is the only way to try again.
func (s *JobStore) MarkFailed(jobID uint, sendErr string) error {
	return s.DB.Model(&models.FollowUpJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusFailed,
			"last_error": sendErr,
		}).Error
}

// Cancel drops a claimed job without sending, e.g. when its invoice was paid
// between scheduling and delivery.
func (s *JobStore) Cancel(jobID uint, reason string) error {
	return s.DB.Model(&models.FollowUpJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusCanceled,
			"last_error": reason,
		}).Error
}

// PauseForClient moves a client's queued jobs to paused. Sent and failed jobs
// are history and stay untouched.
func (s *JobStore) PauseForClient(ownerID, clientID uint) (int64, error) {
	res := s.DB.Model(&models.FollowUpJob{}).
		Where("owner_id = ? AND client_id = ? AND status = ?", ownerID, clientID, models.JobStatusQueued).
		Update("status", models.JobStatusPaused)
	return res.RowsAffected, res.Error
}

// ResumeForClient moves a client's paused jobs back to queued.
func (s *JobStore) ResumeForClient(ownerID, clientID uint) (int64, error) {
	res := s.DB.Model(&models.FollowUpJob{}).
		Where("owner_id = ? AND client_id = ? AND status = ?", ownerID, clientID, models.JobStatusPaused).
		Update("status", models.JobStatusQueued)
	return res.RowsAffected, res.Error
}

// PurgeForOwner deletes all of a tenant's jobs. Administrative escape hatch,
// not part of the steady-state lifecycle.
func (s *JobStore) PurgeForOwner(ownerID uint) (int64, error) {
	res := s.DB.Unscoped().
		Where("owner_id = ?", ownerID).
		Delete(&models.FollowUpJob{})
	return res.RowsAffected, res.Error
}
