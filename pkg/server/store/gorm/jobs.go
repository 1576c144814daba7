package gorm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure JobsStore implements store.JobsStore
var _ store.JobsStore = (*JobsStore)(nil)

var runningStatuses = []string{model.JobPending, model.JobProcessing}

// JobsStore implements store.JobsStore using GORM
type JobsStore struct {
	db *gorm.DB
}

// NewJobsStore creates a new JobsStore
func NewJobsStore(db *gorm.DB) *JobsStore {
	return &JobsStore{db: db}
}

func newPendingJob(submissionID uuid.UUID) *model.DocumentJob {
	return &model.DocumentJob{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		Status:       model.JobPending,
	}
}

// GetJob returns a job by id
func (s *JobsStore) GetJob(id uuid.UUID) (*model.DocumentJob, error) {
	var job model.DocumentJob
	if err := s.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

// UpdateJobProgress records a stage while the job is running.
// Progress is clamped so it never moves backwards.
func (s *JobsStore) UpdateJobProgress(id uuid.UUID, status string, progress int, stage string) error {
	if status != model.JobPending && status != model.JobProcessing {
		return fmt.Errorf("%w: %s is not a running status", store.ErrInvalidState, status)
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress out of range: %d", progress)
	}

	return s.updateRunning(id, map[string]interface{}{
		"status":   status,
		"progress": gorm.Expr("GREATEST(progress, ?)", progress),
		"stage":    stage,
	})
}

// CompleteJob stores the document and PDF and marks the job completed
func (s *JobsStore) CompleteJob(id uuid.UUID, document string, pdf []byte) error {
	if len(pdf) == 0 {
		return errors.New("a completed job requires a PDF")
	}
	now := time.Now().UTC()
	return s.updateRunning(id, map[string]interface{}{
		"status":       model.JobCompleted,
		"progress":     100,
		"stage":        model.JobCompleted,
		"document":     document,
		"pdf":          pdf,
		"completed_at": now,
	})
}

// FailJob marks the job failed with the given message
func (s *JobsStore) FailJob(id uuid.UUID, message string) error {
	now := time.Now().UTC()
	return s.updateRunning(id, map[string]interface{}{
		"status":       model.JobFailed,
		"error":        message,
		"completed_at": now,
	})
}

func (s *JobsStore) updateRunning(id uuid.UUID, updates map[string]interface{}) error {
	res := s.db.Model(&model.DocumentJob{}).
		Where("id = ? AND status IN ?", id, runningStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Either the job is unknown or it already finished
	if _, err := s.GetJob(id); err != nil {
		return err
	}
	return store.ErrInvalidState
}
