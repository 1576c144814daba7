package store

import (
	"github.com/google/uuid"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// JobsStore manages document job status rows.
// Progress never decreases and finished jobs are never updated again.
type JobsStore interface {
	GetJob(id uuid.UUID) (*model.DocumentJob, error)

	// UpdateJobProgress records a stage while the job is still running.
	UpdateJobProgress(id uuid.UUID, status string, progress int, stage string) error

	// CompleteJob stores the finished document and PDF at 100%.
	CompleteJob(id uuid.UUID, document string, pdf []byte) error

	// FailJob marks the job failed, leaving its progress untouched.
	FailJob(id uuid.UUID, message string) error
}
