package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// DocumentJob is the status row of a background report generation.
// Clients poll it; the runner is the only writer.
type DocumentJob struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SubmissionID uuid.UUID  `gorm:"column:submission_id;type:uuid"`
	Status       string     `gorm:"column:status"`
	Progress     int        `gorm:"column:progress"`
	Stage        string     `gorm:"column:stage"`
	Error        string     `gorm:"column:error"`
	Document     string     `gorm:"column:document"`
	PDF          []byte     `gorm:"column:pdf;type:bytea"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
}

func (DocumentJob) TableName() string {
	return "document_jobs"
}

// Finished reports whether the job reached a terminal status
func (j *DocumentJob) Finished() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// HasDocument reports whether the rendered PDF can be downloaded
func (j *DocumentJob) HasDocument() bool {
	return j.Status == JobCompleted && len(j.PDF) > 0
}
