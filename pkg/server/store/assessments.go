package store

import (
	"github.com/google/uuid"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// AssessmentsStore persists scored quiz submissions
type AssessmentsStore interface {
	// CreateSubmission inserts the submission and its pending document job
	// in one transaction, so neither exists without the other.
	CreateSubmission(s *model.AssessmentSubmission) (*model.DocumentJob, error)
	GetSubmission(id uuid.UUID) (*model.AssessmentSubmission, error)
}
