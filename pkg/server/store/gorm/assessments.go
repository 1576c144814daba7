package gorm

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure AssessmentsStore implements store.AssessmentsStore
var _ store.AssessmentsStore = (*AssessmentsStore)(nil)

// AssessmentsStore implements store.AssessmentsStore using GORM
type AssessmentsStore struct {
	db *gorm.DB
}

// NewAssessmentsStore creates a new AssessmentsStore
func NewAssessmentsStore(db *gorm.DB) *AssessmentsStore {
	return &AssessmentsStore{db: db}
}

// CreateSubmission inserts a scored submission and its pending document job,
// assigning a submission id if unset
func (s *AssessmentsStore) CreateSubmission(sub *model.AssessmentSubmission) (*model.DocumentJob, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	job := newPendingJob(sub.ID)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Create(job).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return job, nil
}

// GetSubmission returns a submission by id
func (s *AssessmentsStore) GetSubmission(id uuid.UUID) (*model.AssessmentSubmission, error) {
	var sub model.AssessmentSubmission
	if err := s.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}
