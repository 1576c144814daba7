package gorm

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure RequestsStore implements store.RequestsStore
var _ store.RequestsStore = (*RequestsStore)(nil)

// RequestsStore implements store.RequestsStore using GORM
type RequestsStore struct {
	db *gorm.DB
}

// NewRequestsStore creates a new RequestsStore
func NewRequestsStore(db *gorm.DB) *RequestsStore {
	return &RequestsStore{db: db}
}

func applyRequestFilter(q *gorm.DB, filter store.RequestFilter) *gorm.DB {
	if filter.RequesterID != nil {
		q = q.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q.Order("created_at desc")
}

// ListResourceRequests returns resource requests, newest first
func (s *RequestsStore) ListResourceRequests(filter store.RequestFilter) ([]model.ResourceRequest, error) {
	var requests []model.ResourceRequest
	if err := applyRequestFilter(s.db, filter).Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateResourceRequest inserts a pending resource request
func (s *RequestsStore) CreateResourceRequest(r *model.ResourceRequest) error {
	r.Status = model.RequestPending
	r.ReviewerID = nil
	r.ReviewedAt = nil
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	return translateError(s.db.Create(r).Error)
}

// GetResourceRequest returns a resource request by id
func (s *RequestsStore) GetResourceRequest(id uint) (*model.ResourceRequest, error) {
	var r model.ResourceRequest
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

// ReviewResourceRequest approves or rejects a pending resource request
func (s *RequestsStore) ReviewResourceRequest(id, reviewerID uint, decision, note string) (*model.ResourceRequest, error) {
	if !model.ValidDecision(decision) {
		return nil, fmt.Errorf("%w: unknown decision %q", store.ErrInvalidState, decision)
	}

	var r model.ResourceRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error; err != nil {
			return err
		}
		if r.Status != model.RequestPending {
			return store.ErrInvalidState
		}

		now := time.Now().UTC()
		r.Status = decision
		r.ReviewerID = &reviewerID
		r.ReviewNote = note
		r.ReviewedAt = &now
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

// ListProjectRequests returns project requests, newest first
func (s *RequestsStore) ListProjectRequests(filter store.RequestFilter) ([]model.ProjectRequest, error) {
	var requests []model.ProjectRequest
	if err := applyRequestFilter(s.db, filter).Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateProjectRequest inserts a pending project request
func (s *RequestsStore) CreateProjectRequest(r *model.ProjectRequest) error {
	r.Status = model.RequestPending
	r.ReviewerID = nil
	r.ReviewedAt = nil
	r.ProjectID = nil
	return translateError(s.db.Create(r).Error)
}

// GetProjectRequest returns a project request by id
func (s *RequestsStore) GetProjectRequest(id uint) (*model.ProjectRequest, error) {
	var r model.ProjectRequest
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

// ReviewProjectRequest approves or rejects a pending project request.
// Approval creates a planning project owned by the requester.
func (s *RequestsStore) ReviewProjectRequest(id, reviewerID uint, decision, note string) (*model.ProjectRequest, error) {
	if !model.ValidDecision(decision) {
		return nil, fmt.Errorf("%w: unknown decision %q", store.ErrInvalidState, decision)
	}

	var r model.ProjectRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error; err != nil {
			return err
		}
		if r.Status != model.RequestPending {
			return store.ErrInvalidState
		}

		if decision == model.RequestApproved {
			project := model.Project{
				OwnerID:     r.RequesterID,
				Title:       r.Title,
				Description: r.Description,
				Status:      model.ProjectPlanning,
			}
			if err := tx.Create(&project).Error; err != nil {
				return err
			}
			r.ProjectID = &project.ID
		}

		now := time.Now().UTC()
		r.Status = decision
		r.ReviewerID = &reviewerID
		r.ReviewNote = note
		r.ReviewedAt = &now
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}
