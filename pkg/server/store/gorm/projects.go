package gorm

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure ProjectsStore implements store.ProjectsStore
var _ store.ProjectsStore = (*ProjectsStore)(nil)

// ProjectsStore implements store.ProjectsStore using GORM
type ProjectsStore struct {
	db *gorm.DB
}

// NewProjectsStore creates a new ProjectsStore
func NewProjectsStore(db *gorm.DB) *ProjectsStore {
	return &ProjectsStore{db: db}
}

// ListProjects returns projects without their steps, newest first
func (s *ProjectsStore) ListProjects(filter store.ProjectFilter) ([]model.Project, error) {
	q := s.db.Order("created_at desc")
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var projects []model.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns a project with its steps ordered by position
func (s *ProjectsStore) GetProject(id uint) (*model.Project, error) {
	var project model.Project
	err := s.db.
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&project, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &project, nil
}

// CreateProject inserts a project together with any initial steps
func (s *ProjectsStore) CreateProject(p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}
	for i := range p.Steps {
		p.Steps[i].Position = i + 1
	}
	p.Progress = p.ComputeProgress()
	return translateError(s.db.Create(p).Error)
}

// UpdateProject applies a patch and returns the refreshed project
func (s *ProjectsStore) UpdateProject(id uint, patch store.ProjectPatch) (*model.Project, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.ClientName != nil {
		updates["client_name"] = *patch.ClientName
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.OwnerID != nil {
		updates["owner_id"] = *patch.OwnerID
	}
	if patch.StartDate != nil {
		updates["start_date"] = *patch.StartDate
	}
	if patch.DueDate != nil {
		updates["due_date"] = *patch.DueDate
	}

	if len(updates) > 0 {
		res := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.GetProject(id)
}

// DeleteProject removes a project and, by cascade, its steps
func (s *ProjectsStore) DeleteProject(id uint) error {
	res := s.db.Delete(&model.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddStep appends a step to the project
func (s *ProjectsStore) AddStep(projectID uint, title string) (*model.Project, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		var maxPosition int
		err := tx.Model(&model.ProjectStep{}).
			Select("COALESCE(MAX(position), 0)").
			Where("project_id = ?", projectID).
			Scan(&maxPosition).Error
		if err != nil {
			return err
		}

		step := model.ProjectStep{ProjectID: projectID, Title: title, Position: maxPosition + 1}
		if err := tx.Create(&step).Error; err != nil {
			return err
		}
		return recomputeProgress(tx, projectID)
	})
	if err != nil {
		return nil, translateError(err)
	}
	return s.GetProject(projectID)
}

// SetStepCompleted marks a step done or reopens it
func (s *ProjectsStore) SetStepCompleted(projectID, stepID uint, completed bool) (*model.Project, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		var step model.ProjectStep
		if err := tx.Where("id = ? AND project_id = ?", stepID, projectID).First(&step).Error; err != nil {
			return err
		}

		if step.Completed != completed {
			var completedAt *time.Time
			if completed {
				now := time.Now().UTC()
				completedAt = &now
			}
			err := tx.Model(&model.ProjectStep{}).Where("id = ?", step.ID).Updates(map[string]interface{}{
				"completed":    completed,
				"completed_at": completedAt,
			}).Error
			if err != nil {
				return err
			}
		}
		return recomputeProgress(tx, projectID)
	})
	if err != nil {
		return nil, translateError(err)
	}
	return s.GetProject(projectID)
}

// DeleteStep removes a step from the project
func (s *ProjectsStore) DeleteStep(projectID, stepID uint) (*model.Project, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND project_id = ?", stepID, projectID).Delete(&model.ProjectStep{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return recomputeProgress(tx, projectID)
	})
	if err != nil {
		return nil, translateError(err)
	}
	return s.GetProject(projectID)
}

// lockProject serializes step mutations on one project
func lockProject(tx *gorm.DB, projectID uint) error {
	var project model.Project
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&project, projectID).Error
}

// recomputeProgress derives the project's progress from its current steps
func recomputeProgress(tx *gorm.DB, projectID uint) error {
	var counts struct {
		Total     int
		Completed int
	}
	err := tx.Model(&model.ProjectStep{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE completed) AS completed").
		Where("project_id = ?", projectID).
		Scan(&counts).Error
	if err != nil {
		return err
	}

	progress := model.ProgressFor(counts.Completed, counts.Total)
	return tx.Model(&model.Project{}).Where("id = ?", projectID).Update("progress", progress).Error
}
