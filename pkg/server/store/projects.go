package store

import (
	"time"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// ProjectFilter narrows ListProjects. Zero values match everything.
type ProjectFilter struct {
	OwnerID *uint
	Status  string
}

// ProjectPatch holds the mutable fields of a project; nil fields are kept
type ProjectPatch struct {
	Title       *string
	ClientName  *string
	Description *string
	Status      *string
	OwnerID     *uint
	StartDate   *time.Time
	DueDate     *time.Time
}

// ProjectsStore manages projects and their steps. Every step mutation
// recomputes the owning project's progress in the same transaction.
type ProjectsStore interface {
	ListProjects(filter ProjectFilter) ([]model.Project, error)

	// GetProject returns the project with its steps ordered by position.
	GetProject(id uint) (*model.Project, error)

	CreateProject(p *model.Project) error

	UpdateProject(id uint, patch ProjectPatch) (*model.Project, error)

	DeleteProject(id uint) error

	// AddStep appends a step after the current last position.
	AddStep(projectID uint, title string) (*model.Project, error)

	// SetStepCompleted marks a step done or reopens it.
	// Returns ErrNotFound when the step doesn't belong to the project.
	SetStepCompleted(projectID, stepID uint, completed bool) (*model.Project, error)

	DeleteStep(projectID, stepID uint) (*model.Project, error)
}
