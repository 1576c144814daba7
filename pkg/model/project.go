package model

import (
	"math"
	"time"
)

const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

// ProjectStatuses lists the valid project statuses in lifecycle order
var ProjectStatuses = []string{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted}

// Project is a client engagement tracked by the CRM
type Project struct {
	ID          uint          `gorm:"column:id;primaryKey" json:"id"`
	OwnerID     uint          `gorm:"column:owner_id" json:"owner_id"`
	Title       string        `gorm:"column:title" json:"title"`
	ClientName  string        `gorm:"column:client_name" json:"client_name"`
	Description string        `gorm:"column:description" json:"description"`
	Status      string        `gorm:"column:status" json:"status"`
	Progress    int           `gorm:"column:progress" json:"progress"`
	StartDate   *time.Time    `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	DueDate     *time.Time    `gorm:"column:due_date;type:date" json:"due_date,omitempty"`
	Steps       []ProjectStep `gorm:"foreignKey:ProjectID" json:"steps,omitempty"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectStep is a checklist item belonging to exactly one project
type ProjectStep struct {
	ID          uint       `gorm:"column:id;primaryKey" json:"id"`
	ProjectID   uint       `gorm:"column:project_id" json:"project_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Position    int        `gorm:"column:position" json:"position"`
	Completed   bool       `gorm:"column:completed" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ProjectStep) TableName() string {
	return "project_steps"
}

// ValidProjectStatus reports whether status is a known project status
func ValidProjectStatus(status string) bool {
	for _, s := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ProgressFor returns the completion percentage for completed of total
// steps, rounded half away from zero. A project without steps is at 0.
func ProgressFor(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// ComputeProgress derives the project's progress from its loaded steps
func (p *Project) ComputeProgress() int {
	completed := 0
	for _, s := range p.Steps {
		if s.Completed {
			completed++
		}
	}
	return ProgressFor(completed, len(p.Steps))
}
