package model

import "time"

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ResourceTypes lists the kinds of resources a client may request
var ResourceTypes = []string{"staff", "software", "hardware", "training", "other"}

// ResourceRequest asks for staff, tooling or training for a project
type ResourceRequest struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	ProjectID    *uint      `gorm:"column:project_id" json:"project_id,omitempty"`
	RequesterID  uint       `gorm:"column:requester_id" json:"requester_id"`
	ResourceType string     `gorm:"column:resource_type" json:"resource_type"`
	Description  string     `gorm:"column:description" json:"description"`
	Quantity     int        `gorm:"column:quantity" json:"quantity"`
	Status       string     `gorm:"column:status" json:"status"`
	ReviewerID   *uint      `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	ReviewNote   string     `gorm:"column:review_note" json:"review_note"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ResourceRequest) TableName() string {
	return "resource_requests"
}

// ProjectRequest is a client's proposal for a new engagement
type ProjectRequest struct {
	ID          uint       `gorm:"column:id;primaryKey" json:"id"`
	RequesterID uint       `gorm:"column:requester_id" json:"requester_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Description string     `gorm:"column:description" json:"description"`
	BudgetRange string     `gorm:"column:budget_range" json:"budget_range"`
	Timeline    string     `gorm:"column:timeline" json:"timeline"`
	Status      string     `gorm:"column:status" json:"status"`
	ReviewerID  *uint      `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	ReviewNote  string     `gorm:"column:review_note" json:"review_note"`
	ReviewedAt  *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ProjectID   *uint      `gorm:"column:project_id" json:"project_id,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ProjectRequest) TableName() string {
	return "project_requests"
}

// ValidDecision reports whether decision is a terminal review outcome
func ValidDecision(decision string) bool {
	return decision == RequestApproved || decision == RequestRejected
}

// ValidResourceType reports whether t is a known resource type
func ValidResourceType(t string) bool {
	for _, rt := range ResourceTypes {
		if rt == t {
			return true
		}
	}
	return false
}
