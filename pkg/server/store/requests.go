package store

import "github.com/halyard-advisory/halyard/pkg/model"

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	RequesterID *uint
	Status      string
}

// RequestsStore manages resource and project requests. Reviews move a
// pending request to approved or rejected; anything else is ErrInvalidState.
type RequestsStore interface {
	ListResourceRequests(filter RequestFilter) ([]model.ResourceRequest, error)
	CreateResourceRequest(r *model.ResourceRequest) error
	GetResourceRequest(id uint) (*model.ResourceRequest, error)
	ReviewResourceRequest(id, reviewerID uint, decision, note string) (*model.ResourceRequest, error)

	ListProjectRequests(filter RequestFilter) ([]model.ProjectRequest, error)
	CreateProjectRequest(r *model.ProjectRequest) error
	GetProjectRequest(id uint) (*model.ProjectRequest, error)

	// ReviewProjectRequest also creates the requester's project on approval
	// and links it to the request.
	ReviewProjectRequest(id, reviewerID uint, decision, note string) (*model.ProjectRequest, error)
}
