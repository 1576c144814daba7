package endpoints

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/audit"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/identity"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const notifyTimeout = 10 * time.Second

// ResourceRequestBody asks for resources, optionally against a project
type ResourceRequestBody struct {
	ProjectID    *uint  `json:"project_id"`
	ResourceType string `json:"resource_type"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
}

func (b ResourceRequestBody) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ProjectID, validation.NilOrNotEmpty),
		validation.Field(&b.ResourceType, validation.Required, validation.In(stringsToInterfaces(model.ResourceTypes)...)),
		validation.Field(&b.Description, validation.Required, validation.Length(1, 4000)),
		validation.Field(&b.Quantity, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

// ProjectProposalBody proposes a new engagement
type ProjectProposalBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	BudgetRange string `json:"budget_range"`
	Timeline    string `json:"timeline"`
}

func (b ProjectProposalBody) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.Description, validation.Required, validation.Length(1, 4000)),
		validation.Field(&b.BudgetRange, validation.Length(0, 100)),
		validation.Field(&b.Timeline, validation.Length(0, 100)),
	)
}

// ReviewBody is an admin decision on a pending request
type ReviewBody struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

func (b ReviewBody) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Decision, validation.Required, validation.In(model.RequestApproved, model.RequestRejected)),
		validation.Field(&b.Note, validation.Length(0, 2000)),
	)
}

// reviewNotifier emails requesters about review outcomes
type reviewNotifier struct {
	users   store.UsersStore
	mailer  email.Mailer
	siteURL string
	log     logrus.FieldLogger
}

func (n reviewNotifier) notify(ctx context.Context, requesterID uint, kind, title, decision, note string) {
	if n.mailer == nil {
		return
	}
	log := n.log.WithFields(logrus.Fields{"requester_id": requesterID, "kind": kind})

	user, err := n.users.GetUser(requesterID)
	if err != nil {
		log.WithError(err).Warn("unable to look up requester for review email")
		return
	}
	msg, err := email.RequestReviewed(user.Email, kind, title, decision, note, strings.TrimSuffix(n.siteURL, "/")+"/portal")
	if err != nil {
		log.WithError(err).Error("failed to render review email")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := n.mailer.Send(ctx, msg); err != nil {
		log.WithError(err).Error("failed to send review email")
	}
}

// RegisterRequestsEndpoints registers resource and project request endpoints
func RegisterRequestsEndpoints(s *server.Server) {
	requests := s.RequestsStore
	log := s.Log
	notifier := reviewNotifier{users: s.UsersStore, mailer: s.Mailer, siteURL: s.Config.SiteURL, log: log}

	s.Router.Handle("/api/resource-requests", s.Protected(handleListResourceRequests(requests, log))).Methods("GET")
	s.Router.Handle("/api/resource-requests", s.Protected(handleCreateResourceRequest(requests, s.ProjectsStore, log))).Methods("POST")
	s.Router.Handle("/api/resource-requests/{id}", s.Protected(handleGetResourceRequest(requests, log))).Methods("GET")
	s.Router.Handle("/api/resource-requests/{id}/review", s.AdminOnly(handleReviewResourceRequest(requests, notifier, log))).Methods("POST")

	s.Router.Handle("/api/project-requests", s.Protected(handleListProjectRequests(requests, log))).Methods("GET")
	s.Router.Handle("/api/project-requests", s.Protected(handleCreateProjectRequest(requests, log))).Methods("POST")
	s.Router.Handle("/api/project-requests/{id}", s.Protected(handleGetProjectRequest(requests, log))).Methods("GET")
	s.Router.Handle("/api/project-requests/{id}/review", s.AdminOnly(handleReviewProjectRequest(requests, notifier, log))).Methods("POST")
}

// requestFilter scopes clients to their own requests; admins may filter by
// requester_id and status.
func requestFilter(r *http.Request, id *identity.Identity) (store.RequestFilter, error) {
	filter := store.RequestFilter{Status: r.URL.Query().Get("status")}
	switch filter.Status {
	case "", model.RequestPending, model.RequestApproved, model.RequestRejected:
	default:
		return filter, errors.New("unknown request status " + strconv.Quote(filter.Status))
	}

	if !id.IsAdmin() {
		filter.RequesterID = &id.UserID
		return filter, nil
	}
	if raw := r.URL.Query().Get("requester_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, errors.New("requester_id must be a positive integer")
		}
		requester := uint(v)
		filter.RequesterID = &requester
	}
	return filter, nil
}

func handleListResourceRequests(requests store.RequestsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := requestFilter(r, currentIdentity(r))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		list, err := requests.ListResourceRequests(filter)
		if err != nil {
			respondStoreError(w, log, err, "resource request")
			return
		}
		if list == nil {
			list = []model.ResourceRequest{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"requests": list})
	}
}

func handleCreateResourceRequest(requests store.RequestsStore, projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var body ResourceRequestBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Description = strings.TrimSpace(body.Description)
		if err := body.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}
		if body.ProjectID != nil {
			if _, err := visibleProject(projects, id, *body.ProjectID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					httputil.RespondValidation(w, validation.Errors{"project_id": errors.New("no such project")})
					return
				}
				respondStoreError(w, log, err, "project")
				return
			}
		}

		req := &model.ResourceRequest{
			ProjectID:    body.ProjectID,
			RequesterID:  id.UserID,
			ResourceType: body.ResourceType,
			Description:  body.Description,
			Quantity:     body.Quantity,
		}
		if err := requests.CreateResourceRequest(req); err != nil {
			respondStoreError(w, log, err, "resource request")
			return
		}
		log.WithFields(logrus.Fields{"request_id": req.ID, "requester_id": id.UserID}).Info("resource request created")
		respondWithJSON(w, http.StatusCreated, req)
	}
}

func handleGetResourceRequest(requests store.RequestsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "resource request not found")
			return
		}
		req, err := requests.GetResourceRequest(requestID)
		if err == nil && !currentIdentity(r).CanAccess(req.RequesterID) {
			err = store.ErrNotFound
		}
		if err != nil {
			respondStoreError(w, log, err, "resource request")
			return
		}
		respondWithJSON(w, http.StatusOK, req)
	}
}

func decodeReview(w http.ResponseWriter, r *http.Request) (*ReviewBody, bool) {
	var body ReviewBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	body.Decision = strings.ToLower(strings.TrimSpace(body.Decision))
	body.Note = strings.TrimSpace(body.Note)
	if err := body.Validate(); err != nil {
		httputil.RespondValidation(w, err)
		return nil, false
	}
	return &body, true
}

func handleReviewResourceRequest(requests store.RequestsStore, notifier reviewNotifier, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		requestID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "resource request not found")
			return
		}
		body, ok := decodeReview(w, r)
		if !ok {
			return
		}

		req, err := requests.ReviewResourceRequest(requestID, id.UserID, body.Decision, body.Note)
		audit.Log(audit.ReviewEvent{
			UserID:       id.Email,
			ClientIP:     clientIP(r),
			Kind:         "resource-request",
			RequestID:    requestID,
			Decision:     body.Decision,
			Success:      err == nil,
			ErrorMessage: errString(err),
		})
		if err != nil {
			respondStoreError(w, log, err, "resource request")
			return
		}

		notifier.notify(r.Context(), req.RequesterID, "resource", req.ResourceType, req.Status, req.ReviewNote)
		respondWithJSON(w, http.StatusOK, req)
	}
}

func handleListProjectRequests(requests store.RequestsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := requestFilter(r, currentIdentity(r))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		list, err := requests.ListProjectRequests(filter)
		if err != nil {
			respondStoreError(w, log, err, "project request")
			return
		}
		if list == nil {
			list = []model.ProjectRequest{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"requests": list})
	}
}

func handleCreateProjectRequest(requests store.RequestsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var body ProjectProposalBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Title = strings.TrimSpace(body.Title)
		body.Description = strings.TrimSpace(body.Description)
		if err := body.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}

		req := &model.ProjectRequest{
			RequesterID: id.UserID,
			Title:       body.Title,
			Description: body.Description,
			BudgetRange: strings.TrimSpace(body.BudgetRange),
			Timeline:    strings.TrimSpace(body.Timeline),
		}
		if err := requests.CreateProjectRequest(req); err != nil {
			respondStoreError(w, log, err, "project request")
			return
		}
		log.WithFields(logrus.Fields{"request_id": req.ID, "requester_id": id.UserID}).Info("project request created")
		respondWithJSON(w, http.StatusCreated, req)
	}
}

func handleGetProjectRequest(requests store.RequestsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project request not found")
			return
		}
		req, err := requests.GetProjectRequest(requestID)
		if err == nil && !currentIdentity(r).CanAccess(req.RequesterID) {
			err = store.ErrNotFound
		}
		if err != nil {
			respondStoreError(w, log, err, "project request")
			return
		}
		respondWithJSON(w, http.StatusOK, req)
	}
}

func handleReviewProjectRequest(requests store.RequestsStore, notifier reviewNotifier, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		requestID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project request not found")
			return
		}
		body, ok := decodeReview(w, r)
		if !ok {
			return
		}

		req, err := requests.ReviewProjectRequest(requestID, id.UserID, body.Decision, body.Note)
		event := audit.ReviewEvent{
			UserID:       id.Email,
			ClientIP:     clientIP(r),
			Kind:         "project-request",
			RequestID:    requestID,
			Decision:     body.Decision,
			Success:      err == nil,
			ErrorMessage: errString(err),
		}
		if req != nil {
			event.ProjectID = req.ProjectID
		}
		audit.Log(event)
		if err != nil {
			respondStoreError(w, log, err, "project request")
			return
		}

		notifier.notify(r.Context(), req.RequesterID, "project", req.Title, req.Status, req.ReviewNote)
		respondWithJSON(w, http.StatusOK, req)
	}
}
