package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/audit"
	"github.com/halyard-advisory/halyard/pkg/identity"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

var projectStatusRule = validation.In(stringsToInterfaces(model.ProjectStatuses)...).Error("must be one of planning, active, on_hold, completed")

func stringsToInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ProjectRequestBody creates a project
type ProjectRequestBody struct {
	OwnerID     uint     `json:"owner_id"`
	Title       string   `json:"title"`
	ClientName  string   `json:"client_name"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	StartDate   *string  `json:"start_date"`
	DueDate     *string  `json:"due_date"`
	Steps       []string `json:"steps"`
}

func (p ProjectRequestBody) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OwnerID, validation.Required),
		validation.Field(&p.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.ClientName, validation.Length(0, 200)),
		validation.Field(&p.Status, projectStatusRule),
		validation.Field(&p.StartDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
		validation.Field(&p.DueDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
		validation.Field(&p.Steps, validation.Each(validation.Required, validation.Length(1, 200))),
	)
}

// ProjectPatchBody updates any subset of a project's fields
type ProjectPatchBody struct {
	OwnerID     *uint   `json:"owner_id"`
	Title       *string `json:"title"`
	ClientName  *string `json:"client_name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	DueDate     *string `json:"due_date"`
}

func (p ProjectPatchBody) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OwnerID, validation.NilOrNotEmpty),
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.ClientName, validation.Length(0, 200)),
		validation.Field(&p.Status, validation.NilOrNotEmpty, projectStatusRule),
		validation.Field(&p.StartDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
		validation.Field(&p.DueDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
	)
}

// StepBody adds a step
type StepBody struct {
	Title string `json:"title"`
}

// StepPatchBody toggles a step
type StepPatchBody struct {
	Completed *bool `json:"completed"`
}

// RegisterProjectsEndpoints registers the project and step endpoints
func RegisterProjectsEndpoints(s *server.Server) {
	projects := s.ProjectsStore
	users := s.UsersStore
	log := s.Log

	s.Router.Handle("/api/projects", s.Protected(handleListProjects(projects, log))).Methods("GET")
	s.Router.Handle("/api/projects", s.AdminOnly(handleCreateProject(projects, users, log))).Methods("POST")
	s.Router.Handle("/api/projects/{id}", s.Protected(handleGetProject(projects, log))).Methods("GET")
	s.Router.Handle("/api/projects/{id}", s.AdminOnly(handleUpdateProject(projects, users, log))).Methods("PATCH")
	s.Router.Handle("/api/projects/{id}", s.AdminOnly(handleDeleteProject(projects, log))).Methods("DELETE")

	s.Router.Handle("/api/projects/{id}/steps", s.AdminOnly(handleAddStep(projects, log))).Methods("POST")
	s.Router.Handle("/api/projects/{id}/steps/{stepID}", s.Protected(handleSetStepCompleted(projects, log))).Methods("PATCH")
	s.Router.Handle("/api/projects/{id}/steps/{stepID}", s.AdminOnly(handleDeleteStep(projects, log))).Methods("DELETE")
}

// visibleProject loads a project the caller may see. Projects owned by
// someone else are reported as missing.
func visibleProject(projects store.ProjectsStore, id *identity.Identity, projectID uint) (*model.Project, error) {
	project, err := projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(project.OwnerID) {
		return nil, store.ErrNotFound
	}
	return project, nil
}

func withSteps(p *model.Project) *model.Project {
	if p.Steps == nil {
		p.Steps = []model.ProjectStep{}
	}
	return p
}

func handleListProjects(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		filter := store.ProjectFilter{Status: r.URL.Query().Get("status")}
		if filter.Status != "" && !model.ValidProjectStatus(filter.Status) {
			respondWithError(w, http.StatusBadRequest, "unknown project status "+strconv.Quote(filter.Status))
			return
		}

		if id.IsAdmin() {
			if raw := r.URL.Query().Get("owner_id"); raw != "" {
				owner, err := strconv.ParseUint(raw, 10, 32)
				if err != nil {
					respondWithError(w, http.StatusBadRequest, "owner_id must be a positive integer")
					return
				}
				ownerID := uint(owner)
				filter.OwnerID = &ownerID
			}
		} else {
			filter.OwnerID = &id.UserID
		}

		list, err := projects.ListProjects(filter)
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}
		if list == nil {
			list = []model.Project{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"projects": list})
	}
}

func handleGetProject(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}
		project, err := visibleProject(projects, currentIdentity(r), projectID)
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}
		respondWithJSON(w, http.StatusOK, withSteps(project))
	}
}

// ensureOwner checks that ownerID names a known user
func ensureOwner(users store.UsersStore, ownerID uint) error {
	if _, err := users.GetUser(ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validation.Errors{"owner_id": errors.New("no such user")}
		}
		return err
	}
	return nil
}

func handleCreateProject(projects store.ProjectsStore, users store.UsersStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var body ProjectRequestBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Title = strings.TrimSpace(body.Title)
		if err := body.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}
		start, _ := parseDate(body.StartDate)
		due, _ := parseDate(body.DueDate)
		if start != nil && due != nil && due.Before(*start) {
			httputil.RespondValidation(w, validation.Errors{"due_date": errors.New("must not be before start_date")})
			return
		}
		if err := ensureOwner(users, body.OwnerID); err != nil {
			var verrs validation.Errors
			if errors.As(err, &verrs) {
				httputil.RespondValidation(w, verrs)
				return
			}
			respondStoreError(w, log, err, "user")
			return
		}

		project := &model.Project{
			OwnerID:     body.OwnerID,
			Title:       body.Title,
			ClientName:  strings.TrimSpace(body.ClientName),
			Description: body.Description,
			Status:      body.Status,
			StartDate:   start,
			DueDate:     due,
		}
		for _, title := range body.Steps {
			project.Steps = append(project.Steps, model.ProjectStep{Title: strings.TrimSpace(title)})
		}

		err := projects.CreateProject(project)
		audit.Log(audit.ProjectEvent{
			UserID:       id.Email,
			ClientIP:     clientIP(r),
			ProjectID:    project.ID,
			Title:        project.Title,
			Operation:    "create",
			Success:      err == nil,
			ErrorMessage: errString(err),
		})
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}

		w.Header().Set("Location", "/api/projects/"+strconv.FormatUint(uint64(project.ID), 10))
		respondWithJSON(w, http.StatusCreated, withSteps(project))
	}
}

func handleUpdateProject(projects store.ProjectsStore, users store.UsersStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}

		var body ProjectPatchBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Title != nil {
			trimmed := strings.TrimSpace(*body.Title)
			body.Title = &trimmed
		}
		if err := body.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}
		if body.OwnerID != nil {
			if err := ensureOwner(users, *body.OwnerID); err != nil {
				var verrs validation.Errors
				if errors.As(err, &verrs) {
					httputil.RespondValidation(w, verrs)
					return
				}
				respondStoreError(w, log, err, "user")
				return
			}
		}

		patch := store.ProjectPatch{
			Title:       body.Title,
			ClientName:  body.ClientName,
			Description: body.Description,
			Status:      body.Status,
			OwnerID:     body.OwnerID,
		}
		patch.StartDate, _ = parseDate(body.StartDate)
		patch.DueDate, _ = parseDate(body.DueDate)

		project, err := projects.UpdateProject(projectID, patch)
		title := ""
		if project != nil {
			title = project.Title
		}
		audit.Log(audit.ProjectEvent{
			UserID:       id.Email,
			ClientIP:     clientIP(r),
			ProjectID:    projectID,
			Title:        title,
			Operation:    "update",
			Success:      err == nil,
			ErrorMessage: errString(err),
		})
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}
		respondWithJSON(w, http.StatusOK, withSteps(project))
	}
}

func handleDeleteProject(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}

		err = projects.DeleteProject(projectID)
		audit.Log(audit.ProjectEvent{
			UserID:       id.Email,
			ClientIP:     clientIP(r),
			ProjectID:    projectID,
			Operation:    "delete",
			Success:      err == nil,
			ErrorMessage: errString(err),
		})
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddStep(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}

		var body StepBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Title = strings.TrimSpace(body.Title)
		if err := validation.ValidateStruct(&body,
			validation.Field(&body.Title, validation.Required, validation.Length(1, 200)),
		); err != nil {
			httputil.RespondValidation(w, err)
			return
		}

		project, err := projects.AddStep(projectID, body.Title)
		if err != nil {
			respondStoreError(w, log, err, "project")
			return
		}

		var stepID uint
		if n := len(project.Steps); n > 0 {
			stepID = project.Steps[n-1].ID
		}
		audit.Log(audit.StepEvent{
			UserID:    id.Email,
			ClientIP:  clientIP(r),
			ProjectID: projectID,
			StepID:    stepID,
			Title:     body.Title,
			Operation: "add",
			Progress:  project.Progress,
		})
		respondWithJSON(w, http.StatusCreated, withSteps(project))
	}
}

func handleSetStepCompleted(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}
		stepID, err := pathID(r, "stepID")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "step not found")
			return
		}

		var body StepPatchBody
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Completed == nil {
			httputil.RespondValidation(w, validation.Errors{"completed": errors.New("cannot be blank")})
			return
		}

		if _, err := visibleProject(projects, id, projectID); err != nil {
			respondStoreError(w, log, err, "project")
			return
		}

		project, err := projects.SetStepCompleted(projectID, stepID, *body.Completed)
		if err != nil {
			respondStoreError(w, log, err, "step")
			return
		}

		op := "complete"
		if !*body.Completed {
			op = "reopen"
		}
		audit.Log(audit.StepEvent{
			UserID:    id.Email,
			ClientIP:  clientIP(r),
			ProjectID: projectID,
			StepID:    stepID,
			Title:     stepTitle(project, stepID),
			Operation: op,
			Progress:  project.Progress,
		})
		respondWithJSON(w, http.StatusOK, withSteps(project))
	}
}

func handleDeleteStep(projects store.ProjectsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		projectID, err := pathID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "project not found")
			return
		}
		stepID, err := pathID(r, "stepID")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "step not found")
			return
		}

		project, err := projects.DeleteStep(projectID, stepID)
		if err != nil {
			respondStoreError(w, log, err, "step")
			return
		}

		audit.Log(audit.StepEvent{
			UserID:    id.Email,
			ClientIP:  clientIP(r),
			ProjectID: projectID,
			StepID:    stepID,
			Operation: "delete",
			Progress:  project.Progress,
		})
		respondWithJSON(w, http.StatusOK, withSteps(project))
	}
}

func stepTitle(p *model.Project, stepID uint) string {
	for _, s := range p.Steps {
		if s.ID == stepID {
			return s.Title
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
