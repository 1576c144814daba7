package endpoints

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

func clientProject() *model.Project {
	return &model.Project{
		ID:       3,
		OwnerID:  clientUser.ID,
		Title:    "Support triage pilot",
		Status:   model.ProjectActive,
		Progress: 50,
		Steps: []model.ProjectStep{
			{ID: 10, ProjectID: 3, Title: "Discovery", Position: 1, Completed: true},
			{ID: 11, ProjectID: 3, Title: "Prototype", Position: 2},
		},
	}
}

func TestListProjects(t *testing.T) {
	t.Run("clients only see their own projects", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("ListProjects", store.ProjectFilter{OwnerID: uintPtr(clientUser.ID)}).
			Return([]model.Project{*clientProject()}, nil).Once()

		w := env.do("GET", "/api/projects?owner_id=99", nil, env.tokenFor(clientUser))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody(t, w)["projects"], 1)
	})

	t.Run("admins can filter by owner and status", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("ListProjects", store.ProjectFilter{OwnerID: uintPtr(7), Status: model.ProjectActive}).
			Return(nil, nil).Once()

		w := env.do("GET", "/api/projects?owner_id=7&status=active", nil, env.tokenFor(adminUser))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"projects":[]}`, w.Body.String())
	})

	t.Run("unknown status is a bad request", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("GET", "/api/projects?status=archived", nil, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetProject(t *testing.T) {
	t.Run("owner sees the project with its steps", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("GetProject", uint(3)).Return(clientProject(), nil).Once()

		w := env.do("GET", "/api/projects/3", nil, env.tokenFor(clientUser))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(50), body["progress"])
		assert.Len(t, body["steps"], 2)
	})

	t.Run("another client's project is reported missing", func(t *testing.T) {
		env := newTestEnv(t)
		other := clientProject()
		other.OwnerID = 42
		env.projects.On("GetProject", uint(3)).Return(other, nil).Once()

		w := env.do("GET", "/api/projects/3", nil, env.tokenFor(clientUser))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is 404", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("GET", "/api/projects/abc", nil, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateProject(t *testing.T) {
	body := map[string]interface{}{
		"owner_id":    clientUser.ID,
		"title":       "  Forecasting rollout ",
		"client_name": "Acme",
		"start_date":  "2025-04-01",
		"due_date":    "2025-06-30",
		"steps":       []string{"Kickoff", "Data audit"},
	}

	t.Run("admin creates a project with steps", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("GetUser", clientUser.ID).Return(clientUser, nil).Once()
		var created *model.Project
		env.projects.On("CreateProject", mock.AnythingOfType("*model.Project")).
			Run(func(args mock.Arguments) {
				created = args.Get(0).(*model.Project)
				created.ID = 12
				created.Status = model.ProjectPlanning
			}).Return(nil).Once()

		w := env.do("POST", "/api/projects", body, env.tokenFor(adminUser))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "/api/projects/12", w.Header().Get("Location"))
		assert.Equal(t, "Forecasting rollout", created.Title)
		require.Len(t, created.Steps, 2)
		assert.Equal(t, "Data audit", created.Steps[1].Title)
		assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), *created.DueDate)
		assert.Contains(t, auditLines.String(), "created project 12")
	})

	t.Run("clients cannot create projects", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("POST", "/api/projects", body, env.tokenFor(clientUser))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown owner is a validation error", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("GetUser", clientUser.ID).Return(nil, store.ErrNotFound).Once()

		w := env.do("POST", "/api/projects", body, env.tokenFor(adminUser))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeBody(t, w)["errors"], "owner_id")
	})

	t.Run("due date before start date", func(t *testing.T) {
		env := newTestEnv(t)
		bad := map[string]interface{}{"owner_id": 7, "title": "x", "start_date": "2025-06-01", "due_date": "2025-05-01"}

		w := env.do("POST", "/api/projects", bad, env.tokenFor(adminUser))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeBody(t, w)["errors"], "due_date")
	})

	t.Run("invalid status and date format", func(t *testing.T) {
		env := newTestEnv(t)
		bad := map[string]interface{}{"owner_id": 7, "title": "x", "status": "done", "start_date": "01/04/2025"}

		w := env.do("POST", "/api/projects", bad, env.tokenFor(adminUser))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		errs := decodeBody(t, w)["errors"].(map[string]interface{})
		assert.Contains(t, errs, "status")
		assert.Contains(t, errs, "start_date")
	})
}

func TestUpdateAndDeleteProject(t *testing.T) {
	t.Run("patch passes only the provided fields", func(t *testing.T) {
		env := newTestEnv(t)
		status := model.ProjectOnHold
		updated := clientProject()
		updated.Status = status
		env.projects.On("UpdateProject", uint(3), store.ProjectPatch{Status: &status}).Return(updated, nil).Once()

		w := env.do("PATCH", "/api/projects/3", map[string]string{"status": "on_hold"}, env.tokenFor(adminUser))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "on_hold", decodeBody(t, w)["status"])
	})

	t.Run("clients cannot patch", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("PATCH", "/api/projects/3", map[string]string{"status": "completed"}, env.tokenFor(clientUser))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("delete returns no content", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("DeleteProject", uint(3)).Return(nil).Once()

		w := env.do("DELETE", "/api/projects/3", nil, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, auditLines.String(), "deleted project 3")
	})

	t.Run("delete of a missing project is 404 and audited as failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("DeleteProject", uint(9)).Return(store.ErrNotFound).Once()

		w := env.do("DELETE", "/api/projects/9", nil, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, auditLines.String(), "tried to delete project 9")
	})
}

func TestProjectSteps(t *testing.T) {
	t.Run("admin adds a step and gets recomputed progress", func(t *testing.T) {
		env := newTestEnv(t)
		after := clientProject()
		after.Steps = append(after.Steps, model.ProjectStep{ID: 12, ProjectID: 3, Title: "Rollout", Position: 3})
		after.Progress = 33
		env.projects.On("AddStep", uint(3), "Rollout").Return(after, nil).Once()

		w := env.do("POST", "/api/projects/3/steps", map[string]string{"title": " Rollout "}, env.tokenFor(adminUser))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, float64(33), decodeBody(t, w)["progress"])
		assert.Contains(t, auditLines.String(), `added step "Rollout"`)
	})

	t.Run("blank step title is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("POST", "/api/projects/3/steps", map[string]string{"title": "  "}, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("owner completes a step", func(t *testing.T) {
		env := newTestEnv(t)
		after := clientProject()
		after.Steps[1].Completed = true
		after.Progress = 100
		env.projects.On("GetProject", uint(3)).Return(clientProject(), nil).Once()
		env.projects.On("SetStepCompleted", uint(3), uint(11), true).Return(after, nil).Once()

		w := env.do("PATCH", "/api/projects/3/steps/11", map[string]bool{"completed": true}, env.tokenFor(clientUser))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(100), decodeBody(t, w)["progress"])
		assert.Contains(t, auditLines.String(), `completed step "Prototype"`)
	})

	t.Run("other clients cannot toggle steps", func(t *testing.T) {
		env := newTestEnv(t)
		other := clientProject()
		other.OwnerID = 42
		env.projects.On("GetProject", uint(3)).Return(other, nil).Once()

		w := env.do("PATCH", "/api/projects/3/steps/11", map[string]bool{"completed": true}, env.tokenFor(clientUser))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("completed flag is required", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do("PATCH", "/api/projects/3/steps/11", map[string]string{}, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("step from another project is 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("GetProject", uint(3)).Return(clientProject(), nil).Once()
		env.projects.On("SetStepCompleted", uint(3), uint(99), false).Return(nil, store.ErrNotFound).Once()

		w := env.do("PATCH", "/api/projects/3/steps/99", map[string]bool{"completed": false}, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("admin deletes a step", func(t *testing.T) {
		env := newTestEnv(t)
		after := clientProject()
		after.Steps = after.Steps[:1]
		after.Progress = 100
		env.projects.On("DeleteStep", uint(3), uint(11)).Return(after, nil).Once()

		w := env.do("DELETE", "/api/projects/3/steps/11", nil, env.tokenFor(adminUser))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(100), decodeBody(t, w)["progress"])
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		env := newTestEnv(t)
		env.projects.On("DeleteStep", uint(3), uint(11)).Return(nil, errors.New("deadlock")).Once()

		w := env.do("DELETE", "/api/projects/3/steps/11", nil, env.tokenFor(adminUser))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
