package endpoints

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const reportFilename = "ai-readiness-report.pdf"

// JobResponse is the pollable status of a document job
type JobResponse struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Stage       string    `json:"stage"`
	Error       string    `json:"error,omitempty"`
	DocumentURL string    `json:"document_url,omitempty"`
}

// RegisterJobsEndpoints registers job polling and PDF download
func RegisterJobsEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/jobs/{id}", handleGetJob(s.JobsStore, s.Log)).Methods("GET")
	s.Router.HandleFunc("/api/jobs/{id}/document", handleGetDocument(s.JobsStore, s.Log)).Methods("GET")
}

func handleGetJob(jobs store.JobsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "job not found")
			return
		}

		job, err := jobs.GetJob(id)
		if err != nil {
			respondStoreError(w, log, err, "job")
			return
		}

		resp := JobResponse{
			ID:       job.ID,
			Status:   job.Status,
			Progress: job.Progress,
			Stage:    job.Stage,
			Error:    job.Error,
		}
		if job.HasDocument() {
			resp.DocumentURL = "/api/jobs/" + job.ID.String() + "/document"
		}
		w.Header().Set("Cache-Control", "no-store")
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleGetDocument(jobs store.JobsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			respondWithError(w, http.StatusNotFound, "job not found")
			return
		}

		job, err := jobs.GetJob(id)
		if err != nil {
			respondStoreError(w, log, err, "job")
			return
		}
		if !job.HasDocument() {
			httputil.RespondErrorWithExtras(w, http.StatusConflict, "document is not ready", map[string]interface{}{
				"job_status": job.Status,
				"progress":   job.Progress,
			})
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(job.PDF)))
		_, _ = w.Write(job.PDF)
	}
}
