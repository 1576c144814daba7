package endpoints

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/scoring"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// QuestionnaireResponse is served to the quiz page
type QuestionnaireResponse struct {
	Questions  []scoring.Question `json:"questions"`
	Categories []string           `json:"categories"`
	MinAnswer  int                `json:"min_answer"`
	MaxAnswer  int                `json:"max_answer"`
}

// AssessmentRequest is a completed quiz
type AssessmentRequest struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Company string         `json:"company"`
	Role    string         `json:"role"`
	Answers map[string]int `json:"answers"`
}

func (a AssessmentRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&a.Email, validation.Required, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&a.Company, validation.Length(0, 160)),
		validation.Field(&a.Role, validation.Length(0, 120)),
		validation.Field(&a.Answers, validation.Required),
	)
}

// AssessmentResponse is returned once a submission is scored and its report
// job is queued
type AssessmentResponse struct {
	SubmissionID   uuid.UUID      `json:"submission_id"`
	JobID          uuid.UUID      `json:"job_id"`
	Score          int            `json:"score"`
	Tier           string         `json:"tier"`
	CategoryScores map[string]int `json:"category_scores"`
	FocusArea      string         `json:"focus_area"`
	StatusURL      string         `json:"status_url"`
}

// RegisterAssessmentsEndpoints registers the readiness quiz endpoints
func RegisterAssessmentsEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/assessments/questions", handleQuestions()).Methods("GET")
	s.Router.Handle("/api/assessments", s.Limited(handleSubmitAssessment(s.AssessmentsStore, s.Jobs, s.Log))).Methods("POST")
}

func handleQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, QuestionnaireResponse{
			Questions:  scoring.Questions,
			Categories: scoring.Categories,
			MinAnswer:  scoring.MinAnswer,
			MaxAnswer:  scoring.MaxAnswer,
		})
	}
}

func handleSubmitAssessment(assessments store.AssessmentsStore, runner server.JobStarter, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssessmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Company = strings.TrimSpace(req.Company)
		req.Role = strings.TrimSpace(req.Role)

		if err := req.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}
		if err := scoring.Validate(req.Answers); err != nil {
			var verr *scoring.ValidationError
			if errors.As(err, &verr) {
				httputil.RespondValidation(w, validation.Errors{"answers." + verr.QuestionID: errors.New(verr.Reason)})
				return
			}
			httputil.RespondValidation(w, err)
			return
		}

		result := scoring.Score(req.Answers)
		sub := &model.AssessmentSubmission{
			ID:             uuid.New(),
			Name:           req.Name,
			Email:          req.Email,
			Company:        req.Company,
			Role:           req.Role,
			Answers:        model.IntMap(req.Answers),
			Score:          result.Score,
			Tier:           result.Tier,
			CategoryScores: model.IntMap(result.CategoryScores),
			FocusArea:      result.FocusArea,
		}
		job, err := assessments.CreateSubmission(sub)
		if err != nil {
			respondStoreError(w, log, err, "assessment")
			return
		}
		runner.Start(job.ID)

		log.WithFields(logrus.Fields{
			"submission_id": sub.ID,
			"job_id":        job.ID,
			"score":         sub.Score,
			"tier":          sub.Tier,
		}).Info("assessment submitted")

		statusURL := "/api/jobs/" + job.ID.String()
		w.Header().Set("Location", statusURL)
		respondWithJSON(w, http.StatusAccepted, AssessmentResponse{
			SubmissionID:   sub.ID,
			JobID:          job.ID,
			Score:          result.Score,
			Tier:           result.Tier,
			CategoryScores: result.CategoryScores,
			FocusArea:      result.FocusArea,
			StatusURL:      statusURL,
		})
	}
}
