package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/llm"
	"github.com/halyard-advisory/halyard/pkg/metrics"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/pdf"
	"github.com/halyard-advisory/halyard/pkg/scoring"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const DefaultTimeout = 3 * time.Minute

// Stages written to the job row, in order
const (
	StageLoading   = "loading"
	StageDrafting  = "drafting"
	StageRendering = "rendering"
	StageSaving    = "saving"
)

var stageProgress = map[string]int{
	StageLoading:   10,
	StageDrafting:  30,
	StageRendering: 70,
	StageSaving:    90,
}

// ErrShuttingDown is recorded on jobs started after Shutdown
var ErrShuttingDown = errors.New("server is shutting down")

// RenderFunc turns a markdown report into a PDF
type RenderFunc func(title, markdown string, generatedAt time.Time) ([]byte, error)

// Options tune a Runner. Zero values pick the defaults.
type Options struct {
	SiteURL string
	Timeout time.Duration
	Render  RenderFunc
}

// Runner generates readiness reports in the background. Each job runs in its
// own goroutine; Shutdown waits for the ones in flight.
type Runner struct {
	jobs        store.JobsStore
	assessments store.AssessmentsStore
	drafter     llm.Drafter
	mailer      email.Mailer
	log         logrus.FieldLogger

	siteURL string
	timeout time.Duration
	render  RenderFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

// NewRunner creates a runner ready to accept jobs
func NewRunner(jobs store.JobsStore, assessments store.AssessmentsStore, drafter llm.Drafter, mailer email.Mailer, log logrus.FieldLogger, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Render == nil {
		opts.Render = pdf.Render
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		jobs:        jobs,
		assessments: assessments,
		drafter:     drafter,
		mailer:      mailer,
		log:         log.WithField("component", "document-jobs"),
		siteURL:     strings.TrimRight(opts.SiteURL, "/"),
		timeout:     opts.Timeout,
		render:      opts.Render,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the job and returns immediately
func (r *Runner) Start(jobID uuid.UUID) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.fail(jobID, ErrShuttingDown)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		_ = r.Run(r.ctx, jobID)
	}()
}

// Shutdown stops accepting jobs and waits for running ones. If ctx expires
// first the running jobs are cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

// Run executes one job synchronously, recording the outcome on its row
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	log := r.log.WithField("job_id", jobID)
	started := time.Now()
	metrics.DocumentStarted()

	sub, err := r.execute(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("document job failed")
		r.fail(jobID, err)
		metrics.RecordDocument(model.JobFailed, time.Since(started))
		return err
	}
	metrics.RecordDocument(model.JobCompleted, time.Since(started))
	log.WithField("duration", time.Since(started).Round(time.Millisecond)).Info("document job completed")

	r.notify(ctx, jobID, sub)
	return nil
}

func (r *Runner) execute(ctx context.Context, jobID uuid.UUID) (sub *model.AssessmentSubmission, err error) {
	defer func() {
		if p := recover(); p != nil {
			sub, err = nil, fmt.Errorf("document job panicked: %v", p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	job, err := r.jobs.GetJob(jobID)
	if err != nil {
		return nil, err
	}

	if err := r.stage(jobID, StageLoading); err != nil {
		return nil, err
	}
	sub, err = r.assessments.GetSubmission(job.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	if err := r.stage(jobID, StageDrafting); err != nil {
		return nil, err
	}
	document, err := r.drafter.DraftReadinessReport(ctx, BriefFor(sub))
	if err != nil {
		return nil, fmt.Errorf("draft report: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("draft report: %w", err)
	}

	if err := r.stage(jobID, StageRendering); err != nil {
		return nil, err
	}
	doc, err := r.render(reportTitle(sub), document, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	if err := r.stage(jobID, StageSaving); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.jobs.CompleteJob(jobID, document, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return sub, nil
}

func (r *Runner) stage(jobID uuid.UUID, stage string) error {
	if err := r.jobs.UpdateJobProgress(jobID, model.JobProcessing, stageProgress[stage], stage); err != nil {
		return fmt.Errorf("record stage %s: %w", stage, err)
	}
	return nil
}

func (r *Runner) fail(jobID uuid.UUID, cause error) {
	if err := r.jobs.FailJob(jobID, cause.Error()); err != nil {
		r.log.WithError(err).WithField("job_id", jobID).Warn("unable to mark document job failed")
	}
}

// notify emails the respondent a download link. Failures are only logged.
func (r *Runner) notify(ctx context.Context, jobID uuid.UUID, sub *model.AssessmentSubmission) {
	if r.mailer == nil || sub == nil || sub.Email == "" {
		return
	}
	msg, err := email.ReportReady(sub.Email, sub.Name, sub.Score, sub.Tier, r.DocumentURL(jobID))
	if err == nil {
		err = r.mailer.Send(ctx, msg)
	}
	if err != nil {
		r.log.WithError(err).WithField("job_id", jobID).Warn("unable to send report email")
	}
}

// DocumentURL is the public download link for a job's PDF
func (r *Runner) DocumentURL(jobID uuid.UUID) string {
	return fmt.Sprintf("%s/api/jobs/%s/document", r.siteURL, jobID)
}

// BriefFor builds the drafter input from a scored submission
func BriefFor(sub *model.AssessmentSubmission) llm.Brief {
	brief := llm.Brief{
		Name:           sub.Name,
		Company:        sub.Company,
		Role:           sub.Role,
		Score:          sub.Score,
		Tier:           sub.Tier,
		CategoryScores: map[string]int(sub.CategoryScores),
		FocusArea:      sub.FocusArea,
	}
	for _, q := range scoring.Questions {
		v, ok := sub.Answers[q.ID]
		if !ok {
			continue
		}
		brief.Answers = append(brief.Answers, llm.Answer{Category: q.Category, Prompt: q.Prompt, Value: v})
	}
	return brief
}

func reportTitle(sub *model.AssessmentSubmission) string {
	who := sub.Company
	if who == "" {
		who = sub.Name
	}
	return "AI Readiness Report: " + who
}
