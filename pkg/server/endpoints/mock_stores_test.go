package endpoints

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/halyard-advisory/halyard/pkg/calendar"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/feeds"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/payments"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// MockUsersStore implements store.UsersStore for testing using testify/mock
type MockUsersStore struct {
	mock.Mock
}

func (m *MockUsersStore) EnsureUser(subject, email, name, defaultRole string) (*model.User, error) {
	args := m.Called(subject, email, name, defaultRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) GetUser(id uint) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) ListUsers() ([]model.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUsersStore) SetRole(email, role string) (*model.User, error) {
	args := m.Called(email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockProjectsStore implements store.ProjectsStore for testing using testify/mock
type MockProjectsStore struct {
	mock.Mock
}

func (m *MockProjectsStore) project(args mock.Arguments) (*model.Project, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectsStore) ListProjects(filter store.ProjectFilter) ([]model.Project, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectsStore) GetProject(id uint) (*model.Project, error) {
	return m.project(m.Called(id))
}

func (m *MockProjectsStore) CreateProject(p *model.Project) error {
	return m.Called(p).Error(0)
}

func (m *MockProjectsStore) UpdateProject(id uint, patch store.ProjectPatch) (*model.Project, error) {
	return m.project(m.Called(id, patch))
}

func (m *MockProjectsStore) DeleteProject(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockProjectsStore) AddStep(projectID uint, title string) (*model.Project, error) {
	return m.project(m.Called(projectID, title))
}

func (m *MockProjectsStore) SetStepCompleted(projectID, stepID uint, completed bool) (*model.Project, error) {
	return m.project(m.Called(projectID, stepID, completed))
}

func (m *MockProjectsStore) DeleteStep(projectID, stepID uint) (*model.Project, error) {
	return m.project(m.Called(projectID, stepID))
}

// MockRequestsStore implements store.RequestsStore for testing using testify/mock
type MockRequestsStore struct {
	mock.Mock
}

func (m *MockRequestsStore) resource(args mock.Arguments) (*model.ResourceRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResourceRequest), args.Error(1)
}

func (m *MockRequestsStore) proposal(args mock.Arguments) (*model.ProjectRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectRequest), args.Error(1)
}

func (m *MockRequestsStore) ListResourceRequests(filter store.RequestFilter) ([]model.ResourceRequest, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ResourceRequest), args.Error(1)
}

func (m *MockRequestsStore) CreateResourceRequest(r *model.ResourceRequest) error {
	return m.Called(r).Error(0)
}

func (m *MockRequestsStore) GetResourceRequest(id uint) (*model.ResourceRequest, error) {
	return m.resource(m.Called(id))
}

func (m *MockRequestsStore) ReviewResourceRequest(id, reviewerID uint, decision, note string) (*model.ResourceRequest, error) {
	return m.resource(m.Called(id, reviewerID, decision, note))
}

func (m *MockRequestsStore) ListProjectRequests(filter store.RequestFilter) ([]model.ProjectRequest, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectRequest), args.Error(1)
}

func (m *MockRequestsStore) CreateProjectRequest(r *model.ProjectRequest) error {
	return m.Called(r).Error(0)
}

func (m *MockRequestsStore) GetProjectRequest(id uint) (*model.ProjectRequest, error) {
	return m.proposal(m.Called(id))
}

func (m *MockRequestsStore) ReviewProjectRequest(id, reviewerID uint, decision, note string) (*model.ProjectRequest, error) {
	return m.proposal(m.Called(id, reviewerID, decision, note))
}

// MockAssessmentsStore implements store.AssessmentsStore for testing using testify/mock
type MockAssessmentsStore struct {
	mock.Mock
}

func (m *MockAssessmentsStore) CreateSubmission(s *model.AssessmentSubmission) (*model.DocumentJob, error) {
	args := m.Called(s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentJob), args.Error(1)
}

func (m *MockAssessmentsStore) GetSubmission(id uuid.UUID) (*model.AssessmentSubmission, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AssessmentSubmission), args.Error(1)
}

// MockJobsStore implements store.JobsStore for testing using testify/mock
type MockJobsStore struct {
	mock.Mock
}

func (m *MockJobsStore) GetJob(id uuid.UUID) (*model.DocumentJob, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentJob), args.Error(1)
}

func (m *MockJobsStore) UpdateJobProgress(id uuid.UUID, status string, progress int, stage string) error {
	return m.Called(id, status, progress, stage).Error(0)
}

func (m *MockJobsStore) CompleteJob(id uuid.UUID, document string, pdf []byte) error {
	return m.Called(id, document, pdf).Error(0)
}

func (m *MockJobsStore) FailJob(id uuid.UUID, message string) error {
	return m.Called(id, message).Error(0)
}

// MockBookingsStore implements store.BookingsStore for testing using testify/mock
type MockBookingsStore struct {
	mock.Mock
}

func (m *MockBookingsStore) booking(args mock.Arguments) (*model.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingsStore) CreateBooking(b *model.Booking) error {
	return m.Called(b).Error(0)
}

func (m *MockBookingsStore) GetBooking(id uuid.UUID) (*model.Booking, error) {
	return m.booking(m.Called(id))
}

func (m *MockBookingsStore) AttachCheckoutSession(id uuid.UUID, sessionID string) error {
	return m.Called(id, sessionID).Error(0)
}

func (m *MockBookingsStore) ClaimPaidBooking(id uuid.UUID, staleAfter time.Duration) (*model.Booking, bool, error) {
	args := m.Called(id, staleAfter)
	var b *model.Booking
	if v := args.Get(0); v != nil {
		b = v.(*model.Booking)
	}
	return b, args.Bool(1), args.Error(2)
}

func (m *MockBookingsStore) ReleaseClaim(id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *MockBookingsStore) ConfirmBooking(id uuid.UUID, calendarEventID string) (*model.Booking, error) {
	return m.booking(m.Called(id, calendarEventID))
}

func (m *MockBookingsStore) CancelBooking(id uuid.UUID) (*model.Booking, error) {
	return m.booking(m.Called(id))
}

func (m *MockBookingsStore) FindByCheckoutSession(sessionID string) (*model.Booking, error) {
	return m.booking(m.Called(sessionID))
}

func (m *MockBookingsStore) BookedSlots(from, to time.Time) ([]model.Booking, error) {
	args := m.Called(from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

// MockNewsStore implements store.NewsStore for testing using testify/mock
type MockNewsStore struct {
	mock.Mock
}

func (m *MockNewsStore) UpsertItems(items []model.NewsItem) (int, error) {
	args := m.Called(items)
	return args.Int(0), args.Error(1)
}

func (m *MockNewsStore) ListItems(source string, limit int) ([]model.NewsItem, error) {
	args := m.Called(source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NewsItem), args.Error(1)
}

func (m *MockNewsStore) PruneOlderThan(t time.Time) (int64, error) {
	args := m.Called(t)
	return args.Get(0).(int64), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity() error {
	return m.Called().Error(0)
}

type fakeStarter struct {
	mu      sync.Mutex
	started []uuid.UUID
}

func (f *fakeStarter) Start(jobID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, jobID)
}

type fakeRefresher struct {
	report feeds.Report
}

func (f fakeRefresher) Refresh(ctx context.Context) feeds.Report {
	return f.report
}

type fakeCalendar struct {
	slots    []calendar.Slot
	err      error
	eventID  string
	bookErr  error
	mu       sync.Mutex
	bookings []calendar.BookingRequest
}

func (f *fakeCalendar) Availability(ctx context.Context, from, to time.Time) ([]calendar.Slot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []calendar.Slot
	for _, s := range f.slots {
		if !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateBooking(ctx context.Context, req calendar.BookingRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, req)
	return f.eventID, f.bookErr
}

type fakeCheckout struct {
	session  *payments.Session
	err      error
	event    *payments.WebhookEvent
	parseErr error
	requests []payments.CheckoutRequest
}

func (f *fakeCheckout) CreateSession(ctx context.Context, req payments.CheckoutRequest) (*payments.Session, error) {
	f.requests = append(f.requests, req)
	return f.session, f.err
}

func (f *fakeCheckout) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	return f.event, f.parseErr
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}
