package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halyard-advisory/halyard/pkg/audit"
	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/content"
	"github.com/halyard-advisory/halyard/pkg/feeds"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/middleware"
)

const testSecret = "endpoints-test-secret"

// syncBuffer collects audit lines written by handlers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

var auditLines = &syncBuffer{}

func TestMain(m *testing.M) {
	audit.SetEnabled(true)
	audit.UseStore(nil)
	audit.DefaultLogger.SetWriter(auditLines)
	os.Exit(m.Run())
}

var (
	adminUser  = &model.User{ID: 1, Subject: "auth0|admin", Email: "owner@halyard.test", Name: "Olive Owner", Role: model.RoleAdmin}
	clientUser = &model.User{ID: 7, Subject: "auth0|client", Email: "client@acme.test", Name: "Casey Client", Role: model.RoleClient}
)

type testEnv struct {
	t   *testing.T
	cfg *config.Config
	srv *server.Server

	users       *MockUsersStore
	projects    *MockProjectsStore
	requests    *MockRequestsStore
	assessments *MockAssessmentsStore
	jobs        *MockJobsStore
	bookings    *MockBookingsStore
	news        *MockNewsStore
	health      *MockHealthStore

	starter  *fakeStarter
	calendar *fakeCalendar
	checkout *fakeCheckout
	mailer   *recordingMailer
}

type envOption func(s *server.Server)

func withBlog(lib *content.Library) envOption {
	return func(s *server.Server) { s.Blog = lib }
}

func withNews(report feeds.Report) envOption {
	return func(s *server.Server) { s.News = fakeRefresher{report: report} }
}

func withRateLimit(rps float64, burst int) envOption {
	return func(s *server.Server) { s.PublicLimiter = middleware.NewRateLimiter(rps, burst, s.Log) }
}

func withoutCalendar() envOption {
	return func(s *server.Server) { s.Calendar = nil }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	auditLines.Reset()

	cfg := &config.Config{
		Environment:            "test",
		SiteURL:                "https://halyard.test",
		PublicRateLimit:        1000,
		PublicRateBurst:        1000,
		BookingPriceCents:      25000,
		BookingCurrency:        "usd",
		BookingDurationMinutes: 30,
	}
	log, _ := test.NewNullLogger()

	env := &testEnv{
		t:           t,
		cfg:         cfg,
		users:       &MockUsersStore{},
		projects:    &MockProjectsStore{},
		requests:    &MockRequestsStore{},
		assessments: &MockAssessmentsStore{},
		jobs:        &MockJobsStore{},
		bookings:    &MockBookingsStore{},
		news:        &MockNewsStore{},
		health:      &MockHealthStore{},
		starter:     &fakeStarter{},
		calendar:    &fakeCalendar{eventID: "cal_evt_1"},
		checkout:    &fakeCheckout{},
		mailer:      &recordingMailer{},
	}

	s := server.NewServer(cfg, nil, log, server.Options{AccessLog: io.Discard})
	s.UsersStore = env.users
	s.ProjectsStore = env.projects
	s.RequestsStore = env.requests
	s.AssessmentsStore = env.assessments
	s.JobsStore = env.jobs
	s.BookingsStore = env.bookings
	s.NewsStore = env.news
	s.HealthStore = env.health
	s.Jobs = env.starter
	s.Calendar = env.calendar
	s.Payments = env.checkout
	s.Mailer = env.mailer
	verifier, err := middleware.NewHMACVerifier(testSecret)
	require.NoError(t, err)
	s.Authenticator = middleware.NewJWTAuthenticator(verifier, env.users, cfg.IsAdminEmail, log)
	for _, opt := range opts {
		opt(s)
	}
	RegisterAll(s)
	env.srv = s

	t.Cleanup(func() {
		env.users.AssertExpectations(t)
		env.projects.AssertExpectations(t)
		env.requests.AssertExpectations(t)
		env.assessments.AssertExpectations(t)
		env.jobs.AssertExpectations(t)
		env.bookings.AssertExpectations(t)
		env.news.AssertExpectations(t)
		env.health.AssertExpectations(t)
	})
	return env
}

// tokenFor signs a bearer token for u and expects the authenticator to
// resolve it to u.
func (e *testEnv) tokenFor(u *model.User) string {
	e.t.Helper()
	e.users.On("EnsureUser", u.Subject, u.Email, u.Name, mock.Anything).Return(u, nil).Maybe()

	claims := middleware.Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func writePost(t *testing.T, dir, name, frontMatter, body string) {
	t.Helper()
	src := fmt.Sprintf("---\n%s\n---\n%s\n", frontMatter, body)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600))
}

func uintPtr(v uint) *uint { return &v }
