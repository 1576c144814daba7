package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/halyard-advisory/halyard/pkg/calendar"
	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/content"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/feeds"
	"github.com/halyard-advisory/halyard/pkg/metrics"
	"github.com/halyard-advisory/halyard/pkg/payments"
	"github.com/halyard-advisory/halyard/pkg/server/middleware"
	"github.com/halyard-advisory/halyard/pkg/server/store"
	gormstore "github.com/halyard-advisory/halyard/pkg/server/store/gorm"
)

// JobStarter launches background document generation
type JobStarter interface {
	Start(jobID uuid.UUID)
}

// NewsRefresher ingests the configured news feeds on demand
type NewsRefresher interface {
	Refresh(ctx context.Context) feeds.Report
}

// Options controls the listener
type Options struct {
	Host string
	Port string
	// TrustProxy takes the client address from X-Forwarded-For
	TrustProxy bool
	AccessLog  io.Writer
}

type Server struct {
	Config *config.Config
	Router *mux.Router
	DB     *gorm.DB
	Log    logrus.FieldLogger

	UsersStore       store.UsersStore
	ProjectsStore    store.ProjectsStore
	RequestsStore    store.RequestsStore
	AssessmentsStore store.AssessmentsStore
	JobsStore        store.JobsStore
	BookingsStore    store.BookingsStore
	NewsStore        store.NewsStore
	HealthStore      store.HealthStore

	Blog     *content.Library
	News     NewsRefresher
	Jobs     JobStarter
	Payments payments.Checkout
	Calendar calendar.Provider
	Mailer   email.Mailer

	Authenticator *middleware.JWTAuthenticator
	PublicLimiter *middleware.RateLimiter

	srv *http.Server
}

// NewServer creates the router and HTTP server. When db is non-nil the
// GORM stores are wired to it; otherwise callers assign stores directly.
func NewServer(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger, opts Options) *Server {
	router := mux.NewRouter()
	router.Use(middleware.Recovery(log), metrics.InstrumentHandler)

	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	var handler http.Handler = middleware.CORS(cfg.CORSOrigins)(router)
	handler = handlers.LoggingHandler(accessLog, handler)
	if opts.TrustProxy {
		handler = handlers.ProxyHeaders(handler)
	}

	s := &Server{
		Config:        cfg,
		Router:        router,
		DB:            db,
		Log:           log,
		PublicLimiter: middleware.NewRateLimiter(float64(cfg.PublicRateLimit), cfg.PublicRateBurst, log),
		srv: &http.Server{
			Handler:           handler,
			Addr:              opts.Host + ":" + opts.Port,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}

	if db != nil {
		s.UsersStore = gormstore.NewUsersStore(db)
		s.ProjectsStore = gormstore.NewProjectsStore(db)
		s.RequestsStore = gormstore.NewRequestsStore(db)
		s.AssessmentsStore = gormstore.NewAssessmentsStore(db)
		s.JobsStore = gormstore.NewJobsStore(db)
		s.BookingsStore = gormstore.NewBookingsStore(db)
		s.NewsStore = gormstore.NewNewsStore(db)
		s.HealthStore = gormstore.NewHealthStore(db)
	}

	return s
}

// Handler returns the fully wrapped handler, for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Protected wraps h with bearer token authentication
func (s *Server) Protected(h http.HandlerFunc) http.Handler {
	return s.Authenticator.Middleware(h)
}

// AdminOnly wraps h with authentication and the admin role check
func (s *Server) AdminOnly(h http.HandlerFunc) http.Handler {
	return s.Authenticator.Middleware(middleware.RequireAdmin(h))
}

// Limited wraps a public handler with the per-client rate limiter
func (s *Server) Limited(h http.HandlerFunc) http.Handler {
	return s.PublicLimiter.Middleware(h)
}

// Start serves until Shutdown; http.ErrServerClosed is not an error
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
