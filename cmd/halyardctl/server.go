package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/halyard-advisory/halyard/pkg/audit"
	"github.com/halyard-advisory/halyard/pkg/calendar"
	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/content"
	"github.com/halyard-advisory/halyard/pkg/db"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/feeds"
	"github.com/halyard-advisory/halyard/pkg/jobs"
	"github.com/halyard-advisory/halyard/pkg/llm"
	"github.com/halyard-advisory/halyard/pkg/payments"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/endpoints"
	"github.com/halyard-advisory/halyard/pkg/server/middleware"
)

const (
	shutdownTimeout     = 30 * time.Second
	limiterCleanupEvery = time.Minute
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Halyard API server",
	Long: `Run the Halyard API server.

The server requires DATABASE_URL. By default, database migrations are run on
startup. Use --no-migrate to skip.

Optional integrations are enabled by their configuration:
  - ANTHROPIC_API_KEY drafts readiness reports (a template is used otherwise)
  - STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET enable paid bookings
  - HALYARD_CALENDAR_API_KEY enables consultation availability
  - HALYARD_EMAIL_API_KEY sends mail (it is logged otherwise)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		log := newLogger(cfg.LogLevel, cfg.IsProduction())

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Info("running database migrations")
			if err := runMigrations(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		return runServer(cfg, log, host, port)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func runServer(cfg *config.Config, log *logrus.Logger, host, port string) error {
	database, err := db.Connect(db.Config{LogLevel: cfg.LogLevel})
	if err != nil {
		return err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	audit.UseStore(audit.NewStoreWithDB(sqlDB))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.NewServer(cfg, database, log, server.Options{
		Host:       host,
		Port:       port,
		TrustProxy: cfg.IsProduction(),
		AccessLog:  log.WriterLevel(logrus.InfoLevel),
	})

	var verifier middleware.TokenVerifier
	if cfg.AuthJWKSURL != "" {
		verifier, err = middleware.NewJWKSVerifier(ctx, cfg.AuthJWKSURL)
		if err != nil {
			return fmt.Errorf("failed to load JWKS: %w", err)
		}
	} else {
		verifier, err = middleware.NewHMACVerifier(cfg.AuthJWTSecret)
		if err != nil {
			return fmt.Errorf("invalid auth configuration: %w", err)
		}
	}
	s.Authenticator = middleware.NewJWTAuthenticator(verifier, s.UsersStore, cfg.IsAdminEmail, log)
	s.PublicLimiter.StartCleanup(ctx, limiterCleanupEvery)

	s.Mailer = newMailer(cfg, log)

	drafter, err := newDrafter(cfg, log)
	if err != nil {
		return err
	}
	runner := jobs.NewRunner(s.JobsStore, s.AssessmentsStore, drafter, s.Mailer, log, jobs.Options{SiteURL: cfg.SiteURL})
	s.Jobs = runner

	if cfg.StripeSecretKey != "" {
		checkout, err := payments.NewStripeCheckout(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.SiteURL, nil)
		if err != nil {
			return fmt.Errorf("invalid payments configuration: %w", err)
		}
		s.Payments = checkout
	} else {
		log.Warn("payments are not configured; bookings are disabled")
	}
	if cfg.CalendarAPIKey != "" {
		s.Calendar = calendar.NewClient(cfg.CalendarBaseURL, cfg.CalendarAPIKey, cfg.CalendarEventTypeID, cfg.BookingDuration())
	} else {
		log.Warn("calendar is not configured; bookings are disabled")
	}

	if cfg.ContentDir != "" {
		blog := content.NewLibrary(cfg.ContentDir, log)
		if err := blog.Load(); err != nil {
			log.WithError(err).Warn("blog content failed to load")
		}
		s.Blog = blog
		go func() {
			if err := blog.Watch(ctx); err != nil {
				log.WithError(err).Warn("blog watcher stopped")
			}
		}()
	}

	sources, err := cfg.Feeds()
	if err != nil {
		return err
	}
	aggregator := feeds.NewAggregator(sources, feeds.NewHTTPFetcher(nil), s.NewsStore, log)
	s.News = aggregator
	if len(sources) > 0 {
		go aggregator.Run(ctx, cfg.NewsInterval())
	}

	endpoints.RegisterAll(s)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.Addr()).Info("server listening")
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown did not complete")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("document jobs still running at shutdown")
	}
	return nil
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) email.Mailer {
	if cfg.EmailAPIKey == "" {
		log.Warn("email is not configured; messages will be logged")
		return email.NewLogMailer(log)
	}
	return email.NewHTTPMailer(cfg.EmailBaseURL, cfg.EmailAPIKey, cfg.EmailFrom)
}

func newDrafter(cfg *config.Config, log logrus.FieldLogger) (llm.Drafter, error) {
	if cfg.AnthropicAPIKey == "" {
		log.Warn("no Anthropic API key; reports use the built-in template")
		return llm.NewTemplateDrafter(), nil
	}
	drafter, err := llm.NewAnthropicDrafter(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	if err != nil {
		return nil, fmt.Errorf("failed to configure drafter: %w", err)
	}
	return drafter, nil
}
