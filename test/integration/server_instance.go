package integration

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/db"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/jobs"
	"github.com/halyard-advisory/halyard/pkg/llm"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/endpoints"
	"github.com/halyard-advisory/halyard/pkg/server/middleware"
)

// serverEnv is the environment both modes run with. External providers stay
// unconfigured so mail is logged and reports use the template drafter.
func serverEnv(dbURL string) []string {
	return []string{
		"DATABASE_URL=" + dbURL,
		"HALYARD_ENVIRONMENT=test",
		"HALYARD_SITE_URL=http://halyard.test",
		"HALYARD_AUTH_JWT_SECRET=" + testJWTSecret,
		"HALYARD_AUTH_ADMIN_EMAILS=" + testAdminEmail,
		"HALYARD_PUBLIC_RATE_LIMIT=1000",
		"HALYARD_PUBLIC_RATE_BURST=1000",
		"HALYARD_LOG_LEVEL=warn",
	}
}

// startInlineServer runs the server in-process (no binary needed)
func startInlineServer(dbURL, port string) (*server.Server, context.CancelFunc, error) {
	for _, kv := range serverEnv(dbURL) {
		key, value, _ := strings.Cut(kv, "=")
		_ = os.Setenv(key, value)
	}
	if err := config.Reload(); err != nil {
		return nil, nil, err
	}
	cfg := config.Get()

	database, err := db.Connect(db.Config{URL: dbURL})
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	s := server.NewServer(cfg, database, log, server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		AccessLog: io.Discard,
	})
	verifier, err := middleware.NewHMACVerifier(testJWTSecret)
	if err != nil {
		return nil, nil, err
	}
	s.Authenticator = middleware.NewJWTAuthenticator(verifier, s.UsersStore, cfg.IsAdminEmail, log)
	s.Mailer = email.NewLogMailer(log)

	runner := jobs.NewRunner(s.JobsStore, s.AssessmentsStore, llm.NewTemplateDrafter(), s.Mailer, log, jobs.Options{SiteURL: cfg.SiteURL})
	s.Jobs = runner

	endpoints.RegisterAll(s)

	go func() {
		if err := s.Start(); err != nil {
			log.WithError(err).Error("inline server stopped")
		}
	}()

	cancel := func() {
		_ = runner.Shutdown(context.Background())
	}
	return s, cancel, nil
}

// startBinary starts the halyardctl server binary
func startBinary(binaryPath, dbURL, port string) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Migrations already ran in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "--env-file", "", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(), serverEnv(dbURL)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}
