// Package config provides configuration management for Halyard.
//
// Configuration is read from an optional YAML file and then overridden by
// environment variables. Every attribute remembers where its value came
// from so that `halyardctl configuration show` can report it.
//
// # Configuration Sources
//
//   - $HALYARD_CONFIG_PATH/halyard.yml (default /etc/halyard/halyard.yml)
//   - Environment variables (take precedence)
//
// # Key Configuration Options
//
//   - DATABASE_URL: Database connection
//   - HALYARD_AUTH_JWKS_URL / HALYARD_AUTH_JWT_SECRET: Token verification
//   - ANTHROPIC_API_KEY: Report drafting
//   - STRIPE_SECRET_KEY / STRIPE_WEBHOOK_SECRET: Consultation payments
//   - HALYARD_NEWS_FEEDS: Comma separated name=url feed list
//   - PORT: Server listen port
package config
