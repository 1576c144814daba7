// halyardctl is the command line entry point for Halyard, the backend of an
// AI consulting site with a small client-operations CRM.
//
// # Architecture
//
// The server is organized into several packages:
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/server/middleware: authentication, rate limiting, recovery, CORS
//   - pkg/server/store: store interfaces and their GORM implementations
//   - pkg/scoring: readiness questionnaire and scoring
//   - pkg/jobs: background report generation
//   - pkg/feeds: news ingestion
//   - pkg/content: markdown blog
//   - pkg/payments, pkg/calendar, pkg/email, pkg/llm, pkg/pdf: integrations
//   - pkg/audit: RFC 5424 activity log
//   - pkg/config: configuration management
//
// # Quick Start
//
//	# Apply the schema
//	halyardctl db migrate
//
//	# Start the server
//	halyardctl server
//
//	# Give a colleague admin rights
//	halyardctl user promote colleague@halyard.example
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - HALYARD_CONFIG_PATH: directory holding halyard.yml
//   - HALYARD_LOG_LEVEL: Log level (debug, info, warn, error)
//   - PORT: Server port (default: 8000)
//
// See pkg/config for the full list.
package main
