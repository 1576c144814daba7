// Package model defines the database models for Halyard.
//
// The models are GORM structs mapped onto the schema in db/migrations.
//
// # Core Models
//
//   - User: people known through the identity provider (admin or client)
//   - Project, ProjectStep: client engagements and their checklists
//   - ResourceRequest, ProjectRequest: client asks reviewed by admins
//   - AssessmentSubmission: scored AI-readiness quiz entries
//   - DocumentJob: polled status rows for report generation
//   - Booking: paid consultation slots
//   - NewsItem: ingested feed entries
//
// Statuses are stored as plain strings and constrained by CHECK clauses in
// the schema.
package model
