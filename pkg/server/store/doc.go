// Package store provides storage abstractions for the Halyard server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints and background workers to be decoupled from GORM.
// Implementations live in the gorm subpackage; tests use mocks.
//
// # Available Stores
//
//   - UsersStore: users and roles
//   - ProjectsStore: projects, steps and derived progress
//   - RequestsStore: resource and project requests with review
//   - AssessmentsStore: quiz submissions
//   - JobsStore: document job status rows
//   - BookingsStore: consultation bookings
//   - NewsStore: ingested feed items
//   - HealthStore: database connectivity
//
// # Usage
//
//	projects := gorm.NewProjectsStore(db)
//	p, err := projects.GetProject(id)
//	if err != nil {
//	    if errors.Is(err, store.ErrNotFound) {
//	        // Handle not found
//	    }
//	}
package store
