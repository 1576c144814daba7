// Package audit provides the activity log for CRM changes.
//
// Every project, step, request review and booking transition is written as
// an RFC5424 syslog line and, when a database is configured, persisted to
// the activity_log table.
//
// # Event Types
//
//   - ProjectEvent: project created, updated or deleted
//   - StepEvent: step added, completed, reopened or deleted
//   - ReviewEvent: resource or project request approved or rejected
//   - BookingEvent: consultation created, confirmed or cancelled
//
// # Usage
//
//	audit.Log(audit.ProjectEvent{
//	    UserID:    id.Email,
//	    ClientIP:  r.RemoteAddr,
//	    ProjectID: p.ID,
//	    Title:     p.Title,
//	    Operation: "create",
//	    Success:   true,
//	})
//
// Logging is disabled with HALYARD_AUDIT_ENABLED=false. Persistence uses the
// store passed to UseStore, or HALYARD_AUDIT_DATABASE_URL when none is set.
package audit
