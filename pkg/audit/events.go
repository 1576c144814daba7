package audit

import (
	"fmt"
	"strconv"
	"time"
)

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func failureMessage(msg, errMsg string) string {
	if errMsg != "" {
		msg += ": " + errMsg
	}
	return msg
}

// ProjectEvent records a project being created, updated or deleted
type ProjectEvent struct {
	UserID       string
	ClientIP     string
	ProjectID    uint
	Title        string
	Operation    string // "create", "update", "delete"
	Success      bool
	ErrorMessage string
}

func (e ProjectEvent) MessageID() string {
	return "project"
}

func (e ProjectEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s %sd project %d (%s)", e.UserID, e.Operation, e.ProjectID, e.Title)
	}
	return failureMessage(fmt.Sprintf("%s tried to %s project %d", e.UserID, e.Operation, e.ProjectID), e.ErrorMessage)
}

func (e ProjectEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e ProjectEvent) Facility() int {
	return FacilityUser
}

func (e ProjectEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.UserID},
		SDIDSubject: {"project": strconv.FormatUint(uint64(e.ProjectID), 10)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
	}
}

// StepEvent records a change to a project's step list
type StepEvent struct {
	UserID    string
	ClientIP  string
	ProjectID uint
	StepID    uint
	Title     string
	Operation string // "add", "complete", "reopen", "delete"
	Progress  int
}

func (e StepEvent) MessageID() string {
	return "step"
}

func (e StepEvent) Message() string {
	verb := map[string]string{
		"add":      "added",
		"complete": "completed",
		"reopen":   "reopened",
		"delete":   "deleted",
	}[e.Operation]
	if verb == "" {
		verb = e.Operation
	}
	return fmt.Sprintf("%s %s step %q on project %d (progress %d%%)", e.UserID, verb, e.Title, e.ProjectID, e.Progress)
}

func (e StepEvent) Severity() Severity {
	return SeverityInfo
}

func (e StepEvent) Facility() int {
	return FacilityUser
}

func (e StepEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {"user": e.UserID},
		SDIDSubject: {
			"project":  strconv.FormatUint(uint64(e.ProjectID), 10),
			"step":     strconv.FormatUint(uint64(e.StepID), 10),
			"progress": strconv.Itoa(e.Progress),
		},
		SDIDClient: {"ip": e.ClientIP},
		SDIDAction: {"operation": e.Operation, "result": "success"},
	}
}

// ReviewEvent records an admin decision on a client request
type ReviewEvent struct {
	UserID       string
	ClientIP     string
	Kind         string // "resource-request", "project-request"
	RequestID    uint
	Decision     string
	ProjectID    *uint
	Success      bool
	ErrorMessage string
}

func (e ReviewEvent) MessageID() string {
	return "review"
}

func (e ReviewEvent) Message() string {
	if e.Success {
		msg := fmt.Sprintf("%s %s %s %d", e.UserID, e.Decision, e.Kind, e.RequestID)
		if e.ProjectID != nil {
			msg += fmt.Sprintf(" creating project %d", *e.ProjectID)
		}
		return msg
	}
	return failureMessage(fmt.Sprintf("%s tried to review %s %d", e.UserID, e.Kind, e.RequestID), e.ErrorMessage)
}

func (e ReviewEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e ReviewEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ReviewEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth:    {"user": e.UserID},
		SDIDSubject: {e.Kind: strconv.FormatUint(uint64(e.RequestID), 10)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "review", "decision": e.Decision, "result": result(e.Success)},
	}
	if e.ProjectID != nil {
		sd[SDIDSubject]["project"] = strconv.FormatUint(uint64(*e.ProjectID), 10)
	}
	return sd
}

// BookingEvent records a consultation booking state change
type BookingEvent struct {
	BookingID string
	Email     string
	ClientIP  string
	Operation string // "created", "confirmed", "cancelled"
	SlotStart time.Time
}

func (e BookingEvent) MessageID() string {
	return "booking"
}

func (e BookingEvent) Message() string {
	return fmt.Sprintf("booking %s for %s at %s %s", e.BookingID, e.Email, e.SlotStart.UTC().Format(time.RFC3339), e.Operation)
}

func (e BookingEvent) Severity() Severity {
	if e.Operation == "cancelled" {
		return SeverityNotice
	}
	return SeverityInfo
}

func (e BookingEvent) Facility() int {
	return FacilityUser
}

func (e BookingEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth:    {"user": e.Email},
		SDIDSubject: {"booking": e.BookingID, "slot": e.SlotStart.UTC().Format(time.RFC3339)},
		SDIDAction:  {"operation": e.Operation, "result": "success"},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
