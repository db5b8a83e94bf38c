package events

import (
	"time"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated          EventType = "report_created"
	EventReportStatusChanged    EventType = "report_status_changed"
	EventReportExternalAssigned EventType = "report_external_assigned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	UserID     *string            `json:"user_id,omitempty"`
	StaffID    *string            `json:"staff_id,omitempty"`
	ExternalID *string            `json:"external_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	Category     string  `json:"category"`
	DepartmentID *string `json:"department_id,omitempty"`
	Title        string  `json:"title"`
	IsAnonymous  bool    `json:"is_anonymous"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	OldStatus       domain.ReportStatus `json:"old_status"`
	NewStatus       domain.ReportStatus `json:"new_status"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
}

// ReportExternalAssignedPayload payload.
type ReportExternalAssignedPayload struct {
	ExternalAssigneeID string  `json:"external_assignee_id"`
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
}
