package domain

import "time"

// ReportStatus enumerates lifecycle states for citizen reports.
type ReportStatus string

const (
	ReportStatusPendingApproval ReportStatus = "PENDING_APPROVAL"
	ReportStatusAssigned        ReportStatus = "ASSIGNED"
	ReportStatusInProgress      ReportStatus = "IN_PROGRESS"
	ReportStatusSuspended       ReportStatus = "SUSPENDED"
	ReportStatusResolved        ReportStatus = "RESOLVED"
	ReportStatusRejected        ReportStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is possible.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusRejected
}

// MaxPhotosPerReport caps the stored-image references on a report.
const MaxPhotosPerReport = 3

// MaxDescriptionLength bounds the free-text description.
const MaxDescriptionLength = 200

// Location is a geolocated submission point. Address is a cached
// human-readable string, not authoritative.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Report is the aggregate for citizen-submitted civic issues.
//
// ReporterID is always recorded for audit; anonymous reports only withhold it
// from staff-facing representations. InternalAssigneeID is set when the
// report leaves PENDING_APPROVAL and never cleared afterwards.
// ExternalAssigneeID may only be set by the internal assignee while the
// report is in a non-terminal status.
type Report struct {
	ID                 string
	ReporterID         string
	DepartmentID       *string
	Title              string
	Description        string
	Category           string
	Location           Location
	Photos             []string
	IsAnonymous        bool
	Status             ReportStatus
	RejectionReason    *string
	InternalAssigneeID *string
	ExternalAssigneeID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
