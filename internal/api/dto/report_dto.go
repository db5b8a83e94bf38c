package dto

import (
	"time"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// CreateReportRequest payload for a citizen submission.
type CreateReportRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     string   `json:"address"`
	Photos      []string `json:"photos"`
	IsAnonymous bool     `json:"is_anonymous"`
}

// UpdateStatusRequest payload for workflow transitions. The caller names the
// target status; the server derives the transition event from it.
type UpdateStatusRequest struct {
	NewStatus       domain.ReportStatus `json:"new_status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
}

// AssignExternalRequest payload for delegating a report to a maintainer.
type AssignExternalRequest struct {
	ExternalAssigneeID string `json:"external_assignee_id"`
}

// LocationResponse echoes the submitted coordinates.
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// ReportResponse is the canonical report representation. ReporterID is nil
// when the report is anonymous and the viewer is not the reporter.
type ReportResponse struct {
	ID                 string              `json:"id"`
	ReporterID         *string             `json:"reporter_id"`
	DepartmentID       *string             `json:"department_id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	Location           LocationResponse    `json:"location"`
	Photos             []string            `json:"photos"`
	IsAnonymous        bool                `json:"is_anonymous"`
	Status             domain.ReportStatus `json:"status"`
	RejectionReason    *string             `json:"rejection_reason,omitempty"`
	InternalAssigneeID *string             `json:"internal_assignee_id,omitempty"`
	ExternalAssigneeID *string             `json:"external_assignee_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// RoleResponse describes a role attached to a department.
type RoleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DepartmentResponse describes a municipal department and its roles.
type DepartmentResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Roles []RoleResponse `json:"roles"`
}
