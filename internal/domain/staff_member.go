package domain

import (
	"strings"
	"time"
)

// Well-known staff role names. Other role names are department-specific and
// resolved to a report category through the routing table.
const (
	RoleAdministrator   = "administrator"
	RolePublicRelations = "public relations officer"
)

// StaffMember models a municipal employee.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleName     string
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsBackOffice reports whether the member may approve or reject submissions
// regardless of department. Administrators and public-relations officers see
// every category.
func (s *StaffMember) IsBackOffice() bool {
	if s == nil {
		return false
	}
	role := strings.ToLower(strings.TrimSpace(s.RoleName))
	return role == RoleAdministrator || role == RolePublicRelations
}
