package domain

import "time"

// Department represents a municipal organizational unit. Department names are
// effectively 1:1 with report categories ("Sewer System", "Public Lighting").
type Department struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is an organizational role record.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// DepartmentRole is the many-to-many join determining which roles exist in
// which department. It is seeded externally and consumed as-is.
type DepartmentRole struct {
	ID           string
	DepartmentID string
	RoleID       string
}
