package domain

import "time"

// SubjectType differentiates citizen, staff and external-maintainer tokens.
type SubjectType string

const (
	SubjectTypeUser     SubjectType = "USER"
	SubjectTypeStaff    SubjectType = "STAFF"
	SubjectTypeExternal SubjectType = "EXTERNAL"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *string
	ExpiresAt time.Time
	IssuedAt  time.Time
}
