package domain

import "time"

// Company is a contracted external maintenance company. Category names the
// single report category the company services.
type Company struct {
	ID        string
	Name      string
	Category  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalUser is a maintainer employed by exactly one company.
type ExternalUser struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
