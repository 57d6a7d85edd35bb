package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleEncarregado UserRole = "Encarregado"
	RoleSupervisor  UserRole = "Supervisor"
	RoleCCO         UserRole = "CCO (Admin)"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleEncarregado, RoleSupervisor, RoleCCO:
		return true
	}
	return false
}

// ReservedAdminRegistration identifies the seed administrator, which can
// never be deleted.
const ReservedAdminRegistration = "admin"

// DefaultEmailDomain is appended to bare registrations to build the login email.
const DefaultEmailDomain = "ciclus.com"

// User is an authenticated actor. The table keeps the historical "profiles" name.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Registration string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"registration"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(30);not null" json:"role"`
	Team         string    `gorm:"type:varchar(20)" json:"team,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (User) TableName() string {
	return "profiles"
}

// LoginEmail maps a registration number to its login email. Values that
// already look like an email are returned unchanged.
func LoginEmail(registration string) string {
	registration = strings.TrimSpace(registration)
	if strings.Contains(registration, "@") {
		return strings.ToLower(registration)
	}
	return strings.ToLower(registration) + "@" + DefaultEmailDomain
}

// Actor is the acting user of a request: identity plus role.
type Actor struct {
	ID   string
	Role UserRole
}
