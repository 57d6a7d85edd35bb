package models

import "time"

type Employee struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Registration string    `gorm:"type:varchar(64);not null;index" json:"registration"`
	Role         string    `gorm:"type:varchar(100);not null" json:"role"`
	SupervisorID string    `gorm:"type:varchar(64);index" json:"supervisorId,omitempty"`
	ForemanID    string    `gorm:"type:varchar(64);index" json:"foremanId,omitempty"`
	Team         string    `gorm:"type:varchar(20)" json:"team,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// DefaultJobRoles are offered even before any employee uses them.
var DefaultJobRoles = []string{"Ajudante", "Gari", "Pintor", "Roçador", "OP. Roçadeira", "ASG", "Motorista"}

// Snapshot copies the employee into an attendance entry.
func (e Employee) Snapshot(present bool) AttendanceRecord {
	return AttendanceRecord{
		EmployeeID:   e.ID,
		Name:         e.Name,
		Registration: e.Registration,
		Role:         e.Role,
		Present:      present,
	}
}
