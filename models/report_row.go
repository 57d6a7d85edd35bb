package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReportSchemaVersion tags rows written with the canonical shape: scalar
// columns plus JSON blobs for metrics, attendance, location, segments and photos.
const ReportSchemaVersion = 2

// ReportRow is the persisted shape of a Report in the "rds" table.
type ReportRow struct {
	ID                  string         `gorm:"primaryKey;type:varchar(64)"`
	SchemaVersion       int            `gorm:"not null;default:1"`
	Date                string         `gorm:"type:varchar(40);not null"`
	Day                 string         `gorm:"type:varchar(10);index"`
	ForemanID           string         `gorm:"type:varchar(64);index"`
	ForemanName         string         `gorm:"type:varchar(255)"`
	ForemanRegistration string         `gorm:"type:varchar(64)"`
	SupervisorID        string         `gorm:"type:varchar(64);index"`
	SupervisorName      string         `gorm:"type:varchar(255)"`
	Status              string         `gorm:"type:varchar(20);not null;default:'Pendente';index"`
	Base                string         `gorm:"type:varchar(50)"`
	Shift               string         `gorm:"type:varchar(20)"`
	Team                string         `gorm:"type:varchar(20)"`
	ForemanTeam         string         `gorm:"type:varchar(20)"`
	SupervisorTeam      string         `gorm:"type:varchar(20)"`
	ServiceCategory     string         `gorm:"type:varchar(60)"`
	Street              string         `gorm:"type:varchar(255)"`
	Neighborhood        string         `gorm:"type:varchar(255)"`
	Perimeter           string         `gorm:"type:text"`
	Location            datatypes.JSON `gorm:"column:location"`
	Metrics             datatypes.JSON `gorm:"column:metrics"`
	Segments            datatypes.JSON `gorm:"column:segments"`
	TeamAttendance      datatypes.JSON `gorm:"column:team_attendance"`
	Photos              datatypes.JSON `gorm:"column:photos"`
	Observations        string         `gorm:"type:text"`
	SupervisorNote      string         `gorm:"type:text"`
	CreatedAt           time.Time      `gorm:"not null;index"`
	UpdatedAt           time.Time
}

func (ReportRow) TableName() string {
	return "rds"
}
