package models

import (
	"strings"
	"time"
)

// DayLayout is the calendar-day form used for date filters and grouping.
const DayLayout = "2006-01-02"

// MonthLayout is the year-month form used for month filters.
const MonthLayout = "2006-01"

type ReportStatus string

const (
	StatusPending  ReportStatus = "Pendente"
	StatusApproved ReportStatus = "Aprovado"
	StatusRejected ReportStatus = "Recusado"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Base string

const (
	BaseNorte Base = "Norte - Providência"
	BaseSul   Base = "Sul - Vileta"
)

type Shift string

const (
	ShiftDiurno  Shift = "Diurno"
	ShiftNoturno Shift = "Noturno"
)

type ServiceCategory string

const (
	CategoryCapinacaoGrupo ServiceCategory = "Capinação e Raspagem (Grupo)"
	CategoryRocagem        ServiceCategory = "Roçagem"
	CategoryMutirao        ServiceCategory = "Mutirão (Geral)"
	CategoryVarricao       ServiceCategory = "Varrição"
)

// ProductionMetrics holds the four quantities reported per RD.
type ProductionMetrics struct {
	CapinaM          float64 `json:"capinaM"`
	PinturaViasM     float64 `json:"pinturaViasM"`
	PinturaPostesUnd float64 `json:"pinturaPostesUnd"`
	RocagemM2        float64 `json:"rocagemM2"`
}

func (m ProductionMetrics) Add(o ProductionMetrics) ProductionMetrics {
	return ProductionMetrics{
		CapinaM:          m.CapinaM + o.CapinaM,
		PinturaViasM:     m.PinturaViasM + o.PinturaViasM,
		PinturaPostesUnd: m.PinturaPostesUnd + o.PinturaPostesUnd,
		RocagemM2:        m.RocagemM2 + o.RocagemM2,
	}
}

func (m ProductionMetrics) Total() float64 {
	return m.CapinaM + m.PinturaViasM + m.PinturaPostesUnd + m.RocagemM2
}

// GeoLocation is a GPS fix. Timestamp is in Unix milliseconds.
type GeoLocation struct {
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
	Timestamp      int64    `json:"timestamp"`
	AddressFromGPS string   `json:"addressFromGPS,omitempty"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TrackSegment is a measured stretch of work recorded while walking a path.
type TrackSegment struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"` // CAPINA or ROCAGEM
	StartedAt       string      `json:"startedAt"`
	EndedAt         string      `json:"endedAt"`
	StartLocation   GeoLocation `json:"startLocation"`
	EndLocation     GeoLocation `json:"endLocation"`
	Distance        float64     `json:"distance"`
	Width           *float64    `json:"width,omitempty"`
	CalculatedValue float64     `json:"calculatedValue"`
	PathPoints      []GeoPoint  `json:"pathPoints"`
}

// AttendanceRecord is a snapshot of an employee on the report date. It is
// copied into the report and never follows later edits of the employee.
type AttendanceRecord struct {
	EmployeeID   string `json:"employeeId"`
	Name         string `json:"name"`
	Registration string `json:"registration"`
	Role         string `json:"role"`
	Present      bool   `json:"present"`
}

type ReportPhotos struct {
	Initial   string `json:"workPhotoInitial,omitempty"`
	Progress  string `json:"workPhotoProgress,omitempty"`
	Final     string `json:"workPhotoFinal,omitempty"`
	Legacy    string `json:"workPhotoUrl,omitempty"`
	Signature string `json:"signatureImageUrl,omitempty"`
}

// Complete reports whether the three mandatory photos are attached.
func (p ReportPhotos) Complete() bool {
	return strings.TrimSpace(p.Initial) != "" &&
		strings.TrimSpace(p.Progress) != "" &&
		strings.TrimSpace(p.Final) != ""
}

// Report is a daily production record (RD).
type Report struct {
	ID                  string             `json:"id"`
	Date                time.Time          `json:"date"`
	ForemanID           string             `json:"foremanId"`
	ForemanName         string             `json:"foremanName"`
	ForemanRegistration string             `json:"foremanRegistration,omitempty"`
	SupervisorID        string             `json:"supervisorId,omitempty"`
	SupervisorName      string             `json:"supervisorName,omitempty"`
	Status              ReportStatus       `json:"status"`
	Base                Base               `json:"base,omitempty"`
	Shift               Shift              `json:"shift,omitempty"`
	Team                string             `json:"team,omitempty"`
	ForemanTeam         string             `json:"foremanTeam,omitempty"`
	SupervisorTeam      string             `json:"supervisorTeam,omitempty"`
	ServiceCategory     ServiceCategory    `json:"serviceCategory"`
	Street              string             `json:"street"`
	Neighborhood        string             `json:"neighborhood"`
	Perimeter           string             `json:"perimeter"`
	Location            *GeoLocation       `json:"location,omitempty"`
	Segments            []TrackSegment     `json:"segments"`
	Metrics             ProductionMetrics  `json:"metrics"`
	TeamAttendance      []AttendanceRecord `json:"teamAttendance"`
	Photos              ReportPhotos       `json:"photos"`
	Observations        string             `json:"observations,omitempty"`
	SupervisorNote      string             `json:"supervisorNote,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// Day returns the calendar day of the report, ignoring the time of day.
func (r Report) Day() string {
	return r.Date.Format(DayLayout)
}

func (r Report) PresentCount() int {
	n := 0
	for _, a := range r.TeamAttendance {
		if a.Present {
			n++
		}
	}
	return n
}
