// Package mapper converts reports between their in-memory shape and the
// persisted "rds" row. It is the only place that knows the storage layout.
package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"gorm.io/datatypes"
)

// ToRow flattens a report into its row shape without losing any field.
func ToRow(r models.Report) models.ReportRow {
	row := models.ReportRow{
		ID:                  r.ID,
		SchemaVersion:       models.ReportSchemaVersion,
		ForemanID:           r.ForemanID,
		ForemanName:         r.ForemanName,
		ForemanRegistration: r.ForemanRegistration,
		SupervisorID:        r.SupervisorID,
		SupervisorName:      r.SupervisorName,
		Status:              string(r.Status),
		Base:                string(r.Base),
		Shift:               string(r.Shift),
		Team:                r.Team,
		ForemanTeam:         r.ForemanTeam,
		SupervisorTeam:      r.SupervisorTeam,
		ServiceCategory:     string(r.ServiceCategory),
		Street:              r.Street,
		Neighborhood:        r.Neighborhood,
		Perimeter:           r.Perimeter,
		Metrics:             mustJSON(r.Metrics),
		Segments:            mustJSON(nonNilSegments(r.Segments)),
		TeamAttendance:      mustJSON(nonNilAttendance(r.TeamAttendance)),
		Photos:              mustJSON(r.Photos),
		Observations:        r.Observations,
		SupervisorNote:      r.SupervisorNote,
		CreatedAt:           r.CreatedAt,
	}
	if !r.Date.IsZero() {
		row.Date = r.Date.Format(time.RFC3339Nano)
		row.Day = r.Day()
	}
	if r.Location != nil {
		row.Location = mustJSON(r.Location)
	}
	return row
}

// FromRow rebuilds a report from a row. Absent metric fields default to zero
// and absent collections to empty, so rows written by older schema versions
// still load. A malformed blob leaves its field at the default and is
// reported through the returned error.
func FromRow(row models.ReportRow) (models.Report, error) {
	r := models.Report{
		ID:                  row.ID,
		ForemanID:           row.ForemanID,
		ForemanName:         row.ForemanName,
		ForemanRegistration: row.ForemanRegistration,
		SupervisorID:        row.SupervisorID,
		SupervisorName:      row.SupervisorName,
		Status:              models.ReportStatus(row.Status),
		Base:                models.Base(row.Base),
		Shift:               models.Shift(row.Shift),
		Team:                row.Team,
		ForemanTeam:         row.ForemanTeam,
		SupervisorTeam:      row.SupervisorTeam,
		ServiceCategory:     models.ServiceCategory(row.ServiceCategory),
		Street:              row.Street,
		Neighborhood:        row.Neighborhood,
		Perimeter:           row.Perimeter,
		Observations:        row.Observations,
		SupervisorNote:      row.SupervisorNote,
		CreatedAt:           row.CreatedAt,
		Segments:            []models.TrackSegment{},
		TeamAttendance:      []models.AttendanceRecord{},
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	var errs []error
	if row.Date != "" {
		d, err := parseDate(row.Date)
		if err != nil {
			errs = append(errs, fmt.Errorf("date: %w", err))
		}
		r.Date = d
	}
	if err := decodeBlob(row.Metrics, &r.Metrics); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	if err := decodeBlob(row.Segments, &r.Segments); err != nil {
		errs = append(errs, fmt.Errorf("segments: %w", err))
	}
	if err := decodeBlob(row.TeamAttendance, &r.TeamAttendance); err != nil {
		errs = append(errs, fmt.Errorf("team_attendance: %w", err))
	}
	if err := decodeBlob(row.Photos, &r.Photos); err != nil {
		errs = append(errs, fmt.Errorf("photos: %w", err))
	}
	if !isEmptyBlob(row.Location) {
		var loc models.GeoLocation
		if err := json.Unmarshal(row.Location, &loc); err != nil {
			errs = append(errs, fmt.Errorf("location: %w", err))
		} else {
			r.Location = &loc
		}
	}
	if r.Segments == nil {
		r.Segments = []models.TrackSegment{}
	}
	if r.TeamAttendance == nil {
		r.TeamAttendance = []models.AttendanceRecord{}
	}

	if len(errs) > 0 {
		return r, fmt.Errorf("report %s: %v", row.ID, errs)
	}
	return r, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(models.DayLayout, s)
}

func decodeBlob(raw datatypes.JSON, dst interface{}) error {
	if isEmptyBlob(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isEmptyBlob(raw datatypes.JSON) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == `""`
}

func mustJSON(v interface{}) datatypes.JSON {
	// plain data structs without channels or NaN always marshal
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func nonNilSegments(s []models.TrackSegment) []models.TrackSegment {
	if s == nil {
		return []models.TrackSegment{}
	}
	return s
}

func nonNilAttendance(a []models.AttendanceRecord) []models.AttendanceRecord {
	if a == nil {
		return []models.AttendanceRecord{}
	}
	return a
}
