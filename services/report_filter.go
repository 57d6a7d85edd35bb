package services

import (
	"sort"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
)

// StatusAll disables the status predicate. It also disables the supervisor,
// foreman and shift predicates of AnalyticsFilter.
const StatusAll = "ALL"

type DateMode string

const (
	DateModeMonth DateMode = "month"
	DateModeDay   DateMode = "day"
)

// ReportFilter is the dashboard filter set. Zero values mean "no restriction".
type ReportFilter struct {
	Status    string   `form:"status" json:"status"`
	DateMode  DateMode `form:"dateMode" json:"dateMode"`
	DateValue string   `form:"date" json:"date"`
	Search    string   `form:"q" json:"q"`
}

// AnalyticsFilter narrows the indicators screen further.
type AnalyticsFilter struct {
	ReportFilter
	SupervisorID string `form:"supervisorId" json:"supervisorId"`
	ForemanID    string `form:"foremanId" json:"foremanId"`
	Shift        string `form:"shift" json:"shift"`
}

// CanView applies the role visibility rule.
func CanView(r models.Report, viewer models.Actor) bool {
	switch viewer.Role {
	case models.RoleCCO:
		return true
	case models.RoleSupervisor:
		return r.SupervisorID == viewer.ID || r.ForemanID == viewer.ID
	case models.RoleEncarregado:
		return r.ForemanID == viewer.ID
	}
	return false
}

// FilterReports returns the reports the viewer may see that match f, most
// recent first. The input slice is not modified.
func FilterReports(reports []models.Report, viewer models.Actor, f ReportFilter) []models.Report {
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if !CanView(r, viewer) {
			continue
		}
		if !matchStatus(r, f.Status) || !matchDate(r, f.DateMode, f.DateValue) || !matchText(r, term) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// FilterAnalytics applies FilterReports and then the analytics-only predicates.
func FilterAnalytics(reports []models.Report, viewer models.Actor, f AnalyticsFilter) []models.Report {
	base := FilterReports(reports, viewer, f.ReportFilter)
	out := base[:0]
	for _, r := range base {
		if !matchOptional(r.SupervisorID, f.SupervisorID) ||
			!matchOptional(r.ForemanID, f.ForemanID) ||
			!matchOptional(string(r.Shift), f.Shift) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchStatus(r models.Report, status string) bool {
	if status == "" || status == StatusAll {
		return true
	}
	return string(r.Status) == status
}

func matchDate(r models.Report, mode DateMode, value string) bool {
	if value == "" {
		return true
	}
	day := r.Day()
	switch mode {
	case DateModeDay:
		return day == value
	default:
		return strings.HasPrefix(day, value)
	}
}

func matchText(r models.Report, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{r.ForemanName, r.ForemanRegistration, r.Street, r.Neighborhood} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func matchOptional(value, want string) bool {
	return want == "" || want == StatusAll || value == want
}
