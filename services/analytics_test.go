package services

import (
	"testing"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 30, 0, 0, time.UTC)
}

func metricsReport(id string, date time.Time, m models.ProductionMetrics) models.Report {
	return models.Report{
		ID:           id,
		Date:         date,
		ForemanID:    "enc-" + id,
		ForemanName:  "Encarregado " + id,
		SupervisorID: supervisor.ID,
		Status:       models.StatusApproved,
		Metrics:      m,
	}
}

func TestSingleReportMonth(t *testing.T) {
	m := models.ProductionMetrics{CapinaM: 2100, PinturaViasM: 1000, PinturaPostesUnd: 10, RocagemM2: 500}
	reports := []models.Report{
		metricsReport("a", day(14), m),
		metricsReport("b", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), m),
	}

	month := FilterReports(reports, cco, ReportFilter{DateMode: DateModeMonth, DateValue: "2026-03"})
	require.Len(t, month, 1)

	totals := CalculatePeriodTotals(month)
	assert.Equal(t, m, totals.ProductionMetrics)
	assert.Equal(t, 1, totals.Count)
	assert.Equal(t, 1, DistinctDays(month))
	assert.Equal(t, m, CalculateAverages(month).ProductionMetrics)
}

func TestSameDayReportsSum(t *testing.T) {
	reports := []models.Report{
		metricsReport("a", day(5), models.ProductionMetrics{CapinaM: 100}),
		metricsReport("b", day(5).Add(3*time.Hour), models.ProductionMetrics{CapinaM: 50}),
	}

	series := CalculateDailySeries(reports, 2026, time.March)
	require.Len(t, series, 31)
	assert.Equal(t, 150.0, series[4].CapinaM)
	assert.Equal(t, 2, series[4].CapinaTeams)
	assert.Equal(t, 75.0, series[4].CapinaPerTeam)
	assert.Equal(t, "2026-03-05", series[4].Date)
	assert.Zero(t, series[5].CapinaM)

	assert.Equal(t, 150.0, CalculateAverages(reports).CapinaM)
}

func TestDailySeriesAddsUpToPeriodTotals(t *testing.T) {
	reports := []models.Report{
		metricsReport("a", day(1), models.ProductionMetrics{CapinaM: 1200, RocagemM2: 300}),
		metricsReport("b", day(1).Add(2*time.Hour), models.ProductionMetrics{CapinaM: 450.5}),
		metricsReport("c", day(9), models.ProductionMetrics{RocagemM2: 880, PinturaViasM: 40}),
		metricsReport("d", day(17), models.ProductionMetrics{CapinaM: 2000, RocagemM2: 1250.25}),
		metricsReport("e", day(31), models.ProductionMetrics{CapinaM: 75, RocagemM2: 10}),
	}

	series := CalculateDailySeries(reports, 2026, time.March)
	require.Len(t, series, 31)

	var capina, rocagem float64
	for _, p := range series {
		capina += p.CapinaM
		rocagem += p.RocagemM2
	}
	totals := CalculatePeriodTotals(reports)
	assert.InDelta(t, totals.CapinaM, capina, 1e-9)
	assert.InDelta(t, totals.RocagemM2, rocagem, 1e-9)
	assert.InDelta(t, 3725.5, capina, 1e-9)
	assert.InDelta(t, 2440.25, rocagem, 1e-9)
}

func TestEmptySetYieldsZeros(t *testing.T) {
	avg := CalculateAverages(nil)
	assert.Zero(t, avg.Total())
	assert.Zero(t, avg.DistinctDays)
	assert.Zero(t, CalculatePeriodTotals(nil).Count)

	a := BuildAnalytics(nil, 2026, time.February, Goals{CapinaPerDay: 1950, RocagemPerDay: 1000})
	assert.Len(t, a.Daily, 28)
	assert.Empty(t, a.Rankings.BySupervisor)
	assert.True(t, a.Capina.Met)
	assert.Zero(t, a.Capina.Accumulated)
}

func TestRankings(t *testing.T) {
	reports := []models.Report{
		metricsReport("a", day(1), models.ProductionMetrics{CapinaM: 100, RocagemM2: 10}),
		metricsReport("b", day(1), models.ProductionMetrics{CapinaM: 300}),
		metricsReport("c", day(2), models.ProductionMetrics{CapinaM: 100, RocagemM2: 40}),
		metricsReport("d", day(2), models.ProductionMetrics{CapinaM: 100, RocagemM2: 10}),
	}
	reports[3].ForemanID = ""
	reports[3].SupervisorID = ""

	r := CalculateRankings(reports)
	keys := make([]string, 0, len(r.ByForeman))
	for _, e := range r.ByForeman {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"enc-b", "enc-c", "enc-a", UnknownKey}, keys)

	require.Len(t, r.BySupervisor, 2)
	assert.Equal(t, supervisor.ID, r.BySupervisor[0].Key)
	assert.Equal(t, 3, r.BySupervisor[0].Reports)
	assert.Equal(t, UnknownLabel, r.BySupervisor[1].Label)
}

func TestGoalBalance(t *testing.T) {
	g := CalculateGoalBalance(1950, 5000, 3)
	assert.Equal(t, 5850.0, g.Accumulated)
	assert.Equal(t, -850.0, g.Balance)
	assert.False(t, g.Met)

	reports := []models.Report{
		metricsReport("a", day(1), models.ProductionMetrics{CapinaM: 2000, RocagemM2: 1200}),
	}
	reports[0].TeamAttendance = []models.AttendanceRecord{{Present: true}, {Present: false}, {Present: true}}
	a := BuildAnalytics(reports, 2026, time.March, Goals{CapinaPerDay: 1950, RocagemPerDay: 1000})
	assert.Equal(t, "2026-03", a.Month)
	assert.True(t, a.Capina.Met)
	assert.Equal(t, 200.0, a.Rocagem.Balance)
	assert.Equal(t, 2, a.Workers)
}

func TestFilterReportsVisibilityAndOrder(t *testing.T) {
	reports := []models.Report{
		{ID: "1", Date: day(1), ForemanID: foreman.ID, SupervisorID: "sup-2", Status: models.StatusPending, Street: "Rua Acre"},
		{ID: "2", Date: day(3), ForemanID: "enc-2", SupervisorID: supervisor.ID, Status: models.StatusApproved, Neighborhood: "Centro"},
		{ID: "3", Date: day(2), ForemanID: foreman.ID, SupervisorID: supervisor.ID, Status: models.StatusRejected, ForemanName: "Ana Souza"},
	}

	ids := func(rs []models.Report) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"2", "3", "1"}, ids(FilterReports(reports, cco, ReportFilter{})))
	assert.Equal(t, []string{"3", "1"}, ids(FilterReports(reports, foreman, ReportFilter{})))
	assert.Equal(t, []string{"2", "3"}, ids(FilterReports(reports, supervisor, ReportFilter{Status: StatusAll})))
	assert.Equal(t, []string{"3"}, ids(FilterReports(reports, cco, ReportFilter{Status: string(models.StatusRejected)})))
	assert.Equal(t, []string{"3"}, ids(FilterReports(reports, cco, ReportFilter{DateMode: DateModeDay, DateValue: "2026-03-02"})))
	assert.Equal(t, []string{"2"}, ids(FilterReports(reports, cco, ReportFilter{Search: "centro"})))
	assert.Equal(t, []string{"3"}, ids(FilterReports(reports, cco, ReportFilter{Search: "SOUZA"})))
	assert.Equal(t, "1", reports[0].ID, "input untouched")

	nobody := models.Actor{ID: "x", Role: "Visitante"}
	assert.Empty(t, FilterReports(reports, nobody, ReportFilter{}))
}

func TestFilterAnalytics(t *testing.T) {
	reports := []models.Report{
		{ID: "1", Date: day(1), SupervisorID: "sup-1", ForemanID: "f1", Shift: models.ShiftDiurno},
		{ID: "2", Date: day(2), SupervisorID: "sup-2", ForemanID: "f2", Shift: models.ShiftNoturno},
		{ID: "3", Date: day(3), SupervisorID: "sup-1", ForemanID: "f3", Shift: models.ShiftNoturno},
	}

	out := FilterAnalytics(reports, cco, AnalyticsFilter{SupervisorID: "sup-1", Shift: string(models.ShiftNoturno)})
	require.Len(t, out, 1)
	assert.Equal(t, "3", out[0].ID)

	all := FilterAnalytics(reports, cco, AnalyticsFilter{SupervisorID: StatusAll, ForemanID: ""})
	assert.Len(t, all, 3)
}
