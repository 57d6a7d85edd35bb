package services

import (
	"sort"
	"time"

	"github.com/ciclus/rd-dashboard/models"
)

// UnknownKey buckets reports without a supervisor or foreman id.
const (
	UnknownKey   = "unknown"
	UnknownLabel = "S/ Identificação"
)

type PeriodTotals struct {
	models.ProductionMetrics
	Count int `json:"count"`
}

type Averages struct {
	models.ProductionMetrics
	DistinctDays int `json:"distinctDays"`
}

// DailyPoint is one day of the goal-tracking series. Teams counts reports
// that contributed a non-zero value for the metric on that day.
type DailyPoint struct {
	Day            int     `json:"day"`
	Date           string  `json:"date"`
	CapinaM        float64 `json:"capinaM"`
	RocagemM2      float64 `json:"rocagemM2"`
	CapinaTeams    int     `json:"capinaTeams"`
	RocagemTeams   int     `json:"rocagemTeams"`
	CapinaPerTeam  float64 `json:"capinaPerTeam"`
	RocagemPerTeam float64 `json:"rocagemPerTeam"`
}

type RankingEntry struct {
	Key     string                   `json:"key"`
	Label   string                   `json:"label"`
	Reports int                      `json:"reports"`
	Metrics models.ProductionMetrics `json:"metrics"`
}

type Rankings struct {
	BySupervisor []RankingEntry `json:"bySupervisor"`
	ByForeman    []RankingEntry `json:"byForeman"`
}

type GoalBalance struct {
	PerDay      float64 `json:"perDay"`
	Days        int     `json:"days"`
	Accumulated float64 `json:"accumulated"`
	Realized    float64 `json:"realized"`
	Balance     float64 `json:"balance"`
	Met         bool    `json:"met"`
}

// Analytics is the payload of the indicators screen.
type Analytics struct {
	Month    string       `json:"month"`
	Totals   PeriodTotals `json:"totals"`
	Averages Averages     `json:"averages"`
	Daily    []DailyPoint `json:"daily"`
	Rankings Rankings     `json:"rankings"`
	Capina   GoalBalance  `json:"capinaGoal"`
	Rocagem  GoalBalance  `json:"rocagemGoal"`
	Workers  int          `json:"workersPresent"`
}

// Goals are the per-day targets of the linear goal balance.
type Goals struct {
	CapinaPerDay  float64
	RocagemPerDay float64
}

func CalculatePeriodTotals(reports []models.Report) PeriodTotals {
	var t PeriodTotals
	for _, r := range reports {
		t.ProductionMetrics = t.ProductionMetrics.Add(r.Metrics)
	}
	t.Count = len(reports)
	return t
}

// DistinctDays counts the unique calendar days present in reports.
func DistinctDays(reports []models.Report) int {
	days := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		days[r.Day()] = struct{}{}
	}
	return len(days)
}

// CalculateAverages divides the totals by the number of distinct days, never
// by less than one.
func CalculateAverages(reports []models.Report) Averages {
	t := CalculatePeriodTotals(reports)
	days := DistinctDays(reports)
	div := float64(days)
	if div < 1 {
		div = 1
	}
	return Averages{
		ProductionMetrics: models.ProductionMetrics{
			CapinaM:          t.CapinaM / div,
			PinturaViasM:     t.PinturaViasM / div,
			PinturaPostesUnd: t.PinturaPostesUnd / div,
			RocagemM2:        t.RocagemM2 / div,
		},
		DistinctDays: days,
	}
}

// CalculateDailySeries returns one point for each day of the month. Reports
// dated outside the month are ignored.
func CalculateDailySeries(reports []models.Report, year int, month time.Month) []DailyPoint {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n := first.AddDate(0, 1, -1).Day()

	points := make([]DailyPoint, n)
	for i := range points {
		points[i].Day = i + 1
		points[i].Date = first.AddDate(0, 0, i).Format(models.DayLayout)
	}

	for _, r := range reports {
		if r.Date.Year() != year || r.Date.Month() != month {
			continue
		}
		p := &points[r.Date.Day()-1]
		p.CapinaM += r.Metrics.CapinaM
		p.RocagemM2 += r.Metrics.RocagemM2
		if r.Metrics.CapinaM > 0 {
			p.CapinaTeams++
		}
		if r.Metrics.RocagemM2 > 0 {
			p.RocagemTeams++
		}
	}

	for i := range points {
		p := &points[i]
		if p.CapinaTeams > 0 {
			p.CapinaPerTeam = p.CapinaM / float64(p.CapinaTeams)
		}
		if p.RocagemTeams > 0 {
			p.RocagemPerTeam = p.RocagemM2 / float64(p.RocagemTeams)
		}
	}
	return points
}

// CalculateRankings groups by supervisor and by foreman, ordered by capina
// then roçagem, both descending. Equal groups keep first-seen order.
func CalculateRankings(reports []models.Report) Rankings {
	return Rankings{
		BySupervisor: rank(reports, func(r models.Report) (string, string) {
			return r.SupervisorID, r.SupervisorName
		}),
		ByForeman: rank(reports, func(r models.Report) (string, string) {
			return r.ForemanID, r.ForemanName
		}),
	}
}

func rank(reports []models.Report, keyOf func(models.Report) (string, string)) []RankingEntry {
	index := make(map[string]int)
	entries := make([]RankingEntry, 0)

	for _, r := range reports {
		key, label := keyOf(r)
		if key == "" {
			key, label = UnknownKey, UnknownLabel
		}
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, RankingEntry{Key: key, Label: label})
		}
		e := &entries[i]
		if e.Label == "" {
			e.Label = label
		}
		e.Reports++
		e.Metrics = e.Metrics.Add(r.Metrics)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return RanksAbove(entries[i].Metrics, entries[j].Metrics)
	})
	return entries
}

// RanksAbove reports whether a sorts strictly before b in a ranking.
func RanksAbove(a, b models.ProductionMetrics) bool {
	if a.CapinaM != b.CapinaM {
		return a.CapinaM > b.CapinaM
	}
	return a.RocagemM2 > b.RocagemM2
}

func CalculateGoalBalance(perDay, realized float64, days int) GoalBalance {
	acc := float64(days) * perDay
	balance := realized - acc
	return GoalBalance{
		PerDay:      perDay,
		Days:        days,
		Accumulated: acc,
		Realized:    realized,
		Balance:     balance,
		Met:         balance >= 0,
	}
}

// BuildAnalytics composes every indicator for an already filtered set.
func BuildAnalytics(reports []models.Report, year int, month time.Month, goals Goals) Analytics {
	totals := CalculatePeriodTotals(reports)
	days := DistinctDays(reports)

	workers := 0
	for _, r := range reports {
		workers += r.PresentCount()
	}

	return Analytics{
		Month:    time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(models.MonthLayout),
		Totals:   totals,
		Averages: CalculateAverages(reports),
		Daily:    CalculateDailySeries(reports, year, month),
		Rankings: CalculateRankings(reports),
		Capina:   CalculateGoalBalance(goals.CapinaPerDay, totals.CapinaM, days),
		Rocagem:  CalculateGoalBalance(goals.RocagemPerDay, totals.RocagemM2, days),
		Workers:  workers,
	}
}
