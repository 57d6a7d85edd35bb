package controllers_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportList struct {
	Reports []models.Report       `json:"reports"`
	Totals  services.PeriodTotals `json:"totals"`
}

func TestSubmitValidation(t *testing.T) {
	env := setupRouterForTest(t, false)

	r := env.validReport()
	r.SupervisorID = ""
	w, resp := env.do(t, http.MethodPost, "/admin/rds", &env.foreman, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "Supervisor Responsável")

	r = env.validReport()
	r.Metrics = models.ProductionMetrics{}
	w, resp = env.do(t, http.MethodPost, "/admin/rds", &env.foreman, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "quantidade produzida")

	// CCO only reviews
	w, _ = env.do(t, http.MethodPost, "/admin/rds", &env.cco, env.validReport())
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Empty(t, env.reports.List(context.Background()))
}

func TestReportReviewCycle(t *testing.T) {
	env := setupRouterForTest(t, false)

	submitted := env.validReport()
	submitted.Status = models.StatusApproved
	w, resp := env.do(t, http.MethodPost, "/admin/rds", &env.foreman, submitted)
	require.Equal(t, http.StatusCreated, w.Code)
	r := decode[models.Report](t, resp.Data)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, env.foreman.ID, r.ForemanID)
	assert.Equal(t, "Bruno Supervisor", r.SupervisorName)

	// another foreman cannot see it
	other := env.seedUser(t, "Outro", "1009", models.RoleEncarregado)
	w, _ = env.do(t, http.MethodGet, "/admin/rds/"+r.ID, &other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, resp = env.do(t, http.MethodGet, "/admin/rds", &other, nil)
	assert.Empty(t, decode[reportList](t, resp.Data).Reports)

	w, _ = env.do(t, http.MethodPatch, "/admin/rds/"+r.ID+"/status", &env.foreman,
		map[string]string{"status": string(models.StatusApproved)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.do(t, http.MethodPatch, "/admin/rds/"+r.ID+"/status", &env.supervisor,
		map[string]string{"status": string(models.StatusRejected), "note": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodPatch, "/admin/rds/"+r.ID+"/status", &env.supervisor,
		map[string]string{"status": string(models.StatusRejected), "note": "foto final ilegível"})
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := env.reports.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "foto final ilegível", stored.SupervisorNote)

	// reviewers cannot reopen a rejection
	w, _ = env.do(t, http.MethodPost, "/admin/rds", &env.supervisor, stored)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the foreman corrects and resubmits
	stored.Photos.Final = "https://cdn/f2.jpg"
	w, resp = env.do(t, http.MethodPost, "/admin/rds", &env.foreman, stored)
	require.Equal(t, http.StatusCreated, w.Code)
	resub := decode[models.Report](t, resp.Data)
	assert.Equal(t, r.ID, resub.ID)
	assert.Equal(t, models.StatusPending, resub.Status)
	assert.Empty(t, resub.SupervisorNote)
	assert.True(t, resub.CreatedAt.Equal(r.CreatedAt))

	w, _ = env.do(t, http.MethodPatch, "/admin/rds/"+r.ID+"/status", &env.cco,
		map[string]string{"status": string(models.StatusApproved)})
	require.Equal(t, http.StatusOK, w.Code)

	// approved is terminal
	w, _ = env.do(t, http.MethodPatch, "/admin/rds/"+r.ID+"/status", &env.cco,
		map[string]string{"status": string(models.StatusRejected), "note": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/admin/rds/"+r.ID, &env.supervisor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = env.do(t, http.MethodDelete, "/admin/rds/"+r.ID, &env.cco, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodDelete, "/admin/rds/"+r.ID, &env.cco, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFiltersAndTotals(t *testing.T) {
	env := setupRouterForTest(t, false)

	for _, street := range []string{"Rua A", "Rua B"} {
		r := env.validReport()
		r.Street = street
		w, _ := env.do(t, http.MethodPost, "/admin/rds", &env.foreman, r)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, resp := env.do(t, http.MethodGet, "/admin/rds?q=rua+b&status=Pendente", &env.cco, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[reportList](t, resp.Data)
	require.Len(t, list.Reports, 1)
	assert.Equal(t, "Rua B", list.Reports[0].Street)
	assert.Equal(t, 800.0, list.Totals.CapinaM)

	_, resp = env.do(t, http.MethodGet, "/admin/rds?dateMode=month&date=2026-03", &env.supervisor, nil)
	list = decode[reportList](t, resp.Data)
	assert.Len(t, list.Reports, 2)
	assert.Equal(t, 1600.0, list.Totals.CapinaM)
}

func TestExportReports(t *testing.T) {
	env := setupRouterForTest(t, false)
	w, _ := env.do(t, http.MethodPost, "/admin/rds", &env.foreman, env.validReport())
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.do(t, http.MethodGet, "/admin/rds/export?format=csv&dateMode=month&date=2026-03", &env.cco, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	cr := csv.NewReader(strings.NewReader(w.Body.String()))
	cr.Comma = ';'
	rows, err := cr.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	w, _ = env.do(t, http.MethodGet, "/admin/rds/export?format=xlsx", &env.cco, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.ContentType(services.ExportXLSX), w.Header().Get("Content-Type"))

	w, _ = env.do(t, http.MethodGet, "/admin/rds/export?format=pdf", &env.cco, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsIsCCOOnly(t *testing.T) {
	env := setupRouterForTest(t, false)
	w, _ := env.do(t, http.MethodPost, "/admin/rds", &env.foreman, env.validReport())
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := env.do(t, http.MethodGet, "/admin/analytics?month=2026-03", &env.supervisor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	decision := decode[services.ViewDecision](t, resp.Data)
	assert.Equal(t, services.ViewDashboard, decision.Redirect)

	w, resp = env.do(t, http.MethodGet, "/admin/analytics?month=2026-03", &env.cco, nil)
	require.Equal(t, http.StatusOK, w.Code)
	a := decode[services.Analytics](t, resp.Data)
	assert.Equal(t, 800.0, a.Totals.CapinaM)

	w, _ = env.do(t, http.MethodGet, "/admin/analytics?month=março", &env.cco, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
