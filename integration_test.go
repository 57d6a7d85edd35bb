package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ciclus/rd-dashboard/database"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/router"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/storage"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger("warn")
	utils.SetJWTSecret("integration-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TestEndToEndIntegration walks the main flow:
// 0. seed admin and field users, log everyone in
// 1. the admin registers the crew
// 2. a foreman submits an RD
// 3. the supervisor rejects it, the foreman resubmits, the supervisor approves
// 4. the admin reads the indicators and exports the month
func TestEndToEndIntegration(t *testing.T) {
	db := setupTestDB(t)
	hub := realtime.NewHub()
	defer hub.Close()

	monitor := services.NewChangeMonitor(db, hub, 20*time.Millisecond)
	monitor.Start()
	defer monitor.Stop()

	reports := repository.NewReportRepository(db, hub)
	users := repository.NewUserRepository(db)
	var pushed atomic.Int32
	unsubscribe := reports.Subscribe(func() { pushed.Add(1) })
	defer unsubscribe()

	r := router.SetupRouter(router.Deps{
		DB:        db,
		Hub:       hub,
		Reports:   reports,
		Employees: repository.NewEmployeeRepository(db),
		Users:     users,
		Photos:    storage.NewLocalStore(t.TempDir(), "/uploads"),
		Drafts: services.NewDraftStore(func(u models.User) *services.FormController {
			return services.NewFormController(u, nil, reports, users)
		}),
		Goals: services.Goals{CapinaPerDay: 1950, RocagemPerDay: 1000},
		Teams: []string{"S01"},
	})

	adminToken := loginTest(t, r, "admin", "admin123")

	supervisor := createUserTest(t, r, adminToken, "Bruno Supervisor", "2001", models.RoleSupervisor)
	createUserTest(t, r, adminToken, "Ana Encarregada", "1001", models.RoleEncarregado)
	supervisorToken := loginTest(t, r, "2001", "senha123")
	foremanToken := loginTest(t, r, "1001@ciclus.com", "senha123")

	call(t, r, adminToken, http.MethodPost, "/admin/employees", map[string]string{
		"name": "Carlos", "registration": "9001", "role": "Ajudante", "supervisorId": supervisor.ID,
	}, http.StatusCreated)

	reportID := submitReportTest(t, r, foremanToken, supervisor.ID)
	assert.Eventually(t, func() bool { return pushed.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	reviewCycleTest(t, r, reportID, foremanToken, supervisorToken)
	analyticsAndExportTest(t, r, adminToken)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	t.Cleanup(func() { database.Close(db) })

	created, err := repository.NewUserRepository(db).EnsureAdmin(context.Background(), "Administrador", "admin123")
	require.NoError(t, err)
	require.True(t, created)
	return db
}

func call(t *testing.T, r *gin.Engine, token, method, path string, body interface{}, want int) apiEnvelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != want {
		t.Fatalf("%s %s: code=%d, body=%s", method, path, w.Code, w.Body.String())
	}

	var env apiEnvelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return env
}

func loginTest(t *testing.T, r *gin.Engine, login, password string) string {
	env := call(t, r, "", http.MethodPost, "/login", map[string]string{"login": login, "password": password}, http.StatusOK)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func createUserTest(t *testing.T, r *gin.Engine, token, name, registration string, role models.UserRole) models.User {
	env := call(t, r, token, http.MethodPost, "/admin/users", map[string]string{
		"name": name, "registration": registration, "password": "senha123", "role": string(role), "team": "S01",
	}, http.StatusCreated)
	var u models.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

func submitReportTest(t *testing.T, r *gin.Engine, token, supervisorID string) string {
	var employees []models.Employee
	env := call(t, r, token, http.MethodGet, "/admin/employees", nil, http.StatusOK)
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	require.Len(t, employees, 1)

	report := models.Report{
		Date:            time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		SupervisorID:    supervisorID,
		ServiceCategory: models.CategoryCapinacaoGrupo,
		Street:          "Rua das Flores",
		Neighborhood:    "Centro",
		Metrics:         models.ProductionMetrics{CapinaM: 2100, RocagemM2: 500},
		TeamAttendance:  []models.AttendanceRecord{employees[0].Snapshot(true)},
		Photos: models.ReportPhotos{
			Initial:  "/uploads/rd-photos/x/initial.jpg",
			Progress: "/uploads/rd-photos/x/progress.jpg",
			Final:    "/uploads/rd-photos/x/final.jpg",
		},
	}
	env = call(t, r, token, http.MethodPost, "/admin/rds", report, http.StatusCreated)
	var saved models.Report
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, models.StatusPending, saved.Status)
	return saved.ID
}

func reviewCycleTest(t *testing.T, r *gin.Engine, id, foremanToken, supervisorToken string) {
	call(t, r, supervisorToken, http.MethodPatch, "/admin/rds/"+id+"/status",
		map[string]string{"status": string(models.StatusRejected), "note": "faltou o bairro"}, http.StatusOK)

	env := call(t, r, foremanToken, http.MethodGet, "/admin/rds/"+id, nil, http.StatusOK)
	var rejected models.Report
	require.NoError(t, json.Unmarshal(env.Data, &rejected))
	assert.Equal(t, "faltou o bairro", rejected.SupervisorNote)

	rejected.Neighborhood = "Glória"
	call(t, r, foremanToken, http.MethodPost, "/admin/rds", rejected, http.StatusCreated)

	env = call(t, r, supervisorToken, http.MethodPatch, "/admin/rds/"+id+"/status",
		map[string]string{"status": string(models.StatusApproved)}, http.StatusOK)
	var approved models.Report
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, "Glória", approved.Neighborhood)
}

func analyticsAndExportTest(t *testing.T, r *gin.Engine, token string) {
	env := call(t, r, token, http.MethodGet, "/admin/analytics?month=2026-03", nil, http.StatusOK)
	var a services.Analytics
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, 2100.0, a.Totals.CapinaM)
	assert.Equal(t, 1, a.Totals.Count)

	req := httptest.NewRequest(http.MethodGet, "/admin/rds/export?format=xlsx&dateMode=month&date=2026-03", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
