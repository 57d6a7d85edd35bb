package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "senha123"

type testEnv struct {
	db        *gorm.DB
	hub       *realtime.Hub
	router    *gin.Engine
	reports   *repository.ReportRepository
	users     *repository.UserRepository
	employees *repository.EmployeeRepository
	geo       *fakeGeocoder
	uploadDir string

	foreman, supervisor, cco models.User
}

// setupTestDB uses a private in-memory SQLite database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func setupRouterForTest(t *testing.T, adminFunctions bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	env := &testEnv{db: setupTestDB(t), hub: realtime.NewHub(), geo: &fakeGeocoder{}, uploadDir: t.TempDir()}
	t.Cleanup(env.hub.Close)
	env.reports = repository.NewReportRepository(env.db, env.hub)
	env.users = repository.NewUserRepository(env.db)
	env.employees = repository.NewEmployeeRepository(env.db)

	drafts := services.NewDraftStore(func(u models.User) *services.FormController {
		return services.NewFormController(u, env.geo, env.reports, env.users)
	})
	env.router = router.SetupRouter(router.Deps{
		DB:                    env.db,
		Hub:                   env.hub,
		Reports:               env.reports,
		Employees:             env.employees,
		Users:                 env.users,
		Photos:                storage.NewLocalStore(env.uploadDir, "/uploads"),
		Geo:                   env.geo,
		Drafts:                drafts,
		Goals:                 services.Goals{CapinaPerDay: 1950, RocagemPerDay: 1000},
		Teams:                 []string{"S01", "S02"},
		UploadDir:             env.uploadDir,
		AdminFunctionsEnabled: adminFunctions,
	})

	env.foreman = env.seedUser(t, "Ana Encarregada", "1001", models.RoleEncarregado)
	env.supervisor = env.seedUser(t, "Bruno Supervisor", "2001", models.RoleSupervisor)
	env.cco = env.seedUser(t, "Carla CCO", "3001", models.RoleCCO)
	return env
}

func (env *testEnv) seedUser(t *testing.T, name, reg string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{Name: name, Registration: reg, Role: role, Team: "S01"}
	require.NoError(t, env.users.Create(context.Background(), &u, testPassword))
	return u
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Name, string(u.Role))
	require.NoError(t, err)
	return token
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (env *testEnv) do(t *testing.T, method, path string, as *models.User, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *as))
	}
	return env.serve(t, req)
}

func (env *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (env *testEnv) validReport() models.Report {
	return models.Report{
		Date:            time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		SupervisorID:    env.supervisor.ID,
		ServiceCategory: models.CategoryCapinacaoGrupo,
		Street:          "Rua das Flores",
		Metrics:         models.ProductionMetrics{CapinaM: 800},
		Photos: models.ReportPhotos{
			Initial:  "https://cdn/i.jpg",
			Progress: "https://cdn/p.jpg",
			Final:    "https://cdn/f.jpg",
		},
	}
}

type fakeGeocoder struct {
	suggestions []services.AddressSuggestion
	reverse     *services.ReverseAddress
	nearby      []string
	err         error
}

func (f *fakeGeocoder) Search(context.Context, string) ([]services.AddressSuggestion, error) {
	return f.suggestions, f.err
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (*services.ReverseAddress, error) {
	return f.reverse, f.err
}

func (f *fakeGeocoder) NearbyStreets(context.Context, float64, float64, string) ([]string, error) {
	return f.nearby, f.err
}
