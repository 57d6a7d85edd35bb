package router

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ciclus/rd-dashboard/controllers"
	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the shared instances the routes are built on.
type Deps struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	Reports   *repository.ReportRepository
	Employees *repository.EmployeeRepository
	Users     *repository.UserRepository
	Photos    storage.PhotoStore
	Geo       services.Geocoder
	Drafts    *services.DraftStore

	Goals                 services.Goals
	Teams                 []string
	AllowedOrigins        []string
	UploadDir             string
	AdminFunctionsEnabled bool
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 20*time.Millisecond).RateLimit())

	// only stored photos are served from the upload dir
	if d.UploadDir != "" {
		r.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/uploads/") &&
				!strings.HasSuffix(strings.ToLower(c.Request.URL.Path), ".jpg") {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
		})
		r.Static("/uploads", filepath.Clean(d.UploadDir))
	}

	userCtrl := controllers.NewUserController(d.Users, d.AdminFunctionsEnabled)
	employeeCtrl := controllers.NewEmployeeController(d.Employees)
	reportCtrl := controllers.NewReportController(d.Reports, d.Users)
	analyticsCtrl := controllers.NewAnalyticsController(d.Reports, d.Goals)
	draftCtrl := controllers.NewDraftController(d.Drafts, d.Reports, d.Users, d.Employees)
	photoCtrl := controllers.NewPhotoController(d.Photos, d.Drafts, d.Reports)
	geoCtrl := controllers.NewGeoController(d.Geo)
	metaCtrl := controllers.NewMetaController(d.DB, d.Teams)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", metaCtrl.Ping)

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), realtimeCtrl.Handler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)
	auth.GET("/views", metaCtrl.ResolveView)
	auth.GET("/views/:view", metaCtrl.ResolveView)
	auth.GET("/teams", metaCtrl.GetTeams)

	// RDs
	auth.GET("/rds", reportCtrl.GetReports)
	auth.GET("/rds/export", reportCtrl.ExportReports)
	auth.GET("/rds/:id", reportCtrl.GetReport)
	auth.POST("/rds", reportCtrl.SubmitReport)
	auth.PATCH("/rds/:id/status",
		middlewares.RequireRoles(models.RoleSupervisor, models.RoleCCO), reportCtrl.UpdateStatus)
	auth.DELETE("/rds/:id", middlewares.RequireRoles(models.RoleCCO), reportCtrl.DeleteReport)

	auth.GET("/analytics", middlewares.RequireView(services.ViewAnalytics), analyticsCtrl.GetAnalytics)

	// Employees: everyone reads the roster, admin screens write it
	auth.GET("/employees", employeeCtrl.GetAllEmployees)
	auth.GET("/employees/roles", employeeCtrl.GetRoles)
	employees := auth.Group("/employees")
	employees.Use(middlewares.RequireView(services.ViewAdmin))
	{
		employees.POST("", employeeCtrl.CreateEmployee)
		employees.PUT("/:id", employeeCtrl.UpdateEmployee)
		employees.DELETE("/:id", employeeCtrl.DeleteEmployee)
	}

	// Users: the form needs the supervisor list, writes are CCO only
	auth.GET("/users", userCtrl.GetAllUsers)
	users := auth.Group("/users")
	users.Use(middlewares.RequireView(services.ViewUsers))
	{
		users.POST("", userCtrl.CreateUser)
		users.PUT("/:id", userCtrl.UpdateUser)
		users.DELETE("/:id", userCtrl.DeleteUser)
	}

	// Report form
	drafts := auth.Group("/drafts")
	drafts.Use(middlewares.RequireView(services.ViewNewReport))
	{
		drafts.POST("", draftCtrl.StartDraft)
		drafts.GET("", draftCtrl.GetDraft)
		drafts.PATCH("", draftCtrl.PatchDraft)
		drafts.DELETE("", draftCtrl.DiscardDraft)
		drafts.POST("/location", draftCtrl.CaptureLocation)
		drafts.POST("/address-search", draftCtrl.SearchAddress)
		drafts.POST("/suggestion", draftCtrl.SelectSuggestion)
		drafts.POST("/street", draftCtrl.CorrectStreet)
		drafts.POST("/perimeter", draftCtrl.TogglePerimeter)
		drafts.POST("/submit", draftCtrl.SubmitDraft)
	}
	auth.POST("/photos", middlewares.RequireView(services.ViewNewReport), photoCtrl.UploadPhoto)

	geo := auth.Group("/geo")
	{
		geo.GET("/search", geoCtrl.Search)
		geo.GET("/reverse", geoCtrl.Reverse)
		geo.GET("/nearby", geoCtrl.Nearby)
	}

	return r
}
