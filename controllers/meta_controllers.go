package controllers

import (
	"errors"
	"net/http"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MetaController serves reachability, the team list and view dispatch.
type MetaController struct {
	DB    *gorm.DB
	Teams []string
}

func NewMetaController(db *gorm.DB, teams []string) *MetaController {
	return &MetaController{DB: db, Teams: teams}
}

// Ping reports whether the database answers.
func (mc *MetaController) Ping(c *gin.Context) {
	sqlDB, err := mc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		utils.ErrorLogger.Errorf("ping: %v", err)
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("banco de dados indisponível"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pong", nil)
}

func (mc *MetaController) GetTeams(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Equipes", mc.Teams)
}

// ResolveView answers which screen the caller gets for the requested one.
func (mc *MetaController) ResolveView(c *gin.Context) {
	role := middlewares.CurrentActor(c).Role
	utils.RespondJSON(c, http.StatusOK, "Tela", gin.H{
		"decision": services.ResolveView(role, services.View(c.Param("view"))),
		"views":    services.NavigableViews(role),
	})
}
