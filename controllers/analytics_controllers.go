package controllers

import (
	"net/http"
	"time"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Reports *repository.ReportRepository
	Goals   services.Goals
}

func NewAnalyticsController(reports *repository.ReportRepository, goals services.Goals) *AnalyticsController {
	return &AnalyticsController{Reports: reports, Goals: goals}
}

// GetAnalytics builds the indicators of one month (?month=YYYY-MM, default
// the current one) narrowed by supervisor, foreman, shift and status.
func (ac *AnalyticsController) GetAnalytics(c *gin.Context) {
	var f services.AnalyticsFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	month := c.DefaultQuery("month", time.Now().Format(models.MonthLayout))
	start, err := time.Parse(models.MonthLayout, month)
	if err != nil {
		utils.RespondAppError(c, utils.NewValidationError("month", "mês inválido, use AAAA-MM"))
		return
	}
	f.DateMode = services.DateModeMonth
	f.DateValue = month

	reports := services.FilterAnalytics(ac.Reports.List(c.Request.Context()), middlewares.CurrentActor(c), f)
	utils.RespondJSON(c, http.StatusOK, "Indicadores",
		services.BuildAnalytics(reports, start.Year(), start.Month(), ac.Goals))
}
