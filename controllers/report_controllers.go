package controllers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Reports *repository.ReportRepository
	Users   *repository.UserRepository
}

func NewReportController(reports *repository.ReportRepository, users *repository.UserRepository) *ReportController {
	return &ReportController{Reports: reports, Users: users}
}

// GetReports returns the dashboard list for the caller with period totals.
func (rc *ReportController) GetReports(c *gin.Context) {
	var f services.ReportFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	reports := services.FilterReports(rc.Reports.List(c.Request.Context()), middlewares.CurrentActor(c), f)
	utils.RespondJSON(c, http.StatusOK, "RDs", gin.H{
		"reports": reports,
		"totals":  services.CalculatePeriodTotals(reports),
	})
}

// GetReport answers 404 for reports the caller may not see.
func (rc *ReportController) GetReport(c *gin.Context) {
	r, err := rc.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if !services.CanView(r, middlewares.CurrentActor(c)) {
		utils.RespondAppError(c, utils.ErrNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "RD", r)
}

// SubmitReport creates a report, or resubmits one when the body has an id.
func (rc *ReportController) SubmitReport(c *gin.Context) {
	var r models.Report
	if err := c.ShouldBindJSON(&r); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	user, err := rc.Users.Get(ctx, c.GetString(middlewares.CtxUserID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if r.ID == "" && !services.RoleAllowed(user.Role, models.RoleEncarregado, models.RoleSupervisor) {
		utils.RespondAppError(c, utils.ErrForbidden)
		return
	}

	services.ApplySubmitterDefaults(&r, user)
	if err := services.ValidateReport(r); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	saved, err := services.SaveSubmission(ctx, user, r.ID, r, rc.Reports, rc.Users, time.Now())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Infof("RD %s submitted by %s", saved.ID, user.Registration)
	utils.RespondJSON(c, http.StatusCreated, "RD enviado", saved)
}

// UpdateStatus approves or rejects a pending report.
func (rc *ReportController) UpdateStatus(c *gin.Context) {
	var body struct {
		Status models.ReportStatus `json:"status" binding:"required"`
		Note   string              `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	current, err := rc.Reports.Get(ctx, c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	next, err := services.TransitionStatus(current, middlewares.CurrentActor(c), body.Status, body.Note)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := rc.Reports.UpdateStatus(ctx, next); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Infof("RD %s moved to %s by %s", next.ID, next.Status, c.GetString(middlewares.CtxUserID))
	utils.RespondJSON(c, http.StatusOK, "Status atualizado", next)
}

func (rc *ReportController) DeleteReport(c *gin.Context) {
	if err := services.CanDelete(middlewares.CurrentActor(c)); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := rc.Reports.Remove(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Infof("RD %s deleted by %s", c.Param("id"), c.GetString(middlewares.CtxUserID))
	utils.RespondJSON(c, http.StatusOK, "RD excluído", nil)
}

// ExportReports downloads the filtered dashboard as CSV or XLSX.
func (rc *ReportController) ExportReports(c *gin.Context) {
	var f services.ReportFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	format := services.ExportFormat(c.DefaultQuery("format", string(services.ExportCSV)))

	reports := services.FilterReports(rc.Reports.List(c.Request.Context()), middlewares.CurrentActor(c), f)

	var buf bytes.Buffer
	var err error
	switch format {
	case services.ExportCSV:
		err = services.WriteCSV(&buf, reports)
	case services.ExportXLSX:
		err = services.WriteXLSX(&buf, reports)
	default:
		utils.RespondAppError(c, utils.NewValidationError("format", "formato de exportação inválido"))
		return
	}
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+services.ExportFileName(f.DateValue, format)+`"`)
	c.Data(http.StatusOK, services.ContentType(format), buf.Bytes())
}
