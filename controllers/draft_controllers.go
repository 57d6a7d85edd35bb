package controllers

import (
	"context"
	"net/http"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

// DraftController exposes the per-user report form.
type DraftController struct {
	Drafts    *services.DraftStore
	Reports   *repository.ReportRepository
	Users     *repository.UserRepository
	Employees *repository.EmployeeRepository
}

func NewDraftController(drafts *services.DraftStore, reports *repository.ReportRepository,
	users *repository.UserRepository, employees *repository.EmployeeRepository) *DraftController {
	return &DraftController{Drafts: drafts, Reports: reports, Users: users, Employees: employees}
}

func (dc *DraftController) form(c *gin.Context) (*services.FormController, bool) {
	fc, ok := dc.Drafts.Get(c.GetString(middlewares.CtxUserID))
	if !ok {
		utils.RespondAppError(c, utils.ErrNotFound)
		return nil, false
	}
	return fc, true
}

// StartDraft opens a new draft, or loads an existing report for correction
// when reportId is given.
func (dc *DraftController) StartDraft(c *gin.Context) {
	var body struct {
		ReportID string `json:"reportId"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}

	ctx := c.Request.Context()
	user, err := dc.Users.Get(ctx, c.GetString(middlewares.CtxUserID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	dc.Drafts.Discard(user.ID)
	if body.ReportID == "" {
		if !services.RoleAllowed(user.Role, models.RoleEncarregado, models.RoleSupervisor) {
			utils.RespondAppError(c, utils.ErrForbidden)
			return
		}
		fc := dc.Drafts.Open(user)
		fc.StartNew(dc.Employees.List(ctx))
		utils.RespondJSON(c, http.StatusCreated, "Rascunho iniciado", fc.Snapshot())
		return
	}

	existing, err := dc.Reports.Get(ctx, body.ReportID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	fc := dc.Drafts.Open(user)
	if err := fc.StartEdit(existing); err != nil {
		dc.Drafts.Discard(user.ID)
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Correção iniciada", fc.Snapshot())
}

func (dc *DraftController) GetDraft(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rascunho", fc.Snapshot())
}

func (dc *DraftController) PatchDraft(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var patch services.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	fc.Apply(patch)
	utils.RespondJSON(c, http.StatusOK, "Rascunho atualizado", fc.Snapshot())
}

func (dc *DraftController) DiscardDraft(c *gin.Context) {
	dc.Drafts.Discard(c.GetString(middlewares.CtxUserID))
	utils.RespondJSON(c, http.StatusOK, "Rascunho descartado", nil)
}

// CaptureLocation records the device fix and resolves its address in the
// background. With ?wait=true the response waits for the lookup.
func (dc *DraftController) CaptureLocation(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var fix models.GeoLocation
	if err := c.ShouldBindJSON(&fix); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	done := fc.CaptureLocation(context.WithoutCancel(c.Request.Context()), services.FixLocator(fix))
	if c.Query("wait") == "true" {
		select {
		case <-done:
		case <-c.Request.Context().Done():
		}
		utils.RespondJSON(c, http.StatusOK, "Localização capturada", fc.Snapshot())
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Capturando localização", fc.Snapshot())
}

// SearchAddress schedules a debounced lookup; poll GET /drafts for results.
func (dc *DraftController) SearchAddress(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var body struct {
		Field string `json:"field" binding:"required"`
		Text  string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := fc.SearchAddress(c.Request.Context(), body.Field, body.Text); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Busca agendada", fc.Snapshot())
}

func (dc *DraftController) SelectSuggestion(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var body struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := fc.SelectSuggestion(c.Request.Context(), *body.Index); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Endereço selecionado", fc.Snapshot())
}

// CorrectStreet swaps the street for one of the nearby names.
func (dc *DraftController) CorrectStreet(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var body struct {
		Street string `json:"street" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	fc.CorrectStreet(c.Request.Context(), body.Street)
	utils.RespondJSON(c, http.StatusOK, "Rua corrigida", fc.Snapshot())
}

func (dc *DraftController) TogglePerimeter(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	var body struct {
		Street string `json:"street" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	fc.TogglePerimeterStreet(body.Street)
	utils.RespondJSON(c, http.StatusOK, "Perímetro atualizado", fc.Snapshot())
}

// SubmitDraft validates and saves the draft. On failure the draft stays as
// it was so the same call can be retried.
func (dc *DraftController) SubmitDraft(c *gin.Context) {
	fc, ok := dc.form(c)
	if !ok {
		return
	}
	saved, err := fc.Submit(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "RD enviado", saved)
}
