package controllers

import (
	"context"
	"net/http"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/storage"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PhotoController struct {
	Store   storage.PhotoStore
	Drafts  *services.DraftStore
	Reports *repository.ReportRepository
}

func NewPhotoController(store storage.PhotoStore, drafts *services.DraftStore, reports *repository.ReportRepository) *PhotoController {
	return &PhotoController{Store: store, Drafts: drafts, Reports: reports}
}

// UploadPhoto takes a multipart "file" of the given "kind", downscales it and
// stores it under rd-photos/<owner>/<kind>.jpg. Owner is the report being
// corrected or a fresh id; a requested "owner" is honored only for a report
// the caller may edit. The URL is also attached to the caller's draft.
func (pc *PhotoController) UploadPhoto(c *gin.Context) {
	kind := c.PostForm("kind")
	if !storage.ValidKind(kind) {
		utils.RespondAppError(c, utils.NewValidationError("kind", "tipo de foto inválido"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if header.Size > storage.MaxUploadBytes {
		utils.RespondAppError(c, utils.NewValidationError("file", "arquivo muito grande"))
		return
	}
	f, err := header.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	data, err := storage.Downscale(f)
	if err != nil {
		utils.RespondAppError(c, utils.NewValidationError("file", "imagem inválida: use JPEG ou PNG"))
		return
	}

	actor := middlewares.CurrentActor(c)
	fc, hasDraft := pc.Drafts.Get(actor.ID)
	owner := ""
	if hasDraft {
		owner = fc.Snapshot().ExistingID
	}
	if requested := c.PostForm("owner"); requested != "" && requested != owner {
		if pc.mayWriteUnder(c.Request.Context(), requested, actor) {
			owner = requested
		} else {
			utils.InfoLogger.Warnf("photo upload: %s may not write under %q", actor.ID, requested)
		}
	}
	if owner == "" {
		owner = uuid.NewString()
	}
	url, err := pc.Store.Put(c.Request.Context(), storage.PhotoKey(owner, kind), data)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	if hasDraft {
		if err := fc.SetPhoto(kind, url); err != nil {
			utils.RespondAppError(c, err)
			return
		}
	}
	utils.RespondJSON(c, http.StatusCreated, "Foto enviada", gin.H{"kind": kind, "url": url, "owner": owner})
}

// mayWriteUnder reports whether owner names a stored report actor may edit.
func (pc *PhotoController) mayWriteUnder(ctx context.Context, owner string, actor models.Actor) bool {
	if pc.Reports == nil {
		return false
	}
	existing, err := pc.Reports.Get(ctx, owner)
	if err != nil {
		return false
	}
	return services.CanEdit(existing, actor)
}
