package services

import (
	"fmt"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
)

// CanReview reports whether actor may approve or reject r.
func CanReview(r models.Report, actor models.Actor) bool {
	if actor.Role == models.RoleCCO {
		return true
	}
	return actor.Role == models.RoleSupervisor && r.SupervisorID != "" && r.SupervisorID == actor.ID
}

// TransitionStatus applies a review decision to a pending report. Input
// problems come back as *utils.ValidationError, guard failures wrap
// utils.ErrForbidden.
func TransitionStatus(r models.Report, actor models.Actor, target models.ReportStatus, note string) (models.Report, error) {
	note = strings.TrimSpace(note)

	switch target {
	case models.StatusApproved:
	case models.StatusRejected:
		if note == "" {
			return r, utils.NewValidationError("note", "Informe o motivo da recusa.")
		}
	case models.StatusPending:
		return r, utils.NewValidationError("status", "Um RD recusado só volta a pendente pelo reenvio do encarregado.")
	default:
		return r, utils.NewValidationError("status", fmt.Sprintf("status inválido: %q", target))
	}

	if r.Status != models.StatusPending {
		return r, utils.NewValidationError("status", fmt.Sprintf("RD com status %s não pode ser revisado.", r.Status))
	}
	if !CanReview(r, actor) {
		return r, fmt.Errorf("review report %s: %w", r.ID, utils.ErrForbidden)
	}

	r.Status = target
	if target == models.StatusRejected {
		r.SupervisorNote = note
	} else {
		r.SupervisorNote = ""
	}
	return r, nil
}

// CanEdit reports whether actor may replace the contents of existing.
// Approved reports are final. A rejected report goes back to pending only
// through its submitter; reviewers edit pending reports they can review or
// submitted themselves.
func CanEdit(existing models.Report, actor models.Actor) bool {
	switch existing.Status {
	case models.StatusApproved:
		return false
	case models.StatusRejected:
		return actor.ID != "" && existing.ForemanID == actor.ID
	}
	switch actor.Role {
	case models.RoleCCO:
		return true
	case models.RoleSupervisor:
		return existing.SupervisorID == actor.ID || existing.ForemanID == actor.ID
	}
	return false
}

// Resubmit turns an edited draft into the new version of existing. Identity
// fields and creation time are kept from existing, the status returns to
// pending and the rejection note is cleared.
func Resubmit(existing, draft models.Report, actor models.Actor) (models.Report, error) {
	if !CanEdit(existing, actor) {
		return existing, fmt.Errorf("resubmit report %s: %w", existing.ID, utils.ErrForbidden)
	}
	draft.ID = existing.ID
	draft.ForemanID = existing.ForemanID
	draft.ForemanName = existing.ForemanName
	draft.ForemanRegistration = existing.ForemanRegistration
	draft.CreatedAt = existing.CreatedAt
	draft.Status = models.StatusPending
	draft.SupervisorNote = ""
	return draft, nil
}

// CanDelete is reserved to administrators.
func CanDelete(actor models.Actor) error {
	if actor.Role != models.RoleCCO {
		return fmt.Errorf("delete report: %w", utils.ErrForbidden)
	}
	return nil
}
