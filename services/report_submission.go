package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
)

// ApplySubmitterDefaults fills what the submitter implies: a supervisor
// submitting without choosing one is the responsible supervisor.
func ApplySubmitterDefaults(r *models.Report, user models.User) {
	if user.Role == models.RoleSupervisor && r.SupervisorID == "" {
		r.SupervisorID = user.ID
	}
}

// SaveSubmission stores a validated report for user. With existingID the
// report replaces that one through Resubmit; otherwise it is created with the
// submitter as foreman. Status is always Pending and the supervisor name and
// team are resolved from users.
func SaveSubmission(ctx context.Context, user models.User, existingID string, r models.Report,
	reports ReportStore, users UserLookup, now time.Time) (models.Report, error) {
	actor := models.Actor{ID: user.ID, Role: user.Role}

	if existingID != "" {
		existing, err := reports.Get(ctx, existingID)
		if err != nil {
			return models.Report{}, fmt.Errorf("load report %s: %w", existingID, err)
		}
		if r, err = Resubmit(existing, r, actor); err != nil {
			return models.Report{}, err
		}
	} else {
		r.ID = ""
		r.ForemanID = user.ID
		r.ForemanName = user.Name
		r.ForemanRegistration = user.Registration
		r.CreatedAt = now
		r.Status = models.StatusPending
		r.SupervisorNote = ""
	}
	if r.Date.IsZero() {
		r.Date = now
	}
	if r.ForemanTeam == "" && r.ForemanID == user.ID {
		r.ForemanTeam = user.Team
	}
	if r.Team == "" {
		r.Team = r.ForemanTeam
	}
	if r.Segments == nil {
		r.Segments = []models.TrackSegment{}
	}
	if r.TeamAttendance == nil {
		r.TeamAttendance = []models.AttendanceRecord{}
	}

	r.SupervisorName = ""
	r.SupervisorTeam = ""
	if users != nil {
		sup, err := users.Get(ctx, r.SupervisorID)
		switch {
		case err == nil:
			r.SupervisorName = sup.Name
			r.SupervisorTeam = sup.Team
		case errors.Is(err, utils.ErrNotFound):
		default:
			return models.Report{}, fmt.Errorf("resolve supervisor: %w", err)
		}
	}

	if err := reports.Upsert(ctx, &r); err != nil {
		return models.Report{}, fmt.Errorf("save report: %w", err)
	}
	return r, nil
}
