package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ciclus/rd-dashboard/mapper"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewReportRepository(db *gorm.DB, hub *realtime.Hub) *ReportRepository {
	return &ReportRepository{db: db, hub: hub}
}

// List returns every report, newest first. Read failures are logged and
// yield an empty list; rows that fail to decode are skipped.
func (r *ReportRepository) List(ctx context.Context) []models.Report {
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		utils.ErrorLogger.Errorf("list reports: %v", err)
		return []models.Report{}
	}

	out := make([]models.Report, 0, len(rows))
	for _, row := range rows {
		rep, err := mapper.FromRow(row)
		if err != nil {
			utils.ErrorLogger.Errorf("decode report: %v", err)
			continue
		}
		out = append(out, rep)
	}
	return out
}

func (r *ReportRepository) Get(ctx context.Context, id string) (models.Report, error) {
	var row models.ReportRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Report{}, fmt.Errorf("report %s: %w", id, utils.ErrNotFound)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return mapper.FromRow(row)
}

// Upsert creates rep when it has no id yet, assigning a fresh one, and
// replaces the stored row otherwise.
func (r *ReportRepository) Upsert(ctx context.Context, rep *models.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.Status == "" {
		rep.Status = models.StatusPending
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}

	row := mapper.ToRow(*rep)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save report %s: %w", rep.ID, err)
	}
	return nil
}

// UpdateStatus stores only the status and the supervisor note.
func (r *ReportRepository) UpdateStatus(ctx context.Context, rep models.Report) error {
	res := r.db.WithContext(ctx).Model(&models.ReportRow{}).
		Where("id = ?", rep.ID).
		Updates(map[string]interface{}{
			"status":          string(rep.Status),
			"supervisor_note": rep.SupervisorNote,
		})
	if res.Error != nil {
		return fmt.Errorf("update status of %s: %w", rep.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report %s: %w", rep.ID, utils.ErrNotFound)
	}
	return nil
}

func (r *ReportRepository) Remove(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.ReportRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete report %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report %s: %w", id, utils.ErrNotFound)
	}
	return nil
}

// Subscribe calls onChange after any write to the reports table. Callers
// re-list; no payload is passed.
func (r *ReportRepository) Subscribe(onChange func()) (unsubscribe func()) {
	return r.hub.Subscribe(realtime.TableReports, func(realtime.ChangeNotice) {
		onChange()
	})
}
