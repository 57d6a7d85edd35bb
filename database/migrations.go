package database

import (
	"encoding/json"
	"fmt"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// legacyPhotoColumns were separate columns before photos moved into a blob.
var legacyPhotoColumns = []string{
	"work_photo_initial", "work_photo_progress", "work_photo_final", "work_photo_url", "signature_image_url",
}

// Migrate creates or updates every table, upgrades old report rows and
// installs the change-feed triggers.
func Migrate(db *gorm.DB, driver string) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.ReportRow{},
		&models.DBChange{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")

	n, err := UpgradeReportRows(db)
	if err != nil {
		return err
	}
	if n > 0 {
		utils.InfoLogger.Infof("upgraded %d report rows to schema v%d", n, models.ReportSchemaVersion)
	}

	return ExecuteTriggers(db, driver)
}

// legacyRow is a v1 report row: the metrics blob also carries the roster,
// and photos may still sit in their own columns.
type legacyRow struct {
	ID                string
	Metrics           datatypes.JSON
	TeamAttendance    datatypes.JSON
	Photos            datatypes.JSON
	WorkPhotoInitial  string
	WorkPhotoProgress string
	WorkPhotoFinal    string
	WorkPhotoURL      string `gorm:"column:work_photo_url"`
	SignatureImageURL string `gorm:"column:signature_image_url"`
}

// UpgradeReportRows rewrites every row below the current schema version
// into the canonical shape and returns how many rows changed.
func UpgradeReportRows(db *gorm.DB) (int, error) {
	cols := []string{"id", "metrics", "team_attendance", "photos"}
	for _, c := range legacyPhotoColumns {
		if db.Migrator().HasColumn(&models.ReportRow{}, c) {
			cols = append(cols, c)
		}
	}

	var rows []legacyRow
	err := db.Table(models.ReportRow{}.TableName()).
		Select(cols).
		Where("schema_version < ?", models.ReportSchemaVersion).
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("load legacy rows: %w", err)
	}

	upgraded := 0
	for _, row := range rows {
		updates, err := upgradeRow(row)
		if err != nil {
			utils.ErrorLogger.Errorf("skip report %s: %v", row.ID, err)
			continue
		}
		if err := db.Model(&models.ReportRow{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return upgraded, fmt.Errorf("upgrade report %s: %w", row.ID, err)
		}
		upgraded++
	}
	return upgraded, nil
}

func upgradeRow(row legacyRow) (map[string]interface{}, error) {
	updates := map[string]interface{}{"schema_version": models.ReportSchemaVersion}

	if len(row.Metrics) > 0 && string(row.Metrics) != "null" {
		var blob map[string]json.RawMessage
		if err := json.Unmarshal(row.Metrics, &blob); err != nil {
			return nil, fmt.Errorf("metrics blob: %w", err)
		}
		var m models.ProductionMetrics
		if err := json.Unmarshal(row.Metrics, &m); err != nil {
			return nil, fmt.Errorf("metrics values: %w", err)
		}
		clean, _ := json.Marshal(m)
		updates["metrics"] = datatypes.JSON(clean)

		if roster, ok := blob["teamAttendance"]; ok && isBlank(row.TeamAttendance) {
			updates["team_attendance"] = datatypes.JSON(roster)
		}
	} else {
		updates["metrics"] = datatypes.JSON(`{"capinaM":0,"pinturaViasM":0,"pinturaPostesUnd":0,"rocagemM2":0}`)
	}
	if isBlank(row.TeamAttendance) && updates["team_attendance"] == nil {
		updates["team_attendance"] = datatypes.JSON("[]")
	}

	if isBlank(row.Photos) {
		photos := models.ReportPhotos{
			Initial:   row.WorkPhotoInitial,
			Progress:  row.WorkPhotoProgress,
			Final:     row.WorkPhotoFinal,
			Legacy:    row.WorkPhotoURL,
			Signature: row.SignatureImageURL,
		}
		b, _ := json.Marshal(photos)
		updates["photos"] = datatypes.JSON(b)
	}
	return updates, nil
}

func isBlank(raw datatypes.JSON) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == `""`
}
