package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/ciclus/rd-dashboard/mapper"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db, DriverSQLite))
	t.Cleanup(func() { Close(db) })
	return db
}

func TestTriggersFeedChanges(t *testing.T) {
	db := setupTestDB(t)

	row := mapper.ToRow(models.Report{
		ID:        "rd-1",
		Date:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	})
	require.NoError(t, db.Create(&row).Error)
	require.NoError(t, db.Model(&models.ReportRow{}).Where("id = ?", "rd-1").Update("street", "Rua A").Error)
	require.NoError(t, db.Delete(&models.ReportRow{}, "id = ?", "rd-1").Error)

	var changes []models.DBChange
	require.NoError(t, db.Order("id").Find(&changes).Error)
	require.Len(t, changes, 3)

	assert.Equal(t, "rds", changes[0].TableName)
	assert.Equal(t, "rd-1", changes[0].RecordID)
	assert.Equal(t, []string{models.ActionInsert, models.ActionUpdate, models.ActionDelete},
		[]string{changes[0].ActionType, changes[1].ActionType, changes[2].ActionType})
	assert.False(t, changes[0].Processed)
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, Migrate(db, DriverSQLite))
}

func TestUpgradeLegacyRows(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Exec("ALTER TABLE rds ADD COLUMN work_photo_initial text").Error)

	require.NoError(t, db.Exec(`INSERT INTO rds (id, schema_version, date, status, metrics, work_photo_initial, created_at)
		VALUES (?, 1, ?, 'Aprovado', ?, ?, ?)`,
		"old-1", "2025-11-03T10:00:00Z",
		`{"capinaM": 500, "teamAttendance": [{"employeeId":"e1","name":"Carlos","registration":"1001","role":"Ajudante","present":true}]}`,
		"https://cdn/old-initial.jpg", time.Now()).Error)

	n, err := UpgradeReportRows(db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var row models.ReportRow
	require.NoError(t, db.First(&row, "id = ?", "old-1").Error)
	assert.Equal(t, models.ReportSchemaVersion, row.SchemaVersion)
	assert.NotContains(t, string(row.Metrics), "teamAttendance")

	r, err := mapper.FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, 500.0, r.Metrics.CapinaM)
	require.Len(t, r.TeamAttendance, 1)
	assert.Equal(t, "Carlos", r.TeamAttendance[0].Name)
	assert.Equal(t, "https://cdn/old-initial.jpg", r.Photos.Initial)

	n, err = UpgradeReportRows(db)
	require.NoError(t, err)
	assert.Zero(t, n)
}
