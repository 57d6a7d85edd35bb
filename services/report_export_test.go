package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportSample() []models.Report {
	return []models.Report{{
		ID:             "rd-1",
		Date:           time.Date(2026, 3, 14, 7, 45, 0, 0, time.UTC),
		SupervisorName: "Marta",
		ForemanName:    "Pedro",
		Base:           models.BaseSul,
		Shift:          models.ShiftDiurno,
		Status:         models.StatusApproved,
		Street:         "Rua A; esquina",
		Perimeter:      "Entre X e Y",
		Metrics:        models.ProductionMetrics{CapinaM: 2100, RocagemM2: 500, PinturaViasM: 10, PinturaPostesUnd: 3},
		TeamAttendance: []models.AttendanceRecord{{Present: true}, {Present: true}, {Present: false}},
		Observations:   "linha 1\nlinha 2",
		Location:       &models.GeoLocation{Lat: -22.9068467, Lng: -43.1728965},
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportSample()))

	r := csv.NewReader(&buf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeaders, rows[0])

	row := rows[1]
	assert.Equal(t, "14/03/2026", row[1])
	assert.Equal(t, "07:45", row[2])
	assert.Equal(t, "Rua A; esquina", row[8])
	assert.Equal(t, "2.100", row[11])
	assert.Equal(t, "2", row[15])
	assert.Equal(t, "linha 1 linha 2", row[16])
	assert.Equal(t, "-22.9068467", row[17])
	assert.Equal(t, "1.050", row[19])
	assert.Equal(t, "1,50", row[21])
	assert.Equal(t, "250", row[22])
}

func TestWriteCSVEmptyCrewDividesByOne(t *testing.T) {
	reports := exportSample()
	reports[0].TeamAttendance = nil
	reports[0].Location = nil

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, reports))
	r := csv.NewReader(&buf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2.100", rows[1][19])
	assert.Equal(t, "", rows[1][17])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, exportSample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Capinação (m)", rows[0][11])
	assert.Equal(t, "2100", rows[1][11])
	assert.Equal(t, "Pedro", rows[1][4])
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "Ciclus_RD_Export_2026-03.csv", ExportFileName("2026-03", ExportCSV))
	assert.Equal(t, "Ciclus_RD_Export_todos.xlsx", ExportFileName("", ExportXLSX))
	assert.Contains(t, ContentType(ExportXLSX), "spreadsheetml")
}
