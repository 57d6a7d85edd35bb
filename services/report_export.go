package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

const exportSheet = "RDs"

var exportHeaders = []string{
	"ID", "Data", "Hora", "Supervisor", "Encarregado", "Base", "Turno", "Status",
	"Rua", "Bairro", "Perímetro",
	"Capinação (m)", "Pintura (m)", "Roçagem (m²)", "Postes (und)",
	"Homens (qtd)", "Observações", "Latitude", "Longitude",
	"Cap/Rasp m/homem", "Pintura Via m/homem", "Pintura de Poste nº/homem", "Roçagem (m²) / homem",
}

// ExportFileName names the download for a period label such as "2026-03".
func ExportFileName(period string, format ExportFormat) string {
	if period == "" {
		period = "todos"
	}
	return fmt.Sprintf("Ciclus_RD_Export_%s.%s", period, format)
}

func ContentType(format ExportFormat) string {
	if format == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// perMan divides production by the present crew, never by less than one.
func perMan(r models.Report) models.ProductionMetrics {
	div := float64(r.PresentCount())
	if div < 1 {
		div = 1
	}
	return models.ProductionMetrics{
		CapinaM:          r.Metrics.CapinaM / div,
		PinturaViasM:     r.Metrics.PinturaViasM / div,
		PinturaPostesUnd: r.Metrics.PinturaPostesUnd / div,
		RocagemM2:        r.Metrics.RocagemM2 / div,
	}
}

func exportValues(r models.Report) []interface{} {
	pm := perMan(r)
	var lat, lng interface{} = "", ""
	if r.Location != nil {
		lat, lng = coordinate(r.Location.Lat), coordinate(r.Location.Lng)
	}
	return []interface{}{
		r.ID, r.Date.Format("02/01/2006"), r.Date.Format("15:04"),
		r.SupervisorName, r.ForemanName, string(r.Base), string(r.Shift), string(r.Status),
		r.Street, r.Neighborhood, flatten(r.Perimeter),
		r.Metrics.CapinaM, r.Metrics.PinturaViasM, r.Metrics.RocagemM2, r.Metrics.PinturaPostesUnd,
		r.PresentCount(), flatten(r.Observations), lat, lng,
		round2(pm.CapinaM), round2(pm.PinturaViasM), round2(pm.PinturaPostesUnd), round2(pm.RocagemM2),
	}
}

// WriteCSV writes the ";"-separated export.
func WriteCSV(w io.Writer, reports []models.Report) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, r := range reports {
		values := exportValues(r)
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = csvCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as a single-sheet workbook with numeric cells.
func WriteXLSX(w io.Writer, reports []models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportValues(r)
		for j, v := range row {
			if c, ok := v.(coordinate); ok {
				row[j] = float64(c)
			}
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// coordinate keeps full precision in the CSV.
type coordinate float64

func csvCell(v interface{}) string {
	switch x := v.(type) {
	case coordinate:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case float64:
		return utils.FormatNumberBR(x, decimalsOf(x))
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func decimalsOf(x float64) int {
	if x == float64(int64(x)) {
		return 0
	}
	return 2
}

func round2(x float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return v
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, ";", ",")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
