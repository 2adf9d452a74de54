// v1
// internal/report/export.go
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteCSV streams the river's full history as CSV, one row per record.
func (f *Facade) WriteCSV(w io.Writer, riverID string) error {
	recs, err := f.src.History(riverID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{
		"timestamp", "robot_id", "river_name", "mission", "state",
		"pH", "turbidity", "temperature", "TDS",
		"quality_score", "quality_status", "warnings",
		"waste_detected", "waste_type", "waste_weight_kg",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.Timestamp.Format(time.RFC3339),
			rec.RobotID,
			rec.RiverName,
			strconv.Itoa(rec.Mission),
			rec.State,
			fmtFloat(rec.Sensors.PH),
			fmtFloat(rec.Sensors.Turbidity),
			fmtFloat(rec.Sensors.Temperature),
			fmtFloat(rec.Sensors.TDS),
			fmtFloat(rec.Quality.Score),
			rec.Quality.Status,
			strings.Join(rec.Quality.Warnings, "; "),
			strconv.FormatBool(rec.Waste.Detected),
			rec.Waste.Type,
			fmtFloat(rec.Waste.WeightKg),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders the mission report: summary, rolling averages and the
// before/after comparison. An empty history still yields a valid
// document stating that no data was collected.
func (f *Facade) WritePDF(w io.Writer, riverID string) error {
	name := f.src.DisplayName(riverID)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Water Quality Report - "+name)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	pdf.Ln(10)

	summary, err := f.Summary(riverID)
	if err != nil {
		return err
	}
	if summary.Current == nil {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No data collected for this river yet.")
		return pdf.Output(w)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Current Conditions")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	cur := summary.Current
	kv := [][2]string{
		{"Quality score", fmt.Sprintf("%.2f (%s)", cur.QualityScore, cur.Status)},
		{"pH", fmtFloat(cur.PH)},
		{"Turbidity (NTU)", fmtFloat(cur.Turbidity)},
		{"Temperature (C)", fmtFloat(cur.Temperature)},
		{"TDS (ppm)", fmtFloat(cur.TDS)},
		{"Total readings", strconv.Itoa(summary.Statistics.TotalReadings)},
		{"Warnings (recent)", strconv.Itoa(summary.Statistics.TotalWarnings)},
	}
	for _, row := range kv {
		pdf.CellFormat(60, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, row[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	if avg, err := f.Average(riverID, AverageWindow); err == nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Rolling Averages (last %d samples)", avg.Samples))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		rows := [][2]string{
			{"pH", fmtFloat(avg.PH)},
			{"Turbidity (NTU)", fmtFloat(avg.Turbidity)},
			{"Temperature (C)", fmtFloat(avg.Temperature)},
			{"TDS (ppm)", fmtFloat(avg.TDS)},
			{"Quality score", fmtFloat(avg.QualityScore)},
		}
		for _, row := range rows {
			pdf.CellFormat(60, 6, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, row[1], "1", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	if cmp, err := f.BeforeAfter(riverID); err == nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Before / After Comparison")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(50, 6, "Metric", "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, "Before", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, "After", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, "Delta", "1", 1, "R", false, 0, "")
		rows := [][4]string{
			{"Quality score", fmtFloat(cmp.ScoreBefore), fmtFloat(cmp.ScoreAfter), fmtFloat(cmp.ScoreDelta)},
			{"pH", fmtFloat(cmp.PHBefore), fmtFloat(cmp.PHAfter), fmtFloat(cmp.PHDelta)},
			{"Turbidity (NTU)", fmtFloat(cmp.TurbidityBefore), fmtFloat(cmp.TurbidityAfter), fmtFloat(cmp.TurbidityDelta)},
			{"Temperature (C)", fmtFloat(cmp.TemperatureBefore), fmtFloat(cmp.TemperatureAfter), fmtFloat(cmp.TemperatureDelta)},
			{"TDS (ppm)", fmtFloat(cmp.TDSBefore), fmtFloat(cmp.TDSAfter), fmtFloat(cmp.TDSDelta)},
		}
		for _, row := range rows {
			pdf.CellFormat(50, 6, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, row[1], "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, row[2], "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, row[3], "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.Cell(0, 5, "Turbidity delta is before-after: a positive value means clearer water.")
	}

	return pdf.Output(w)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
