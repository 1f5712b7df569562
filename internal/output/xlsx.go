package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/torosent/flood/internal/metrics"
)

const xlsxSheet = "Load Test Report"

// WriteXLSXReport writes a single-sheet workbook with the run summary,
// latency figures and failure breakdown.
func WriteXLSXReport(w io.Writer, stats metrics.Stats, metadata ReportMetadata) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Run ID", metadata.RunID},
		{"Target", metadata.Target},
		{"Concurrency", metadata.Concurrency},
		{"Requests", metadata.Requests},
		{"Success", stats.Successes},
		{"Failures", stats.Failures},
		{"Elapsed Time (s)", stats.Duration.Seconds()},
		{"Requests/sec", stats.RequestsPerSec},
		{"Bytes Received", stats.Bytes},
		{"Min Latency (ms)", stats.MinLatencyMs},
		{"Mean Latency (ms)", stats.MeanLatencyMs},
		{"P50 Latency (ms)", stats.P50LatencyMs},
		{"P90 Latency (ms)", stats.P90LatencyMs},
		{"P95 Latency (ms)", stats.P95LatencyMs},
		{"P99 Latency (ms)", stats.P99LatencyMs},
		{"Max Latency (ms)", stats.MaxLatencyMs},
	}
	if failures := FailureRows(stats); len(failures) > 0 {
		rows = append(rows, []any{}, []any{"Failure Kind", "Count"})
		for _, row := range failures {
			rows = append(rows, []any{row.Kind, row.Count})
		}
	}

	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "B1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxSheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxSheet, "B", "B", 36); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
