package main

import (
	"bufio"
	"fmt"

	"github.com/torosent/flood/internal/config"
	"github.com/torosent/flood/internal/metrics"
	"github.com/torosent/flood/internal/output"
	"github.com/torosent/flood/internal/runner"
	"github.com/torosent/flood/internal/threshold"
)

// report prints the summary and writes any requested report files. Report
// errors are logged; they never change the run result.
func (a *app) report(cfg config.Config, result runner.Result, history []metrics.DataPoint, thresholds []threshold.Result) {
	stats := result.Stats
	var err error
	switch {
	case cfg.JSONOutput:
		err = output.PrintJSONReport(a.stdout, stats)
	case cfg.YAMLOutput:
		err = output.PrintYAMLReport(a.stdout, stats)
	default:
		output.PrintReport(a.stdout, stats, cfg.Verbose)
		a.printThresholds(thresholds)
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to print report")
	}

	metadata := output.ReportMetadata{
		RunID:       result.ID,
		Target:      targetLabel(cfg),
		Concurrency: cfg.Concurrency,
		Requests:    cfg.Total,
	}
	if cfg.HTMLOutput != "" {
		a.writeReport(cfg.HTMLOutput, func(w *bufio.Writer) error {
			return output.GenerateHTMLReport(w, stats, history, thresholds, metadata)
		})
	}
	if cfg.XLSXOutput != "" {
		a.writeReport(cfg.XLSXOutput, func(w *bufio.Writer) error {
			return output.WriteXLSXReport(w, stats, metadata)
		})
	}
}

func (a *app) writeReport(path string, fn func(w *bufio.Writer) error) {
	if err := output.WriteFile(path, fn); err != nil {
		a.logger.Error().Err(err).Str("path", path).Msg("failed to write report")
		return
	}
	a.logger.Info().Str("path", path).Msg("report written")
}

func (a *app) printThresholds(results []threshold.Result) {
	summary := output.SummarizeThresholds(results)
	if summary == nil {
		return
	}
	fmt.Fprintf(a.stdout, "\nThresholds (%d/%d passed):\n", summary.Passed, summary.Total)
	for _, r := range summary.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(a.stdout, "  [%s] %s (actual %.2f)\n", status, r.Threshold, r.Actual)
	}
}
