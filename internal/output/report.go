package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/torosent/flood/internal/metrics"
)

// PrintReport outputs a human-readable summary report. Response samples are
// included when verbose is set.
func PrintReport(w io.Writer, stats metrics.Stats, verbose bool) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Success:           %d\n", stats.Successes)
	fmt.Fprintf(w, "Failures:          %d\n", stats.Failures)
	fmt.Fprintf(w, "Elapsed Time:      %.2f seconds\n", stats.Duration.Seconds())
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintf(w, "Bytes Received:    %d\n", stats.Bytes)
	if stats.Successes > 0 {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
		fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
		fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
		fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
		fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
		fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
	}

	if rows := FailureRows(stats); len(rows) > 0 {
		fmt.Fprintln(w, "\nFailure Breakdown:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d\n", row.Kind, row.Count)
		}
	}

	if verbose {
		samples := stats.SampleStrings()
		fmt.Fprintln(w, "\nResponse Samples:")
		if len(samples) == 0 {
			fmt.Fprintln(w, "  None")
		}
		for i, sample := range samples {
			fmt.Fprintf(w, "  [%d] %q\n", i+1, sample)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

type yamlReport struct {
	metrics.Stats `yaml:",inline"`
	Samples       []string `yaml:"samples,omitempty"`
}

// PrintYAMLReport outputs the same fields as PrintJSONReport in YAML.
func PrintYAMLReport(w io.Writer, stats metrics.Stats) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlReport{Stats: stats, Samples: stats.SampleStrings()}); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

// FailureRow is one line of the failure breakdown.
type FailureRow struct {
	Kind  string
	Count int
}

// FailureRows returns the failure kinds ordered by count, then name.
func FailureRows(stats metrics.Stats) []FailureRow {
	rows := make([]FailureRow, 0, len(stats.Errors))
	for kind, count := range stats.Errors {
		rows = append(rows, FailureRow{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Kind < rows[j].Kind
	})
	return rows
}
