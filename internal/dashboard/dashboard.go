package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/flood/internal/metrics"
)

const (
	refreshInterval = 500 * time.Millisecond
	historyLimit    = 100
	maxFailureRows  = 10
	sampleWidth     = 80
)

// Source is the live aggregation the dashboard polls.
type Source interface {
	Snapshot(elapsed time.Duration) metrics.Stats
}

// TestConfig holds load test configuration parameters for display.
type TestConfig struct {
	Target      string        // host:port/path with scheme
	Concurrency int           // Number of concurrent workers
	Total       int           // Total requests to execute
	Rate        int           // Requests per second (0 = unlimited)
	Interval    time.Duration // Per-worker delay between requests
	Timeout     time.Duration // Request timeout
	Method      string
	ConfigFile  string
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	source       Source
	history      *metrics.History
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	rpsGauge       *widgets.Gauge
	failureList    *widgets.List
	sampleList     *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	peakRPS        float64
	startTime      time.Time
	testDuration   time.Duration
	testConfig     TestConfig
}

// New initializes the terminal and lays out the widgets. shutdownFunc is
// invoked when the user presses q or Ctrl-C. history may be nil.
func New(source Source, history *metrics.History, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	d := newDashboard(source, history, cfg)
	d.shutdownFunc = shutdownFunc
	d.setupGrid()
	return d, nil
}

func newDashboard(source Source, history *metrics.History, cfg TestConfig) *Dashboard {
	if history == nil {
		history = &metrics.History{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		source:         source,
		history:        history,
		ctx:            ctx,
		cancel:         cancel,
		latencyHistory: make([]float64, 0, historyLimit),
		startTime:      time.Now(),
		testConfig:     cfg,
	}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Requests Per Second"
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.sampleList = widgets.NewList()
	d.sampleList.Title = "Latest Responses"
	d.sampleList.Rows = []string{"Awaiting data"}
	d.sampleList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.sampleList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Test Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.5, d.sampleList),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.testDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// History returns the points sampled on each refresh.
func (d *Dashboard) History() []metrics.DataPoint {
	return d.history.Points()
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Keep rendering until Stop cancels the context.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case now := <-ticker.C:
			elapsed := now.Sub(d.startTime)
			stats := d.source.Snapshot(elapsed)
			point := d.history.Add(stats, now)
			d.update(stats, point.CurrentRPS, elapsed)
			d.render()
		}
	}
}

// update refreshes all widget data from one snapshot.
func (d *Dashboard) update(stats metrics.Stats, currentRPS float64, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if stats.MeanLatency > 0 {
		d.latencyHistory = append(d.latencyHistory, stats.MeanLatencyMs)
		if len(d.latencyHistory) > historyLimit {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			stats.MeanLatencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	if currentRPS > d.peakRPS {
		d.peakRPS = currentRPS
	}
	d.rpsGauge.Percent = gaugePercent(currentRPS, d.peakRPS)
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS (peak %.1f)", currentRPS, d.peakRPS)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}
	progress := ""
	if d.testConfig.Total > 0 {
		progress = fmt.Sprintf(" of %d", d.testConfig.Total)
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Completed: %d%s | Success Rate: %.1f%%",
		d.testConfig.Target,
		d.formatTestParams(),
		elapsed.Round(time.Second),
		stats.Total,
		progress,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Completed:         %d\nSuccess:           %d\nFailures:          %d\nCurrent RPS:       %.2f\nAverage RPS:       %.2f\nBytes Received:    %d",
		stats.Total,
		stats.Successes,
		stats.Failures,
		currentRPS,
		stats.RequestsPerSec,
		stats.Bytes,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.failureList.Rows = formatFailureRows(stats.Errors)
	d.sampleList.Rows = formatSampleRows(stats.SampleStrings())
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func gaugePercent(current, peak float64) int {
	if peak <= 0 {
		return 0
	}
	percent := int((current / peak) * 100)
	if percent > 100 {
		percent = 100
	}
	return percent
}

func formatFailureRows(errors map[string]int) []string {
	if len(errors) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	kinds := make([]string, 0, len(errors))
	for kind := range errors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if errors[kinds[i]] == errors[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return errors[kinds[i]] > errors[kinds[j]]
	})
	if len(kinds) > maxFailureRows {
		kinds = kinds[:maxFailureRows]
	}
	rows := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) %d", kind, errors[kind]))
	}
	return rows
}

// formatSampleRows shows the first line of each sample, newest first.
func formatSampleRows(samples []string) []string {
	if len(samples) == 0 {
		return []string{"Awaiting data"}
	}
	rows := make([]string, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		line, _, _ := strings.Cut(samples[i], "\n")
		line = strings.TrimRight(line, "\r")
		if len(line) > sampleWidth {
			line = line[:sampleWidth] + "..."
		}
		rows = append(rows, line)
	}
	return rows
}

// formatTestParams formats the test configuration parameters for display.
func (d *Dashboard) formatTestParams() string {
	var parts []string

	if d.testConfig.Method != "" && d.testConfig.Method != "GET" {
		parts = append(parts, fmt.Sprintf("Method: %s", d.testConfig.Method))
	}
	if d.testConfig.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.testConfig.Concurrency))
	}
	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.testConfig.Interval > 0 {
		parts = append(parts, fmt.Sprintf("Interval: %s", d.testConfig.Interval))
	}
	if d.testConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.testConfig.Total))
	}
	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}
	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
