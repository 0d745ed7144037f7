// Package qa drives the deployed viewer app through real browser scenarios:
// loading, document selection, the extraction workflows, tab navigation, and
// highlight persistence. Scenarios run against a live Chrome via CDP, capture
// console and page errors, and leave screenshots plus a JSON summary in the
// artifacts directory.
package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"pdfextract/internal/logger"
)

// DefaultAppURL is the dev deployment the scenarios run against.
const DefaultAppURL = "http://127.0.0.1:5002"

// summaryFile is the JSON report written into the artifacts directory.
const summaryFile = "qa_summary.json"

// Options configures a harness run.
type Options struct {
	// AppURL is the base URL of the viewer app.
	AppURL string

	// Headless hides the browser window. Headed runs mirror the manual QA
	// workflow.
	Headless bool

	// SlowMo delays every browser action, for watching headed runs.
	SlowMo time.Duration

	// ArtifactsDir receives screenshots and the JSON summary.
	ArtifactsDir string

	// Scenario filters the scenario list by substring match on the name.
	// Empty runs everything.
	Scenario string

	// Document selects a PDF from the viewer's dropdown by option text.
	// Empty picks the first option after the placeholder.
	Document string

	// NavigationTimeout bounds page loads, StepTimeout individual element
	// waits, and ExtractionTimeout the extraction round-trips.
	NavigationTimeout time.Duration
	StepTimeout       time.Duration
	ExtractionTimeout time.Duration
}

// DefaultOptions returns the harness defaults.
func DefaultOptions() Options {
	return Options{
		AppURL:            DefaultAppURL,
		Headless:          true,
		ArtifactsDir:      "qa-artifacts",
		NavigationTimeout: 30 * time.Second,
		StepTimeout:       10 * time.Second,
		ExtractionTimeout: 60 * time.Second,
	}
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name          string   `json:"name"`
	Passed        bool     `json:"passed"`
	Error         string   `json:"error,omitempty"`
	ConsoleErrors []string `json:"console_errors,omitempty"`
	Screenshots   []string `json:"screenshots,omitempty"`
	DurationMS    int64    `json:"duration_ms"`
}

// Summary is the harness report written to the artifacts directory.
type Summary struct {
	AppURL    string           `json:"app_url"`
	StartedAt time.Time        `json:"started_at"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Results   []ScenarioResult `json:"results"`
}

// Runner owns one browser instance and runs scenarios against it.
type Runner struct {
	opts Options
	log  zerolog.Logger
}

// NewRunner creates a runner, filling zero-valued timeouts with defaults.
func NewRunner(opts Options) *Runner {
	defaults := DefaultOptions()
	if opts.AppURL == "" {
		opts.AppURL = defaults.AppURL
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = defaults.ArtifactsDir
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = defaults.NavigationTimeout
	}
	if opts.StepTimeout == 0 {
		opts.StepTimeout = defaults.StepTimeout
	}
	if opts.ExtractionTimeout == 0 {
		opts.ExtractionTimeout = defaults.ExtractionTimeout
	}
	return &Runner{opts: opts, log: logger.WithComponent("qa")}
}

// Run launches Chrome, executes the selected scenarios each on a fresh page,
// and writes the JSON summary. The returned error wraps ErrScenarioFailed
// when any scenario did not pass, so callers can exit non-zero.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	const op = "Run"

	selected := r.scenarios()
	if len(selected) == 0 {
		return nil, NewQAError(op, ErrUnknownScenario, r.opts.Scenario)
	}

	if err := os.MkdirAll(r.opts.ArtifactsDir, 0o755); err != nil {
		return nil, NewQAError(op, err, "artifacts dir")
	}

	controlURL, err := launcher.New().Headless(r.opts.Headless).Launch()
	if err != nil {
		return nil, NewQAError(op, ErrBrowserLaunch, err.Error())
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if r.opts.SlowMo > 0 {
		browser = browser.SlowMotion(r.opts.SlowMo)
	}
	if !r.opts.Headless {
		browser = browser.Trace(true)
	}
	if err := browser.Connect(); err != nil {
		return nil, NewQAError(op, ErrBrowserLaunch, err.Error())
	}
	defer func() {
		if err := browser.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Closing browser failed")
		}
	}()

	r.log.Info().Str("app_url", r.opts.AppURL).Bool("headless", r.opts.Headless).
		Int("scenarios", len(selected)).Msg("Starting QA run")

	summary := &Summary{AppURL: r.opts.AppURL, StartedAt: time.Now()}
	for _, sc := range selected {
		result := r.runScenario(ctx, browser, sc)
		summary.Results = append(summary.Results, result)
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if err := r.writeSummary(summary); err != nil {
		return summary, WrapQAError(op, err, "summary")
	}

	r.log.Info().Int("passed", summary.Passed).Int("failed", summary.Failed).
		Msg("QA run completed")

	if summary.Failed > 0 {
		return summary, NewQAError(op, ErrScenarioFailed,
			fmt.Sprintf("%d of %d scenarios failed", summary.Failed, len(summary.Results)))
	}
	return summary, nil
}

// scenarios returns the scenario list narrowed by the Scenario filter.
func (r *Runner) scenarios() []Scenario {
	all := defaultScenarios()
	if r.opts.Scenario == "" {
		return all
	}
	matched := make([]Scenario, 0, len(all))
	for _, sc := range all {
		if strings.Contains(sc.Name, r.opts.Scenario) {
			matched = append(matched, sc)
		}
	}
	return matched
}

// runScenario executes one scenario on a fresh page with console capture.
// Scenario failures are recorded, never propagated.
func (r *Runner) runScenario(ctx context.Context, browser *rod.Browser, sc Scenario) ScenarioResult {
	started := time.Now()
	result := ScenarioResult{Name: sc.Name}

	r.log.Info().Str("scenario", sc.Name).Msg("Running scenario")

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(started).Milliseconds()
		return result
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.log.Debug().Err(err).Str("scenario", sc.Name).Msg("Closing page failed")
		}
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		r.log.Warn().Err(err).Msg("Setting viewport failed")
	}

	s := newSession(r.opts, r.log, sc.Name, page)
	s.watchConsole(ctx)

	err = sc.Run(ctx, s)
	result.DurationMS = time.Since(started).Milliseconds()
	result.ConsoleErrors = s.consoleErrors()
	result.Screenshots = s.artifactNames()
	if err != nil {
		result.Error = err.Error()
		r.log.Error().Err(err).Str("scenario", sc.Name).Msg("Scenario failed")
		return result
	}

	result.Passed = true
	r.log.Info().Str("scenario", sc.Name).Int64("duration_ms", result.DurationMS).
		Msg("Scenario passed")
	return result
}

// writeSummary persists the report as indented JSON in the artifacts dir.
func (r *Runner) writeSummary(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.opts.ArtifactsDir, summaryFile), data, 0o644)
}
