package qa

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, DefaultAppURL, opts.AppURL)
	assert.True(t, opts.Headless)
	assert.Equal(t, "qa-artifacts", opts.ArtifactsDir)
	assert.Equal(t, 30*time.Second, opts.NavigationTimeout)
	assert.Equal(t, 10*time.Second, opts.StepTimeout)
	assert.Equal(t, 60*time.Second, opts.ExtractionTimeout)
}

func TestNewRunnerFillsDefaults(t *testing.T) {
	r := NewRunner(Options{Scenario: "tables"})

	assert.Equal(t, DefaultAppURL, r.opts.AppURL)
	assert.Equal(t, "qa-artifacts", r.opts.ArtifactsDir)
	assert.Equal(t, 30*time.Second, r.opts.NavigationTimeout)
	assert.Equal(t, 10*time.Second, r.opts.StepTimeout)
	assert.Equal(t, 60*time.Second, r.opts.ExtractionTimeout)
	assert.Equal(t, "tables", r.opts.Scenario)
}

func TestScenarioFilter(t *testing.T) {
	names := func(scs []Scenario) []string {
		out := make([]string, 0, len(scs))
		for _, sc := range scs {
			out = append(out, sc.Name)
		}
		return out
	}

	all := NewRunner(Options{}).scenarios()
	assert.Equal(t, []string{
		"load_app",
		"select_document",
		"tab_switching",
		"error_without_document",
		"extract_tables_workflow",
		"extract_figures_workflow",
		"highlight_persistence",
	}, names(all))

	workflows := NewRunner(Options{Scenario: "workflow"}).scenarios()
	assert.Equal(t, []string{"extract_tables_workflow", "extract_figures_workflow"}, names(workflows))

	tables := NewRunner(Options{Scenario: "tables"}).scenarios()
	assert.Equal(t, []string{"extract_tables_workflow"}, names(tables))

	assert.Empty(t, NewRunner(Options{Scenario: "no-such-check"}).scenarios())
}

func TestRunUnknownScenario(t *testing.T) {
	r := NewRunner(Options{Scenario: "no-such-check"})

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Nil(t, summary)
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(Options{ArtifactsDir: dir})

	summary := &Summary{
		AppURL:    DefaultAppURL,
		StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Passed:    1,
		Failed:    1,
		Results: []ScenarioResult{
			{Name: "load_app", Passed: true, DurationMS: 1200, Screenshots: []string{"load_app_loaded.png"}},
			{Name: "tab_switching", Error: "element not found: button", DurationMS: 10400},
		},
	}
	require.NoError(t, r.writeSummary(summary))

	data, err := os.ReadFile(filepath.Join(dir, "qa_summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms"`)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.AppURL, decoded.AppURL)
	assert.Equal(t, 1, decoded.Passed)
	assert.Equal(t, 1, decoded.Failed)
	require.Len(t, decoded.Results, 2)
	assert.True(t, decoded.Results[0].Passed)
	assert.Equal(t, []string{"load_app_loaded.png"}, decoded.Results[0].Screenshots)
	assert.Equal(t, "element not found: button", decoded.Results[1].Error)
}

func TestCacheBusterURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:5002?_=1748779200000",
		cacheBusterURL("http://127.0.0.1:5002", 1748779200000))
	assert.Equal(t, "http://127.0.0.1:5002?_=1748779200000",
		cacheBusterURL("http://127.0.0.1:5002/", 1748779200000))
}

func TestQAErrorFormat(t *testing.T) {
	err := NewQAError("Run", ErrScenarioFailed, "2 of 7 scenarios failed")
	assert.True(t, strings.HasPrefix(err.Error(), "qa: Run failed: 2 of 7 scenarios failed"))
	assert.ErrorIs(t, err, ErrScenarioFailed)

	wrapped := WrapQAError("Run", err, "again")
	assert.Same(t, err, wrapped)
}
