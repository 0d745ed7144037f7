package qa

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// storageKey is where the viewer persists extraction results between
// sessions.
const storageKey = "cerebellar_extraction_data"

// Scenario is one end-to-end check against the viewer UI.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, s *session) error
}

func defaultScenarios() []Scenario {
	return []Scenario{
		{Name: "load_app", Run: runLoadApp},
		{Name: "select_document", Run: runSelectDocument},
		{Name: "tab_switching", Run: runTabSwitching},
		{Name: "error_without_document", Run: runErrorWithoutDocument},
		{Name: "extract_tables_workflow", Run: runExtractTablesWorkflow},
		{Name: "extract_figures_workflow", Run: runExtractFiguresWorkflow},
		{Name: "highlight_persistence", Run: runHighlightPersistence},
	}
}

// runLoadApp verifies the viewer boots at all: the page loads and the app
// mounts its root container.
func runLoadApp(ctx context.Context, s *session) error {
	if err := s.navigate(ctx); err != nil {
		return err
	}
	if _, err := s.element(ctx, "#root"); err != nil {
		return err
	}
	s.screenshot(ctx, "loaded")
	return nil
}

// runSelectDocument picks a document from the dropdown and waits for the
// page canvas to render.
func runSelectDocument(ctx context.Context, s *session) error {
	if err := s.navigate(ctx); err != nil {
		return err
	}
	name, err := s.selectDocument(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Str("document", name).Msg("Document selected")
	if _, err := s.element(ctx, "canvas"); err != nil {
		return err
	}
	s.screenshot(ctx, "viewer")
	return nil
}

// runTabSwitching clicks through every tab of the viewer.
func runTabSwitching(ctx context.Context, s *session) error {
	if err := s.navigate(ctx); err != nil {
		return err
	}
	for _, tab := range []string{"Form", "Tables", "Figures", "Chat"} {
		if err := s.clickButton(ctx, tab); err != nil {
			return err
		}
	}
	s.screenshot(ctx, "tabs")
	return nil
}

// runErrorWithoutDocument checks that extraction without a loaded document
// is either impossible (button disabled) or rejected with a clear message.
func runErrorWithoutDocument(ctx context.Context, s *session) error {
	const op = "runErrorWithoutDocument"

	if err := s.navigate(ctx); err != nil {
		return err
	}
	if err := s.clickButton(ctx, "Tables"); err != nil {
		return err
	}

	btn, err := s.button(ctx, "Extract Tables", s.opts.StepTimeout)
	if err != nil {
		return err
	}
	if disabled, err := btn.Property("disabled"); err == nil && disabled.Bool() {
		s.log.Debug().Msg("Extract button disabled without a document")
		return nil
	}

	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return NewQAError(op, ErrInteractionFailed, err.Error())
	}
	if s.textVisible(ctx, "Please upload a PDF", 5*time.Second) {
		return nil
	}
	return NewQAError(op, ErrScenarioFailed, "no guard against extraction without a document")
}

func runExtractTablesWorkflow(ctx context.Context, s *session) error {
	return runExtraction(ctx, s, "Tables", "Extract Tables", "Extracted Tables")
}

func runExtractFiguresWorkflow(ctx context.Context, s *session) error {
	return runExtraction(ctx, s, "Figures", "Extract Figures", "Extracted Figures")
}

// runExtraction drives one extraction round trip: pick a document, switch
// to the tab, trigger the action, wait for the backend call to finish, and
// require either rendered results or a surfaced error message. A backend
// error is a working UI, so it passes with a warning; a silent UI fails.
func runExtraction(ctx context.Context, s *session, tab, action, marker string) error {
	const op = "runExtraction"

	if err := s.navigate(ctx); err != nil {
		return err
	}
	if _, err := s.selectDocument(ctx); err != nil {
		return err
	}
	if _, err := s.element(ctx, "canvas"); err != nil {
		return err
	}
	if err := s.clickButton(ctx, tab); err != nil {
		return err
	}
	s.screenshot(ctx, "before")

	if err := s.clickButton(ctx, action); err != nil {
		return err
	}

	// The button flips to a busy label while the backend call runs. Fast
	// extractions can finish before we ever observe it.
	if _, err := s.button(ctx, "Extracting", 5*time.Second); err == nil {
		s.log.Debug().Str("action", action).Msg("Extraction in progress")
	}
	if _, err := s.button(ctx, action, s.opts.ExtractionTimeout); err != nil {
		return NewQAError(op, ErrScenarioFailed, "extraction did not finish: "+action)
	}
	s.screenshot(ctx, "after")

	outcome, err := s.extractionOutcome(ctx, marker)
	if err != nil {
		return err
	}
	switch outcome {
	case "results":
		s.log.Info().Str("action", action).Msg("Extraction produced results")
		return nil
	case "error":
		s.log.Warn().Str("action", action).Msg("Extraction surfaced a backend error")
		return nil
	default:
		return NewQAError(op, ErrScenarioFailed, "no results or error message after "+action)
	}
}

// runHighlightPersistence verifies stored extraction data survives a page
// reload unchanged. An empty store on both sides also passes; there is
// simply nothing to persist yet.
func runHighlightPersistence(ctx context.Context, s *session) error {
	const op = "runHighlightPersistence"

	if err := s.navigate(ctx); err != nil {
		return err
	}
	before, err := s.storedExtraction(ctx)
	if err != nil {
		return err
	}
	if err := s.reload(ctx); err != nil {
		return err
	}
	after, err := s.storedExtraction(ctx)
	if err != nil {
		return err
	}
	if before != after {
		return NewQAError(op, ErrScenarioFailed, "stored extraction data changed across reload")
	}
	if before == "" {
		s.log.Debug().Msg("No stored extraction data yet")
	}
	return nil
}

const selectDocumentJS = `(wanted) => {
	const select = document.querySelector('select');
	if (!select) return '';
	let idx = -1;
	for (let i = 0; i < select.options.length; i++) {
		const text = select.options[i].text || '';
		if (wanted) {
			if (text.includes(wanted)) { idx = i; break; }
		} else if (i > 0) { idx = i; break; }
	}
	if (idx < 0) return '';
	select.selectedIndex = idx;
	select.dispatchEvent(new Event('input', { bubbles: true }));
	select.dispatchEvent(new Event('change', { bubbles: true }));
	return select.options[idx].text;
}`

// selectDocument chooses an entry from the document dropdown and returns
// its label. With no preference configured it takes the first real option
// after the placeholder.
func (s *session) selectDocument(ctx context.Context) (string, error) {
	const op = "selectDocument"

	if _, err := s.element(ctx, "select"); err != nil {
		return "", err
	}
	name, err := s.evalString(ctx, selectDocumentJS, s.opts.Document)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", NewQAError(op, ErrElementNotFound, "no selectable document option")
	}
	return name, nil
}

// textVisible reports whether any element matching the pattern shows up
// within the timeout.
func (s *session) textVisible(ctx context.Context, pattern string, timeout time.Duration) bool {
	_, err := s.page.Context(ctx).Timeout(timeout).ElementR("*", pattern)
	return err == nil
}

const outcomeJS = `(marker) => {
	if ((document.body.innerText || '').includes(marker)) return 'results';
	if (document.querySelector('[style*="ffe6e6"]')) return 'error';
	return '';
}`

// extractionOutcome polls briefly for either the results marker or the
// inline error panel after an extraction completes.
func (s *session) extractionOutcome(ctx context.Context, marker string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		outcome, err := s.evalString(ctx, outcomeJS, marker)
		if err != nil {
			return "", err
		}
		if outcome != "" {
			return outcome, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return "", nil
}

func (s *session) storedExtraction(ctx context.Context) (string, error) {
	return s.evalString(ctx, `() => window.localStorage.getItem('`+storageKey+`') || ''`)
}
