package qa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// session is the per-scenario browser state: one page, its captured console
// output, and the screenshots taken so far.
type session struct {
	page *rod.Page
	opts Options
	log  zerolog.Logger
	name string

	mu        sync.Mutex
	console   []string
	artifacts []string
}

func newSession(opts Options, log zerolog.Logger, name string, page *rod.Page) *session {
	return &session{
		page: page,
		opts: opts,
		log:  log.With().Str("scenario", name).Logger(),
		name: name,
	}
}

// watchConsole streams console errors and uncaught exceptions into the
// session until the page closes.
func (s *session) watchConsole(ctx context.Context) {
	wait := s.page.Context(ctx).EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			if ev.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			s.record("console error: " + stringifyConsoleArgs(ev.Args))
		},
		func(ev *proto.RuntimeExceptionThrown) {
			msg := ev.ExceptionDetails.Text
			if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
				msg = ev.ExceptionDetails.Exception.Description
			}
			s.record("page error: " + msg)
		},
	)
	go wait()
}

func (s *session) record(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, msg)
}

func (s *session) consoleErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.console...)
}

func (s *session) artifactNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.artifacts...)
}

// navigate loads the app with a cache-busting query and waits for the
// network to settle.
func (s *session) navigate(ctx context.Context) error {
	const op = "navigate"

	url := cacheBusterURL(s.opts.AppURL, time.Now().UnixMilli())
	page := s.page.Context(ctx).Timeout(s.opts.NavigationTimeout)

	wait := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return NewQAError(op, ErrNavigationFailed, err.Error())
	}
	if err := page.WaitLoad(); err != nil {
		return NewQAError(op, ErrNavigationFailed, err.Error())
	}
	wait()

	s.log.Debug().Str("url", url).Msg("App loaded")
	return nil
}

// cacheBusterURL appends a timestamp query so the viewer is never served
// from cache.
func cacheBusterURL(base string, ts int64) string {
	return fmt.Sprintf("%s?_=%d", strings.TrimRight(base, "/"), ts)
}

// element waits for a selector to appear.
func (s *session) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Timeout(s.opts.StepTimeout).Element(selector)
	if err != nil {
		return nil, NewQAError("element", ErrElementNotFound, selector)
	}
	return el, nil
}

// button waits for a button whose text matches the pattern.
func (s *session) button(ctx context.Context, pattern string, timeout time.Duration) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Timeout(timeout).ElementR("button", pattern)
	if err != nil {
		return nil, NewQAError("button", ErrElementNotFound, pattern)
	}
	return el, nil
}

// clickButton waits for a button by text and clicks it.
func (s *session) clickButton(ctx context.Context, pattern string) error {
	el, err := s.button(ctx, pattern, s.opts.StepTimeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return NewQAError("clickButton", ErrInteractionFailed, pattern+": "+err.Error())
	}
	return nil
}

// evalString runs a JS function on the page and returns its result as a
// string. A null or undefined result is the empty string.
func (s *session) evalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := s.page.Context(ctx).Timeout(s.opts.StepTimeout).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", NewQAError("evalString", ErrInteractionFailed, err.Error())
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.String(), nil
}

// screenshot captures the viewport into the artifacts directory. Failures
// are logged, not fatal: a missing screenshot must not fail the scenario.
func (s *session) screenshot(ctx context.Context, label string) {
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("label", label).Msg("Screenshot failed")
		return
	}

	name := fmt.Sprintf("%s_%s.png", s.name, label)
	if err := os.WriteFile(filepath.Join(s.opts.ArtifactsDir, name), data, 0o644); err != nil {
		s.log.Warn().Err(err).Str("label", label).Msg("Writing screenshot failed")
		return
	}

	s.mu.Lock()
	s.artifacts = append(s.artifacts, name)
	s.mu.Unlock()
}

// reload refreshes the page and waits for it to load again.
func (s *session) reload(ctx context.Context) error {
	const op = "reload"

	page := s.page.Context(ctx).Timeout(s.opts.NavigationTimeout)
	if err := page.Reload(); err != nil {
		return NewQAError(op, ErrNavigationFailed, err.Error())
	}
	if err := page.WaitLoad(); err != nil {
		return NewQAError(op, ErrNavigationFailed, err.Error())
	}
	return nil
}

func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
