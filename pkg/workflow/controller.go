// Package workflow drives the two-step analyze-then-patch session against the
// remote service and exposes its state to whatever renders it.
package workflow

//go:generate mockgen -destination=mock_service_test.go -package=workflow github.com/helmcode/zeropatch/pkg/workflow Service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/helmcode/zeropatch/pkg/model"
	"github.com/helmcode/zeropatch/pkg/service"
)

var (
	// ErrBusy is returned when an operation is already in flight.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrNotAnalyzed is returned by GeneratePatch before any analysis succeeded.
	ErrNotAnalyzed = errors.New("no successful analysis to patch")
	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("session closed")
)

// Service is the remote analysis and patching backend.
type Service interface {
	Analyze(ctx context.Context, repoURL string) ([]model.FileAnalysis, error)
	GeneratePatch(ctx context.Context, repoURL string) ([]model.PatchResult, error)
}

// Controller owns the state of one session. Service failures never escape an
// operation; they are recorded and surface through View().LastError.
type Controller struct {
	svc       Service
	logger    *slog.Logger
	sessionID string

	mu        sync.Mutex
	reference string
	state     State
	closed    bool
	listeners map[int]func(View)
	nextID    int
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New starts a fresh session in the Idle phase.
func New(svc Service, opts ...Option) *Controller {
	c := &Controller{
		svc:       svc,
		logger:    slog.Default(),
		sessionID: uuid.NewString(),
		state:     Idle{},
		listeners: make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", c.sessionID)
	return c
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

// SetReference updates the repository reference used by the next operation.
// No validation happens here; the service decides what it accepts.
func (c *Controller) SetReference(ref string) {
	c.mu.Lock()
	if c.reference == ref {
		c.mu.Unlock()
		return
	}
	c.reference = ref
	view, listeners := c.snapshotLocked()
	c.mu.Unlock()
	notify(listeners, view)
}

func (c *Controller) Reference() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reference
}

// State returns the current tagged state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewOf(c.reference, c.state, c.closed)
}

// Subscribe registers fn to run after every state change. The returned func
// removes it again.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close tears the session down. Results of requests still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.listeners = make(map[int]func(View))
	c.logger.Debug("session closed", "phase", c.state.Phase())
}

// Analyze scans the current reference. Starting a new analysis discards any
// previous findings, patches and error before the request is sent.
func (c *Controller) Analyze(ctx context.Context) error {
	ref, err := c.begin(func(State) error { return nil }, Analyzing{})
	if err != nil {
		return err
	}

	findings, svcErr := c.svc.Analyze(ctx, ref)

	var next State
	if svcErr != nil {
		next = AnalysisFailed{Err: errorMessage(svcErr)}
	} else {
		if findings == nil {
			findings = []model.FileAnalysis{}
		}
		next = Analyzed{Findings: findings}
	}
	return c.settle(next, svcErr)
}

// GeneratePatch requests patches for the current reference. It is only
// accepted after an analysis has succeeded in this session; findings survive
// both success and failure.
func (c *Controller) GeneratePatch(ctx context.Context) error {
	var findings []model.FileAnalysis
	ref, err := c.begin(func(s State) error {
		if !canPatchFrom(s) {
			return ErrNotAnalyzed
		}
		findings = findingsOf(s)
		return nil
	}, nil)
	if err != nil {
		return err
	}

	patches, svcErr := c.svc.GeneratePatch(ctx, ref)

	var next State
	if svcErr != nil {
		next = PatchFailed{Findings: findings, Err: errorMessage(svcErr)}
	} else {
		if patches == nil {
			patches = []model.PatchResult{}
		}
		next = Patched{Findings: findings, Patches: patches}
	}
	return c.settle(next, svcErr)
}

// begin checks the guards and moves into the busy state. When busy is nil the
// Patching state is built from the current findings.
func (c *Controller) begin(guard func(State) error, busy State) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.state.Phase().Busy() {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if err := guard(c.state); err != nil {
		c.mu.Unlock()
		return "", err
	}
	if busy == nil {
		busy = Patching{Findings: findingsOf(c.state)}
	}
	c.transitionLocked(busy)
	ref := c.reference
	view, listeners := c.snapshotLocked()
	c.mu.Unlock()

	notify(listeners, view)
	return ref, nil
}

// settle applies the outcome of a service call unless the session was closed
// while the call was in flight.
func (c *Controller) settle(next State, svcErr error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("discarding result for closed session", "phase", next.Phase())
		return ErrClosed
	}
	c.transitionLocked(next)
	if svcErr != nil {
		c.logger.Warn("operation failed", "phase", next.Phase(), "error", svcErr)
	}
	view, listeners := c.snapshotLocked()
	c.mu.Unlock()

	notify(listeners, view)
	return nil
}

func (c *Controller) transitionLocked(next State) {
	c.logger.Debug("transition", "from", c.state.Phase(), "to", next.Phase())
	c.state = next
}

func (c *Controller) snapshotLocked() (View, []func(View)) {
	listeners := make([]func(View), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	return viewOf(c.reference, c.state, c.closed), listeners
}

func notify(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return service.FallbackMessage
}
