package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

const tracerName = "github.com/StricklySoft/stricklysoft-gateway/pkg/lifecycle"

// Hook runs during Start or Stop. It receives the caller's context.
type Hook func(ctx context.Context) error

// StateChangeHandler observes transitions. Handlers run under the state
// lock and must not call back into the service.
type StateChangeHandler func(old, new State)

// Info is a point-in-time snapshot of a service.
type Info struct {
	Name      string        `json:"name"`
	State     State         `json:"state"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
}

// Service sequences start and stop hooks for one process. It is safe for
// concurrent use. Configure it with the With and On methods before
// calling Start.
type Service struct {
	name   string
	tracer trace.Tracer
	logger *slog.Logger

	onStart  []Hook
	onStop   []Hook
	handlers []StateChangeHandler

	mu        sync.RWMutex
	state     State
	startedAt time.Time

	failed chan error
}

// NewService returns a service in [StateUnknown].
func NewService(name string) *Service {
	return &Service{
		name:   name,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
		state:  StateUnknown,
		failed: make(chan error, 1),
	}
}

// WithLogger sets the logger for transitions and hook failures. A nil
// logger is ignored.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// OnStart appends a hook run by Start, in registration order.
func (s *Service) OnStart(h Hook) *Service {
	s.onStart = append(s.onStart, h)
	return s
}

// OnStop appends a hook run by Stop. Stop hooks run in reverse
// registration order so resources close after whatever depends on them.
func (s *Service) OnStop(h Hook) *Service {
	s.onStop = append(s.onStop, h)
	return s
}

// OnStateChange registers h to be called after every transition. A
// panicking handler is logged and does not block the transition.
func (s *Service) OnStateChange(h StateChangeHandler) *Service {
	s.handlers = append(s.handlers, h)
	return s
}

// Name returns the name given to [NewService].
func (s *Service) Name() string { return s.name }

// State returns the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Info returns a snapshot of the name, state and uptime.
func (s *Service) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{Name: s.name, State: s.state}
	if s.state == StateRunning {
		t := s.startedAt
		info.StartedAt = &t
		info.Uptime = time.Since(t)
	}
	return info
}

// Health returns UNAVAIL_001 unless the service is running. It has the
// signature of a health check function.
func (s *Service) Health(context.Context) error {
	if state := s.State(); state != StateRunning {
		return sserr.Newf(sserr.CodeUnavailable,
			"lifecycle: %s is %s", s.name, state)
	}
	return nil
}

// SetState validates and applies a transition. CONF_001 on an illegal
// one.
func (s *Service) SetState(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if !ValidTransition(prev, next) {
		return sserr.Newf(sserr.CodeConflict,
			"lifecycle: invalid state transition from %q to %q", prev, next)
	}
	s.state = next
	if next == StateRunning {
		s.startedAt = time.Now().UTC()
	}

	for _, h := range s.handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("lifecycle: state change handler panicked",
						"panic", r, "service", s.name,
						"old_state", string(prev), "new_state", string(next))
				}
			}()
			h(prev, next)
		}()
	}
	return nil
}

// Start runs the start hooks in order and moves to Running. The first
// failing hook moves the service to Failed; hooks after it do not run.
func (s *Service) Start(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Start")
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return sserr.Wrap(err, sserr.CodeTimeout, "lifecycle: start canceled before execution")
	}
	if err := s.SetState(StateStarting); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "lifecycle: starting", "service", s.name)

	for i, h := range s.onStart {
		if err := h(ctx); err != nil {
			s.logger.ErrorContext(ctx, "lifecycle: start hook failed",
				"service", s.name, "hook", i, "error", err)
			_ = s.SetState(StateFailed)
			return sserr.Wrap(err, sserr.CodeInternal, "lifecycle: start hook failed")
		}
	}

	if err := s.SetState(StateRunning); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "lifecycle: started", "service", s.name)
	return nil
}

// Stop drains the service: it moves to Draining, runs every stop hook in
// reverse order even when some fail, and ends in Stopped, or Failed with
// the joined hook errors. Stop on a terminal or never-started service is
// a no-op.
func (s *Service) Stop(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Stop")
	defer func() { finishSpan(span, err) }()

	if state := s.State(); state.IsTerminal() || state == StateUnknown {
		return nil
	}
	if err := s.SetState(StateDraining); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "lifecycle: draining", "service", s.name)

	var errs []error
	for i := len(s.onStop) - 1; i >= 0; i-- {
		if err := s.onStop[i](ctx); err != nil {
			s.logger.ErrorContext(ctx, "lifecycle: stop hook failed",
				"service", s.name, "hook", i, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		_ = s.SetState(StateFailed)
		return sserr.Wrap(errors.Join(errs...), sserr.CodeInternal, "lifecycle: stop hooks failed")
	}

	if err := s.SetState(StateStopped); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "lifecycle: stopped", "service", s.name)
	return nil
}

// Fail reports a fatal runtime error, such as a listener exiting, to
// [Service.Run]. Only the first report is kept.
func (s *Service) Fail(err error) {
	if err == nil {
		return
	}
	select {
	case s.failed <- err:
	default:
	}
}

// Run starts the service, blocks until ctx is done or [Service.Fail] is
// called, then stops it within stopTimeout. The stop context is detached
// from ctx so hooks still get their full budget after a signal.
func (s *Service) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	var cause error
	select {
	case <-ctx.Done():
		s.logger.Info("lifecycle: shutdown requested", "service", s.name)
	case cause = <-s.failed:
		s.logger.Error("lifecycle: service failed", "service", s.name, "error", cause)
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return errors.Join(cause, s.Stop(stopCtx))
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("service.name", s.name)))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
