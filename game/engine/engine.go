package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
)

// ErrStopped is returned for operations submitted after Run has returned.
var ErrStopped = errors.New("engine stopped")

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Logger    *slog.Logger
	Metrics   *Metrics
	Allocator *session.Allocator

	// Kinds restricts the session kinds that may be created. Empty allows
	// any well-formed kind.
	Kinds []string
	// DefaultKind is used when a join allocates a session without naming
	// a kind.
	DefaultKind string

	// Sessions without members are removed once idle for IdleTTL, checked
	// every SweepInterval. Zero disables the sweep.
	IdleTTL       time.Duration
	SweepInterval time.Duration

	// RelayEvents lists the events fanned out verbatim by Relay.
	RelayEvents []string
}

// Engine coordinates sessions and players. All state is owned by the
// goroutine running Run; exported methods hand work to it and wait for the
// result, so every check-then-act sequence is atomic.
type Engine struct {
	sessions *session.Registry
	players  *player.Registry
	out      Broadcaster
	logger   *slog.Logger
	metrics  *Metrics

	defaultKind   string
	relay         map[string]bool
	idleTTL       time.Duration
	sweepInterval time.Duration

	cmds chan func()
	done chan struct{}
}

// New creates an engine that delivers events through out. Call Run to
// start processing.
func New(out Broadcaster, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaultKind := opts.DefaultKind
	if defaultKind == "" {
		defaultKind = "default"
	}

	relayEvents := opts.RelayEvents
	if len(relayEvents) == 0 {
		relayEvents = DefaultRelayEvents
	}
	relay := make(map[string]bool, len(relayEvents))
	for _, ev := range relayEvents {
		relay[ev] = true
	}

	return &Engine{
		sessions:      session.NewRegistry(opts.Allocator, opts.Kinds),
		players:       player.NewRegistry(),
		out:           out,
		logger:        logger,
		metrics:       opts.Metrics,
		defaultKind:   defaultKind,
		relay:         relay,
		idleTTL:       opts.IdleTTL,
		sweepInterval: opts.SweepInterval,
		cmds:          make(chan func()),
		done:          make(chan struct{}),
	}
}

// Run processes operations one at a time until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	var sweep <-chan time.Time
	if e.idleTTL > 0 && e.sweepInterval > 0 {
		ticker := time.NewTicker(e.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	e.logger.Info("Engine started", "default_kind", e.defaultKind)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine stopped",
				"sessions", e.sessions.Count(),
				"players", e.players.Count())
			return ctx.Err()

		case cmd := <-e.cmds:
			cmd()

		case now := <-sweep:
			e.sweep(now)
		}
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// do runs fn on the event loop and waits for its error.
func (e *Engine) do(ctx context.Context, event string, fn func() error) error {
	result := make(chan error, 1)
	cmd := func() {
		err := e.safely(event, fn)
		e.metrics.observe(event, err)
		e.metrics.counts(e.sessions.Count(), e.players.Count())
		result <- err
	}

	select {
	case e.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// safely confines a panic to the operation that raised it.
func (e *Engine) safely(event string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Operation panicked",
				"event", event,
				"panic", r,
				"stack", string(debug.Stack()))
			err = gameerr.New(gameerr.ErrInternalInconsistency, "internal error during %s", event)
		}
	}()
	return fn()
}

func (e *Engine) sweep(now time.Time) {
	for _, s := range e.sessions.Sweep(now.Add(-e.idleTTL)) {
		e.metrics.destroyed("idle")
		e.logger.Info("Session expired", "session_id", s.ID, "kind", s.Kind)
	}
	e.metrics.counts(e.sessions.Count(), e.players.Count())
}
