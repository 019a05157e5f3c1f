package engine

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialbridge/internal/config"
	"dialbridge/internal/glitch"
	"dialbridge/internal/host"
	"dialbridge/internal/keyframes"
	"dialbridge/internal/logging"
	"dialbridge/internal/mapper"
	"dialbridge/internal/mappings"
	"dialbridge/internal/navigator"
	"dialbridge/internal/statefile"
)

// ErrAlreadyRunning is returned by Start when a run is active.
var ErrAlreadyRunning = errors.New("engine already running")

// Engine drives the bridge. One goroutine owns the tick; Status and Reset
// may be called from the IPC goroutine, so shared state sits behind mu.
type Engine struct {
	cfg     *config.Config
	channel *statefile.Channel
	filter  *glitch.Filter
	mapper  *mapper.Mapper
	nav     *navigator.Navigator
	keys    *keyframes.Controller
	store   *mappings.Store
	logger  *slog.Logger

	heartbeatPath string

	mu             sync.Mutex
	running        bool
	runID          string
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	lastErr        error
	lastTick       time.Time
	ticks          uint64
	needsRefresh   bool
	consoleButtons map[string]bool
}

// Status is a point-in-time snapshot of the engine for IPC reporting.
type Status struct {
	Running   bool               `json:"running"`
	RunID     string             `json:"run_id,omitempty"`
	Ticks     uint64             `json:"ticks"`
	LastTick  time.Time          `json:"last_tick,omitzero"`
	LastError string             `json:"last_error,omitempty"`
	Navigator navigator.Snapshot `json:"navigator"`
	Raw       map[string]string  `json:"raw,omitempty"`
}

// New wires the engine from its collaborators. cap is the host capability
// the mutations run against.
func New(cfg *config.Config, channel *statefile.Channel, cap host.Capability, store *mappings.Store, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		channel:        channel,
		filter:         glitch.NewFilter(logger),
		mapper:         mapper.New(cap, cfg.Engine.ColorScale, logger),
		nav:            navigator.New(cap, store, logger),
		keys:           keyframes.New(cap, cfg.Engine.KeyframeTolerance, logger),
		store:          store,
		logger:         logging.NewComponentLogger(logger, "engine"),
		heartbeatPath:  filepath.Join(cfg.Paths.LogDir, "dialbridged.heartbeat"),
		consoleButtons: make(map[string]bool),
	}
}

// Start launches the poll loop. A second Start while running reports
// ErrAlreadyRunning instead of spawning another driver.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.runID = uuid.NewString()
	e.needsRefresh = true
	e.wg.Add(1)
	runID := e.runID
	e.mu.Unlock()

	e.logger.Info("engine started",
		logging.String("run_id", runID),
		logging.Int("poll_interval_ms", e.cfg.Engine.PollIntervalMillis),
	)
	go e.run(runCtx)
	return nil
}

// Stop invalidates the run handle, cancels the loop, and waits for the
// in-flight tick to finish. Stopping an idle engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.runID = ""
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status snapshots the engine for IPC reporting. includeRaw attaches the
// last raw payload per record kind for debugging.
func (e *Engine) Status(includeRaw bool) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Running:   e.running,
		RunID:     e.runID,
		Ticks:     e.ticks,
		LastTick:  e.lastTick,
		Navigator: e.nav.Snapshot(),
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if includeRaw {
		st.Raw = map[string]string{
			string(statefile.KindPosition): e.channel.Raw(statefile.KindPosition),
			string(statefile.KindButton):   e.channel.Raw(statefile.KindButton),
			string(statefile.KindConsole):  e.channel.Raw(statefile.KindConsole),
		}
	}
	return st
}

// ResetPosition zeroes the accumulated position record and the dial
// baselines so the next tick starts clean.
func (e *Engine) ResetPosition() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := statefile.ResetPosition(e.channel); err != nil {
		return err
	}
	e.filter.Reset(channelBig)
	e.filter.Reset(channelSmall)
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.Engine.PollIntervalMillis) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}
