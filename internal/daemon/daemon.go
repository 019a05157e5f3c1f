// Package daemon coordinates the bridge services and enforces
// single-instance execution: the engine poll loop, the mapping store, the
// state channel, and the optional device hotplug monitor.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"dialbridge/internal/config"
	"dialbridge/internal/devwatch"
	"dialbridge/internal/engine"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
	"dialbridge/internal/statefile"
)

// Daemon owns the bridge runtime. One instance per machine: a flock on the
// log directory guards against a second engine fighting over the same state
// files.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	store   *mappings.Store
	channel *statefile.Channel
	monitor *devwatch.Monitor
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Engine         engine.Status
	LockFilePath   string
	MappingDBPath  string
	DeviceMonitor  bool
	DeviceAttached bool
}

// New constructs a daemon around the injected host capability.
func New(cfg *config.Config, cap host.Capability, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || cap == nil || logger == nil {
		return nil, errors.New("daemon requires config, host capability, and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := mappings.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}

	source, err := newStateSource(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open state source: %w", err)
	}
	channel := statefile.NewChannel(source, logger)
	eng := engine.New(cfg, channel, cap, store, logger)
	monitor := devwatch.New(cfg, logger, func() {
		// Re-attach resets the device host's counters; drop the baselines.
		if err := eng.ResetPosition(); err != nil {
			logging.NewComponentLogger(logger, "daemon").Warn("position reset after re-attach failed", logging.Error(err))
		}
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "dialbridged.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		engine:   eng,
		store:    store,
		channel:  channel,
		monitor:  monitor,
		logPath:  filepath.Join(cfg.Paths.LogDir, "dialbridged.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// newStateSource picks the record transport configured by paths.source.
func newStateSource(cfg *config.Config, logger *slog.Logger) (statefile.Source, error) {
	if cfg.Paths.Source == config.SourceWatch {
		return statefile.NewWatchSource(
			cfg.Paths.StateDir,
			cfg.Paths.PositionFile,
			cfg.Paths.ButtonFile,
			cfg.Paths.ConsoleFile,
			logger,
		)
	}
	return statefile.NewFileSource(cfg), nil
}

// Start acquires the daemon lock and launches the engine and device monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dialbridge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.engine.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start engine: %w", err)
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("device monitor failed to start", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("dialbridge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops the engine and device monitor and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Stop()
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("dialbridge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.channel != nil {
		_ = d.channel.Source().Close()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status. includeRaw attaches the last
// raw payload per record kind.
func (d *Daemon) Status(includeRaw bool) Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Engine:         d.engine.Status(includeRaw),
		LockFilePath:   d.lockPath,
		MappingDBPath:  d.store.Path(),
		DeviceMonitor:  d.monitor.Running(),
		DeviceAttached: d.monitor.Attached(),
	}
}

// ResetPosition zeroes the accumulated position record and the dial
// baselines.
func (d *Daemon) ResetPosition() error {
	return d.engine.ResetPosition()
}

// MappingIdentities lists identities with persisted assignments.
func (d *Daemon) MappingIdentities(ctx context.Context) ([]string, error) {
	return d.store.Identities(ctx)
}

// MappingGet returns the mapping for identity.
func (d *Daemon) MappingGet(ctx context.Context, identity string) (mappings.Mapping, error) {
	return d.store.Get(ctx, identity)
}

// MappingAssign binds a numbered button to a property for identity.
func (d *Daemon) MappingAssign(ctx context.Context, identity string, button int, a mappings.Assignment) error {
	return d.store.Assign(ctx, identity, button, a)
}

// MappingUnassign removes a button binding for identity.
func (d *Daemon) MappingUnassign(ctx context.Context, identity string, button int) error {
	return d.store.Unassign(ctx, identity, button)
}

// MappingExport writes the mapping for identity to an arbitrary path.
func (d *Daemon) MappingExport(ctx context.Context, identity, path string) error {
	return d.store.Export(ctx, identity, path)
}

// MappingImport reads a mapping record from path and persists it.
func (d *Daemon) MappingImport(ctx context.Context, path string) (mappings.Mapping, error) {
	return d.store.Import(ctx, path)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}
