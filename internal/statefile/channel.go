package statefile

import (
	"context"
	"log/slog"
	"sync"

	"dialbridge/internal/logging"
)

// Channel validates and caches state records from a Source. Reads that fail
// every guard fall back to the last valid value for that kind; a record
// whose marker matches the previous one is returned from cache unprocessed.
//
// The engine is the only mutator, but status introspection runs on the IPC
// goroutine, so cache access is guarded by a mutex.
type Channel struct {
	source Source
	logger *slog.Logger

	mu       sync.Mutex
	position *PositionRecord
	button   *ButtonRecord
	console  *ConsoleRecord
	markers  map[Kind]float64
	raw      map[Kind]string
}

// NewChannel wraps source with validation, dedupe, and last-valid caching.
func NewChannel(source Source, logger *slog.Logger) *Channel {
	return &Channel{
		source:  source,
		logger:  logging.NewComponentLogger(logger, "state-channel"),
		markers: make(map[Kind]float64),
		raw:     make(map[Kind]string),
	}
}

// Position reads the dial position record. fresh is false when the value
// came from cache (stale marker or failed read).
func (c *Channel) Position(ctx context.Context) (PositionRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.load(ctx, KindPosition)
	if err != nil {
		if c.position != nil {
			return *c.position, false, nil
		}
		return PositionRecord{}, false, err
	}
	rec, err := parsePosition(data)
	if err != nil {
		if c.position != nil {
			return *c.position, false, nil
		}
		return PositionRecord{}, false, err
	}
	if c.markerStale(KindPosition, rec.TS) {
		return *c.position, false, nil
	}
	c.position = &rec
	return rec, true, nil
}

// Button reads the discrete button event record.
func (c *Channel) Button(ctx context.Context) (ButtonRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.load(ctx, KindButton)
	if err != nil {
		if c.button != nil {
			return *c.button, false, nil
		}
		return ButtonRecord{}, false, err
	}
	rec, err := parseButton(data)
	if err != nil {
		if c.button != nil {
			return *c.button, false, nil
		}
		return ButtonRecord{}, false, err
	}
	if c.markerStale(KindButton, rec.Timestamp) {
		return *c.button, false, nil
	}
	c.button = &rec
	return rec, true, nil
}

// Console reads the multi-channel controller record.
func (c *Channel) Console(ctx context.Context) (ConsoleRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.load(ctx, KindConsole)
	if err != nil {
		if c.console != nil {
			return *c.console, false, nil
		}
		return ConsoleRecord{}, false, err
	}
	rec, err := parseConsole(data)
	if err != nil {
		if c.console != nil {
			return *c.console, false, nil
		}
		return ConsoleRecord{}, false, err
	}
	if c.markerStale(KindConsole, rec.LastUpdate) {
		return *c.console, false, nil
	}
	c.console = &rec
	return rec, true, nil
}

// Raw returns the last raw payload observed for kind, valid or not. Debug
// introspection only; never feeds the mutation path.
func (c *Channel) Raw(kind Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw[kind]
}

// Reset forgets the cached record and marker for kind so the next read is
// processed from scratch. Used after an engine-owned zero write.
func (c *Channel) Reset(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markers, kind)
	switch kind {
	case KindPosition:
		c.position = nil
	case KindButton:
		c.button = nil
	case KindConsole:
		c.console = nil
	}
}

// Source exposes the underlying transport for engine-owned writes.
func (c *Channel) Source() Source {
	return c.source
}

// load fetches and guards the raw payload, retaining it for introspection.
// Callers hold c.mu.
func (c *Channel) load(ctx context.Context, kind Kind) ([]byte, error) {
	data, err := c.source.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	c.raw[kind] = string(data)
	guarded, err := guard(data)
	if err != nil {
		c.logger.Debug("payload rejected by guard",
			logging.String(logging.FieldRecordKind, string(kind)),
			logging.Error(err),
		)
		return nil, err
	}
	return guarded, nil
}

// markerStale reports whether marker equals the previously seen marker for
// kind. A zero marker means "no marker" and is never deduplicated; the device
// host never stamps a legitimate event with marker 0. Only an equal marker is
// stale: a lower one is accepted as fresh, because a device-host restart
// resets its timestamps and the channel must pick events back up without a
// bridge restart. Callers hold c.mu.
func (c *Channel) markerStale(kind Kind, marker float64) bool {
	if marker == 0 {
		return false
	}
	if prev, ok := c.markers[kind]; ok && prev == marker {
		return true
	}
	c.markers[kind] = marker
	return false
}
