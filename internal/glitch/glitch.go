// Package glitch converts accumulated channel positions into per-tick deltas
// and suppresses implausible jumps caused by device-host restarts or torn
// reads that slipped past the payload guard.
package glitch

import (
	"log/slog"
	"math"
	"sync"

	"dialbridge/internal/logging"
)

// Filter tracks a baseline per channel and yields the delta from the
// previous accepted sample. A jump beyond the channel's threshold is
// rejected: the delta is forced to zero and the baseline re-anchors to the
// new sample, so a counter reset costs one silent tick instead of a
// runaway parameter change.
type Filter struct {
	logger *slog.Logger

	mu        sync.Mutex
	baselines map[string]float64
}

// NewFilter returns a filter with no baselines; the first sample on every
// channel establishes one and produces a zero delta.
func NewFilter(logger *slog.Logger) *Filter {
	return &Filter{
		logger:    logging.NewComponentLogger(logger, "glitch-filter"),
		baselines: make(map[string]float64),
	}
}

// Delta returns the change from the last accepted sample on channel.
// accepted is false when the jump exceeded maxDelta; the baseline still
// moves to value so the next sample is measured against it.
func (f *Filter) Delta(channel string, value, maxDelta float64) (delta float64, accepted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, seen := f.baselines[channel]
	f.baselines[channel] = value
	if !seen {
		return 0, true
	}

	delta = value - prev
	if maxDelta > 0 && math.Abs(delta) > maxDelta {
		f.logger.Warn("rejected implausible jump",
			logging.String(logging.FieldChannel, channel),
			logging.Float64("delta", delta),
			logging.Float64("max_delta", maxDelta),
		)
		return 0, false
	}
	return delta, true
}

// Reset forgets the baseline for channel; the next sample re-anchors with a
// zero delta. An empty channel clears every baseline.
func (f *Filter) Reset(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channel == "" {
		f.baselines = make(map[string]float64)
		return
	}
	delete(f.baselines, channel)
}

// Baseline reports the current baseline for channel, for status
// introspection.
func (f *Filter) Baseline(channel string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.baselines[channel]
	return v, ok
}
