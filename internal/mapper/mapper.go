// Package mapper turns glitch-filtered dial deltas into parameter mutations
// on the host application.
package mapper

import (
	"context"
	"log/slog"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
)

// Mapper applies deltas to host parameters. Writes respect existing
// animation: a property that already carries keyframes is mutated at the
// playhead instead of having its whole timeline overwritten.
type Mapper struct {
	host       host.Capability
	logger     *slog.Logger
	colorScale float64
}

// New returns a mapper driving cap. colorScale is the per-step factor for
// color-like vector components, typically 0.01.
func New(cap host.Capability, colorScale float64, logger *slog.Logger) *Mapper {
	return &Mapper{
		host:       cap,
		logger:     logging.NewComponentLogger(logger, "mapper"),
		colorScale: colorScale,
	}
}

// Apply adds delta*sensitivity to the target's current value. Scalars move
// directly; vectors move only their first component, with color-like
// vectors taking the scaled delta clamped to [0,1]. Unsupported value
// shapes produce faults.ErrUnsupportedValue and no mutation.
func (m *Mapper) Apply(ctx context.Context, t host.Target, delta, sensitivity float64) error {
	keyframed, playhead, err := m.keyframeContext(ctx, t)
	if err != nil {
		return err
	}

	var current host.Value
	if keyframed {
		current, err = m.host.ValueAtTime(ctx, t, playhead)
	} else {
		current, err = m.host.Value(ctx, t)
	}
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "mapper", "read value", t.PropertyID, err)
	}

	next, err := mutate(current, delta, sensitivity, m.colorScale)
	if err != nil {
		return err
	}

	if keyframed {
		err = m.host.SetValueAtTime(ctx, t, playhead, next)
	} else {
		err = m.host.SetValue(ctx, t, next)
	}
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "mapper", "write value", t.PropertyID, err)
	}

	m.logger.Debug("applied delta",
		logging.String(logging.FieldTarget, t.PropertyID),
		logging.Float64("delta", delta),
		logging.Bool("keyframed", keyframed),
	)
	return nil
}

// Scrub moves the playhead by delta*sensitivity frames, clamped to
// [0, duration-frameLength].
func (m *Mapper) Scrub(ctx context.Context, delta, sensitivity float64) error {
	tl, err := m.host.Timeline(ctx)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "mapper", "read timeline", "", err)
	}
	next := clamp(tl.Time+delta*sensitivity*tl.FrameLength, 0, tl.Duration-tl.FrameLength)
	if err := m.host.SetPlayhead(ctx, next); err != nil {
		return faults.Wrap(faults.ErrHostAPI, "mapper", "set playhead", "", err)
	}
	return nil
}

// keyframeContext reports whether t already carries keyframes and where the
// playhead currently sits.
func (m *Mapper) keyframeContext(ctx context.Context, t host.Target) (bool, float64, error) {
	keys, err := m.host.Keyframes(ctx, t)
	if err != nil {
		return false, 0, faults.Wrap(faults.ErrHostAPI, "mapper", "enumerate keyframes", t.PropertyID, err)
	}
	if len(keys) == 0 {
		return false, 0, nil
	}
	tl, err := m.host.Timeline(ctx)
	if err != nil {
		return false, 0, faults.Wrap(faults.ErrHostAPI, "mapper", "read timeline", "", err)
	}
	return true, tl.Time, nil
}

func mutate(current host.Value, delta, sensitivity, colorScale float64) (host.Value, error) {
	switch current.Kind {
	case host.KindScalar:
		next := current.Clone()
		next.Scalar += delta * sensitivity
		return next, nil
	case host.KindVector:
		if len(current.Vector) == 0 {
			return host.Value{}, faults.Wrap(faults.ErrUnsupportedValue, "mapper", "mutate", "empty vector", nil)
		}
		next := current.Clone()
		if current.ColorLike {
			next.Vector[0] = clamp(next.Vector[0]+delta*sensitivity*colorScale, 0, 1)
		} else {
			next.Vector[0] += delta * sensitivity
		}
		return next, nil
	default:
		return host.Value{}, faults.Wrap(faults.ErrUnsupportedValue, "mapper", "mutate", "value shape cannot take a delta", nil)
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
