// Package keyframes drives playhead navigation and keyframe toggling on the
// active target's timeline.
package keyframes

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
)

// Controller moves the playhead between a target's keyframes and toggles a
// keyframe at the playhead. Prev/Next stop at the first and last keyframe;
// they never wrap and never move the playhead against the pressed direction.
type Controller struct {
	host      host.Capability
	logger    *slog.Logger
	tolerance float64
}

// New returns a controller over cap. tolerance is the time window within
// which an existing keyframe counts as "at" the playhead.
func New(cap host.Capability, tolerance float64, logger *slog.Logger) *Controller {
	return &Controller{
		host:      cap,
		logger:    logging.NewComponentLogger(logger, "keyframes"),
		tolerance: tolerance,
	}
}

// Prev moves the playhead to the nearest keyframe strictly before it. With no
// keyframe earlier than the playhead the press is a no-op: the playhead never
// moves forward on a Prev. With no keyframes at all it reports
// faults.ErrUnsupportedValue and leaves the playhead alone.
func (c *Controller) Prev(ctx context.Context, t host.Target) error {
	keys, playhead, err := c.timelineState(ctx, t)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return faults.Wrap(faults.ErrUnsupportedValue, "keyframes", "prev", "target has no keyframes", nil)
	}

	idx := nearest(keys, playhead)
	if keys[idx].Time >= playhead {
		if idx == 0 {
			// No keyframe before the playhead.
			return nil
		}
		idx--
	}
	return c.jump(ctx, keys[idx].Time)
}

// Next mirrors Prev toward increasing time: a no-op when no keyframe sits
// strictly after the playhead.
func (c *Controller) Next(ctx context.Context, t host.Target) error {
	keys, playhead, err := c.timelineState(ctx, t)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return faults.Wrap(faults.ErrUnsupportedValue, "keyframes", "next", "target has no keyframes", nil)
	}

	idx := nearest(keys, playhead)
	if keys[idx].Time <= playhead {
		if idx == len(keys)-1 {
			return nil
		}
		idx++
	}
	return c.jump(ctx, keys[idx].Time)
}

// ToggleAtPlayhead removes the keyframe within tolerance of the playhead, or
// inserts one carrying the target's current value when none is there. Two
// toggles with nothing in between restore the original state.
func (c *Controller) ToggleAtPlayhead(ctx context.Context, t host.Target) error {
	keys, playhead, err := c.timelineState(ctx, t)
	if err != nil {
		return err
	}

	for _, k := range keys {
		if math.Abs(k.Time-playhead) <= c.tolerance {
			if err := c.host.RemoveKeyframe(ctx, t, k.Time); err != nil {
				return faults.Wrap(faults.ErrHostAPI, "keyframes", "remove keyframe", t.PropertyID, err)
			}
			c.logger.Debug("removed keyframe",
				logging.String(logging.FieldTarget, t.PropertyID),
				logging.Float64("time", k.Time),
			)
			return nil
		}
	}

	value, err := c.host.ValueAtTime(ctx, t, playhead)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "keyframes", "read value", t.PropertyID, err)
	}
	if err := c.host.InsertKeyframe(ctx, t, host.Keyframe{Time: playhead, Value: value}); err != nil {
		return faults.Wrap(faults.ErrHostAPI, "keyframes", "insert keyframe", t.PropertyID, err)
	}
	c.logger.Debug("inserted keyframe",
		logging.String(logging.FieldTarget, t.PropertyID),
		logging.Float64("time", playhead),
	)
	return nil
}

func (c *Controller) timelineState(ctx context.Context, t host.Target) ([]host.Keyframe, float64, error) {
	keys, err := c.host.Keyframes(ctx, t)
	if err != nil {
		return nil, 0, faults.Wrap(faults.ErrHostAPI, "keyframes", "enumerate keyframes", t.PropertyID, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	tl, err := c.host.Timeline(ctx)
	if err != nil {
		return nil, 0, faults.Wrap(faults.ErrHostAPI, "keyframes", "read timeline", "", err)
	}
	return keys, tl.Time, nil
}

func (c *Controller) jump(ctx context.Context, at float64) error {
	if err := c.host.SetPlayhead(ctx, at); err != nil {
		return faults.Wrap(faults.ErrHostAPI, "keyframes", "set playhead", "", err)
	}
	return nil
}

// nearest returns the index of the keyframe closest in time to at. keys must
// be sorted and non-empty.
func nearest(keys []host.Keyframe, at float64) int {
	best := 0
	bestDist := math.Abs(keys[0].Time - at)
	for i := 1; i < len(keys); i++ {
		if d := math.Abs(keys[i].Time - at); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
