package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
)

// Glitch filter channel names for the two dials.
const (
	channelBig   = "dial.big"
	channelSmall = "dial.small"
)

// tick runs one scheduler iteration: heartbeat, button pass, dial pass, and
// the optional console pass. Step failures are contained: recorded, logged,
// and the remaining steps still run.
func (e *Engine) tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ticks++
	e.lastTick = time.Now()

	e.containStep("heartbeat", e.writeHeartbeat())

	if e.needsRefresh {
		if err := e.nav.Refresh(ctx); err != nil {
			e.containStep("refresh", err)
		} else {
			e.needsRefresh = false
		}
	}

	e.containStep("buttons", e.buttonPass(ctx))
	e.containStep("dials", e.dialPass(ctx))
	if e.cfg.Engine.ConsoleEnabled {
		e.containStep("console", e.consolePass(ctx))
	}
}

// containStep records a step failure without stopping the scheduler. Host
// API failures additionally schedule a selection re-enumeration.
func (e *Engine) containStep(step string, err error) {
	if err == nil {
		return
	}
	e.lastErr = err
	if faults.NeedsReenumeration(err) {
		e.needsRefresh = true
	}
	if faults.Reportable(err) {
		e.logger.Error("tick step failed",
			logging.String("step", step),
			logging.Error(err),
		)
		return
	}
	e.logger.Debug("tick step degraded",
		logging.String("step", step),
		logging.Error(err),
	)
}

// writeHeartbeat refreshes the liveness marker.
func (e *Engine) writeHeartbeat() error {
	if err := os.MkdirAll(filepath.Dir(e.heartbeatPath), 0o755); err != nil {
		return faults.Wrap(faults.ErrTransientRead, "engine", "ensure heartbeat dir", "", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano) + "\n"
	if err := os.WriteFile(e.heartbeatPath, []byte(stamp), 0o644); err != nil {
		return faults.Wrap(faults.ErrTransientRead, "engine", "write heartbeat", e.heartbeatPath, err)
	}
	return nil
}

// buttonPass dispatches a fresh pressed button event. Stale or released
// events are ignored.
func (e *Engine) buttonPass(ctx context.Context) error {
	rec, fresh, err := e.channel.Button(ctx)
	if err != nil {
		return err
	}
	if !fresh || !rec.Pressed {
		return nil
	}

	buttons := e.cfg.Buttons
	switch rec.Button {
	case buttons.NextEntity:
		return e.nav.NextEntity(ctx)
	case buttons.PrevEntity:
		return e.nav.PrevEntity(ctx)
	case buttons.NextContainer:
		return e.nav.NextContainer(ctx)
	case buttons.PrevContainer:
		return e.nav.PrevContainer(ctx)
	case buttons.KeyframePrev:
		return e.keyframeOp(ctx, e.keys.Prev)
	case buttons.KeyframeNext:
		return e.keyframeOp(ctx, e.keys.Next)
	case buttons.KeyframeJump:
		return e.keyframeOp(ctx, e.keys.ToggleAtPlayhead)
	}

	if n, err := strconv.Atoi(rec.Button); err == nil {
		return e.nav.SelectPropertyByButton(ctx, n)
	}
	e.logger.Debug("unbound button ignored", logging.String(logging.FieldButton, rec.Button))
	return nil
}

func (e *Engine) keyframeOp(ctx context.Context, op func(context.Context, host.Target) error) error {
	target, ok := e.nav.ActiveTarget()
	if !ok {
		return faults.Wrap(faults.ErrUnsupportedValue, "engine", "keyframe op", "no active target", nil)
	}
	return op(ctx, target)
}

// dialPass turns fresh dial movement into a parameter delta (big dial) and a
// playhead scrub (small dial).
func (e *Engine) dialPass(ctx context.Context) error {
	rec, fresh, err := e.channel.Position(ctx)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	if delta, ok := e.filter.Delta(channelBig, rec.X, e.cfg.Engine.MaxDeltaBig); ok && delta != 0 {
		if target, has := e.nav.ActiveTarget(); has {
			if err := e.mapper.Apply(ctx, target, delta, e.cfg.Engine.BigSensitivity); err != nil {
				return err
			}
		}
	}
	if delta, ok := e.filter.Delta(channelSmall, rec.Y, e.cfg.Engine.MaxDeltaSmall); ok && delta != 0 {
		if err := e.mapper.Scrub(ctx, delta, e.cfg.Engine.SmallSensitivity); err != nil {
			return err
		}
	}
	return nil
}

// consolePass routes multi-channel controller movement through the active
// identity's mapping and treats focus button edges as property selection.
func (e *Engine) consolePass(ctx context.Context) error {
	rec, fresh, err := e.channel.Console(ctx)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	// Deterministic channel order so a multi-channel sweep applies stably.
	names := make([]string, 0, len(rec.Channels))
	for name := range rec.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		delta, ok := e.filter.Delta("console."+name, rec.Channels[name], e.cfg.Engine.MaxDeltaChannel)
		if !ok || delta == 0 {
			continue
		}
		index, ok := channelIndex(name)
		if !ok {
			continue
		}
		target, ok := e.nav.ResolveMapped(index)
		if !ok {
			continue
		}
		if err := e.mapper.Apply(ctx, target, delta, e.cfg.Engine.BigSensitivity); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for name, pressed := range rec.Buttons {
		was := e.consoleButtons[name]
		e.consoleButtons[name] = pressed
		if !pressed || was || !strings.HasPrefix(name, "focus_") {
			continue
		}
		if index, ok := channelIndex(name); ok {
			if err := e.nav.SelectPropertyByButton(ctx, index); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// channelIndex extracts the first decimal run from a channel name, e.g.
// "knob_3a" -> 3, "fader_12" -> 12.
func channelIndex(name string) (int, bool) {
	start := -1
	for i, r := range name {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(name[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(name[start:])
		return n, err == nil
	}
	return 0, false
}
