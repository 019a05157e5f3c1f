package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateButtons(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	switch c.Paths.Source {
	case SourcePoll, SourceWatch:
	default:
		return fmt.Errorf("paths.source must be poll or watch, got %q", c.Paths.Source)
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.PollIntervalMillis <= 0 {
		return errors.New("engine.poll_interval_ms must be positive")
	}
	if c.Engine.PollIntervalMillis > 1000 {
		return errors.New("engine.poll_interval_ms above 1000 makes dial input unusably coarse")
	}
	if c.Engine.BigSensitivity <= 0 || c.Engine.SmallSensitivity <= 0 {
		return errors.New("engine sensitivities must be positive")
	}
	if c.Engine.ColorScale <= 0 || c.Engine.ColorScale > 1 {
		return errors.New("engine.color_scale must be in (0, 1]")
	}
	if c.Engine.KeyframeTolerance < 0 {
		return errors.New("engine.keyframe_tolerance must not be negative")
	}
	for name, v := range map[string]float64{
		"engine.max_delta_big":     c.Engine.MaxDeltaBig,
		"engine.max_delta_small":   c.Engine.MaxDeltaSmall,
		"engine.max_delta_channel": c.Engine.MaxDeltaChannel,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateButtons() error {
	roles := map[string]string{
		c.Buttons.NextEntity:    "buttons.next_entity",
		c.Buttons.PrevEntity:    "buttons.prev_entity",
		c.Buttons.NextContainer: "buttons.next_container",
		c.Buttons.PrevContainer: "buttons.prev_container",
		c.Buttons.KeyframePrev:  "buttons.keyframe_prev",
		c.Buttons.KeyframeJump:  "buttons.keyframe_toggle",
		c.Buttons.KeyframeNext:  "buttons.keyframe_next",
	}
	// map collapses duplicate button ids; one button cannot hold two roles.
	if len(roles) != 7 {
		return errors.New("buttons: the same button is assigned to more than one role")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
