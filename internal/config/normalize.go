package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeHost(); err != nil {
		return err
	}
	c.normalizeButtons()
	c.normalizeDevices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if len(c.Paths.FallbackDirs) == 0 {
		c.Paths.FallbackDirs = defaultFallbackDirs()
	}
	expanded := make([]string, 0, len(c.Paths.FallbackDirs))
	for _, dir := range c.Paths.FallbackDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("paths.fallback_dirs: %w", err)
		}
		expanded = append(expanded, abs)
	}
	c.Paths.FallbackDirs = expanded

	if strings.TrimSpace(c.Paths.MappingsDir) == "" {
		c.Paths.MappingsDir = defaultMappingsDir
	}
	if c.Paths.MappingsDir, err = expandPath(c.Paths.MappingsDir); err != nil {
		return fmt.Errorf("paths.mappings_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = filepath.Join(c.Paths.LogDir, "dialbridged.sock")
	} else if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}

	c.Paths.PositionFile = strings.TrimSpace(c.Paths.PositionFile)
	if c.Paths.PositionFile == "" {
		c.Paths.PositionFile = defaultPositionFile
	}
	c.Paths.ButtonFile = strings.TrimSpace(c.Paths.ButtonFile)
	if c.Paths.ButtonFile == "" {
		c.Paths.ButtonFile = defaultButtonFile
	}
	c.Paths.ConsoleFile = strings.TrimSpace(c.Paths.ConsoleFile)
	if c.Paths.ConsoleFile == "" {
		c.Paths.ConsoleFile = defaultConsoleFile
	}
	c.Paths.Source = strings.ToLower(strings.TrimSpace(c.Paths.Source))
	if c.Paths.Source == "" {
		c.Paths.Source = SourcePoll
	}
	return nil
}

func (c *Config) normalizeHost() error {
	var err error
	if strings.TrimSpace(c.Host.Socket) == "" {
		c.Host.Socket = defaultHostSocket
	}
	if c.Host.Socket, err = expandPath(c.Host.Socket); err != nil {
		return fmt.Errorf("host.socket: %w", err)
	}
	if c.Host.ConnectTimeout <= 0 {
		c.Host.ConnectTimeout = defaultHostConnectTimeout
	}
	return nil
}

func (c *Config) normalizeButtons() {
	trim := func(v *string, fallback string) {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			*v = fallback
		}
	}
	trim(&c.Buttons.NextEntity, defaultButtonNextEntity)
	trim(&c.Buttons.PrevEntity, defaultButtonPrevEntity)
	trim(&c.Buttons.NextContainer, defaultButtonNextContainer)
	trim(&c.Buttons.PrevContainer, defaultButtonPrevContainer)
	trim(&c.Buttons.KeyframePrev, defaultButtonKeyframePrev)
	trim(&c.Buttons.KeyframeJump, defaultButtonKeyframeJump)
	trim(&c.Buttons.KeyframeNext, defaultButtonKeyframeNext)
}

func (c *Config) normalizeDevices() {
	c.Devices.VendorID = strings.ToLower(strings.TrimSpace(c.Devices.VendorID))
	if c.Devices.VendorID == "" {
		c.Devices.VendorID = defaultLogiVendorID
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
