package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// State record transports selectable via paths.source.
const (
	SourcePoll  = "poll"
	SourceWatch = "watch"
)

// Paths contains directory and socket configuration.
type Paths struct {
	StateDir     string   `toml:"state_dir"`
	FallbackDirs []string `toml:"fallback_dirs"`
	MappingsDir  string   `toml:"mappings_dir"`
	LogDir       string   `toml:"log_dir"`
	Socket       string   `toml:"socket"`

	PositionFile string `toml:"position_file"`
	ButtonFile   string `toml:"button_file"`
	ConsoleFile  string `toml:"console_file"`

	// Source picks the record transport: "poll" rereads the files each
	// tick (with fallback locations), "watch" serves the last payload an
	// fsnotify watcher observed in state_dir.
	Source string `toml:"source"`
}

// Engine contains poll timing, sensitivities, and glitch thresholds.
type Engine struct {
	PollIntervalMillis int     `toml:"poll_interval_ms"`
	BigSensitivity     float64 `toml:"big_sensitivity"`
	SmallSensitivity   float64 `toml:"small_sensitivity"`
	ColorScale         float64 `toml:"color_scale"`
	KeyframeTolerance  float64 `toml:"keyframe_tolerance"`
	MaxDeltaBig        float64 `toml:"max_delta_big"`
	MaxDeltaSmall      float64 `toml:"max_delta_small"`
	MaxDeltaChannel    float64 `toml:"max_delta_channel"`
	ConsoleEnabled     bool    `toml:"console_enabled"`
}

// Buttons assigns button identifiers to engine roles. Identifiers match the
// `button` field of the device host's button record.
type Buttons struct {
	NextEntity    string `toml:"next_entity"`
	PrevEntity    string `toml:"prev_entity"`
	NextContainer string `toml:"next_container"`
	PrevContainer string `toml:"prev_container"`
	KeyframePrev  string `toml:"keyframe_prev"`
	KeyframeNext  string `toml:"keyframe_next"`
	KeyframeJump  string `toml:"keyframe_toggle"`
}

// Host contains connection settings for the in-application capability adapter.
type Host struct {
	Socket         string `toml:"socket"`
	ConnectTimeout int    `toml:"connect_timeout"`
}

// Devices contains controller hotplug monitoring settings.
type Devices struct {
	MonitorHotplug bool   `toml:"monitor_hotplug"`
	VendorID       string `toml:"vendor_id"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dialbridge.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Engine  Engine  `toml:"engine"`
	Buttons Buttons `toml:"buttons"`
	Host    Host    `toml:"host"`
	Devices Devices `toml:"devices"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dialbridge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dialbridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// state directory is created best-effort: the device host may own it and
// create it first.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MappingsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) != "" {
		_ = os.MkdirAll(c.Paths.StateDir, 0o755)
	}
	return nil
}

// StatePaths returns the ordered locations searched for the named state
// record: the primary state dir followed by each fallback dir.
func (c *Config) StatePaths(fileName string) []string {
	dirs := append([]string{c.Paths.StateDir}, c.Paths.FallbackDirs...)
	paths := make([]string, 0, len(dirs))
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, fileName)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
