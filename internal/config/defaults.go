package config

import (
	"os"
	"path/filepath"
)

const (
	defaultMappingsDir  = "~/.local/share/dialbridge/mappings"
	defaultLogDir       = "~/.local/share/dialbridge/logs"
	defaultPositionFile = "logi_position.json"
	defaultButtonFile   = "logi_buttons.json"
	defaultConsoleFile  = "controller_state.json"
	defaultHostSocket   = "~/.local/share/dialbridge/host.sock"

	defaultPollIntervalMillis = 30
	defaultBigSensitivity     = 0.1
	defaultSmallSensitivity   = 1.0
	defaultColorScale         = 0.01
	defaultKeyframeTolerance  = 0.001
	// Free-spinning dials report up to ~±127 per poll at full speed;
	// anything beyond that is a corrupted read, not fast motion.
	defaultMaxDeltaBig     = 200
	defaultMaxDeltaSmall   = 200
	defaultMaxDeltaChannel = 0.5

	defaultButtonNextEntity    = "TOP RIGHT"
	defaultButtonPrevEntity    = "TOP LEFT"
	defaultButtonNextContainer = "BOTTOM RIGHT"
	defaultButtonPrevContainer = "BOTTOM LEFT"
	defaultButtonKeyframePrev  = "7"
	defaultButtonKeyframeJump  = "8"
	defaultButtonKeyframeNext  = "9"

	defaultHostConnectTimeout = 2
	defaultLogiVendorID       = "046d"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// defaultStateDir matches the directory the stock device host writes to.
func defaultStateDir() string {
	return filepath.Join(os.TempDir(), "dialbridge")
}

// defaultFallbackDirs returns the ordered fallback locations for state
// records: the environment temp dir, the fixed legacy host default, and the
// installation-relative examples directory.
func defaultFallbackDirs() []string {
	dirs := []string{os.TempDir(), "/tmp"}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "examples", "state"))
	}
	return dirs
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:     defaultStateDir(),
			FallbackDirs: defaultFallbackDirs(),
			MappingsDir:  defaultMappingsDir,
			LogDir:       defaultLogDir,
			PositionFile: defaultPositionFile,
			ButtonFile:   defaultButtonFile,
			ConsoleFile:  defaultConsoleFile,
			Source:       SourcePoll,
		},
		Engine: Engine{
			PollIntervalMillis: defaultPollIntervalMillis,
			BigSensitivity:     defaultBigSensitivity,
			SmallSensitivity:   defaultSmallSensitivity,
			ColorScale:         defaultColorScale,
			KeyframeTolerance:  defaultKeyframeTolerance,
			MaxDeltaBig:        defaultMaxDeltaBig,
			MaxDeltaSmall:      defaultMaxDeltaSmall,
			MaxDeltaChannel:    defaultMaxDeltaChannel,
			ConsoleEnabled:     true,
		},
		Buttons: Buttons{
			NextEntity:    defaultButtonNextEntity,
			PrevEntity:    defaultButtonPrevEntity,
			NextContainer: defaultButtonNextContainer,
			PrevContainer: defaultButtonPrevContainer,
			KeyframePrev:  defaultButtonKeyframePrev,
			KeyframeJump:  defaultButtonKeyframeJump,
			KeyframeNext:  defaultButtonKeyframeNext,
		},
		Host: Host{
			Socket:         defaultHostSocket,
			ConnectTimeout: defaultHostConnectTimeout,
		},
		Devices: Devices{
			MonitorHotplug: true,
			VendorID:       defaultLogiVendorID,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
