package statefile

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"dialbridge/internal/config"
	"dialbridge/internal/faults"
)

// Source supplies the raw payload for one state record kind. Implementations
// return faults.ErrTransientRead when no payload is available anywhere.
type Source interface {
	Load(ctx context.Context, kind Kind) ([]byte, error)
	// PrimaryPath returns the location engine-owned writes for this kind
	// should go to.
	PrimaryPath(kind Kind) string
	Close() error
}

// FileSource reads each record from a primary path followed by ordered
// fallback locations. Reads are synchronous and local; the poll interval
// bounds worst-case staleness.
type FileSource struct {
	paths map[Kind][]string
}

// NewFileSource derives the search paths for all record kinds from cfg.
func NewFileSource(cfg *config.Config) *FileSource {
	return &FileSource{
		paths: map[Kind][]string{
			KindPosition: cfg.StatePaths(cfg.Paths.PositionFile),
			KindButton:   cfg.StatePaths(cfg.Paths.ButtonFile),
			KindConsole:  cfg.StatePaths(cfg.Paths.ConsoleFile),
		},
	}
}

// Load returns the first readable, non-empty payload across the search
// paths for kind.
func (s *FileSource) Load(_ context.Context, kind Kind) ([]byte, error) {
	paths := s.paths[kind]
	if len(paths) == 0 {
		return nil, faults.Wrap(faults.ErrTransientRead, "state-channel", "load", "no paths configured for "+string(kind), nil)
	}
	var lastErr error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				lastErr = err
			}
			continue
		}
		if len(data) == 0 {
			continue
		}
		return data, nil
	}
	return nil, faults.Wrap(faults.ErrTransientRead, "state-channel", "load", "record missing from all locations", lastErr)
}

// PrimaryPath returns the first search path for kind.
func (s *FileSource) PrimaryPath(kind Kind) string {
	if paths := s.paths[kind]; len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func (s *FileSource) Close() error { return nil }
