package statefile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"dialbridge/internal/faults"
	"dialbridge/internal/logging"
)

// WatchSource serves the most recent payload observed by an fsnotify
// watcher on the state directory. It satisfies the same contract as
// FileSource, so the channel above it is unchanged; Load never touches the
// filesystem after the initial prime.
type WatchSource struct {
	dir     string
	names   map[Kind]string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	payload map[Kind][]byte

	done chan struct{}
}

// NewWatchSource watches dir for writes to the named record files. The
// directory must exist before watching starts.
func NewWatchSource(dir string, positionFile, buttonFile, consoleFile string, logger *slog.Logger) (*WatchSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "state-watch", "create watcher", "", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, faults.Wrap(faults.ErrConfiguration, "state-watch", "watch dir", dir, err)
	}

	s := &WatchSource{
		dir: dir,
		names: map[Kind]string{
			KindPosition: positionFile,
			KindButton:   buttonFile,
			KindConsole:  consoleFile,
		},
		logger:  logging.NewComponentLogger(logger, "state-watch"),
		watcher: watcher,
		payload: make(map[Kind][]byte),
		done:    make(chan struct{}),
	}
	s.prime()
	go s.run()
	return s, nil
}

// prime seeds the payload cache from whatever is already on disk.
func (s *WatchSource) prime() {
	for kind, name := range s.names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil || len(data) == 0 {
			continue
		}
		s.payload[kind] = data
	}
}

func (s *WatchSource) run() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.ingest(event.Name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Debug("watch error", logging.Error(err))
		case <-s.done:
			return
		}
	}
}

func (s *WatchSource) ingest(path string) {
	base := filepath.Base(path)
	for kind, name := range s.names {
		if name != base {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			return
		}
		s.mu.Lock()
		s.payload[kind] = data
		s.mu.Unlock()
		return
	}
}

// Load returns the latest observed payload for kind.
func (s *WatchSource) Load(_ context.Context, kind Kind) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.payload[kind]
	if !ok {
		return nil, faults.Wrap(faults.ErrTransientRead, "state-watch", "load", "no payload observed for "+string(kind), nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// PrimaryPath returns the watched location for kind.
func (s *WatchSource) PrimaryPath(kind Kind) string {
	name, ok := s.names[kind]
	if !ok {
		return ""
	}
	return filepath.Join(s.dir, name)
}

// Close stops the watcher goroutine.
func (s *WatchSource) Close() error {
	close(s.done)
	return s.watcher.Close()
}
