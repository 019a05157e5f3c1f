package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dialbridge/internal/faults"
)

// WritePosition publishes a position record at path. Engine-owned writes go
// through a temp file and rename so the device host never reads a torn
// record from us.
func WritePosition(path string, rec PositionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return faults.Wrap(faults.ErrConfiguration, "state-channel", "encode position", "", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return faults.Wrap(faults.ErrTransientRead, "state-channel", "ensure state dir", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return faults.Wrap(faults.ErrTransientRead, "state-channel", "write position", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return faults.Wrap(faults.ErrTransientRead, "state-channel", "publish position", path, err)
	}
	return nil
}

// ResetPosition zeroes the accumulated position record at the channel's
// primary location and clears the channel cache so the zero read is
// processed fresh.
func ResetPosition(c *Channel) error {
	path := c.Source().PrimaryPath(KindPosition)
	if path == "" {
		return faults.Wrap(faults.ErrConfiguration, "state-channel", "reset position", "no primary path", nil)
	}
	rec := PositionRecord{X: 0, Y: 0, TS: float64(time.Now().UnixNano()) / 1e9}
	if err := WritePosition(path, rec); err != nil {
		return err
	}
	c.Reset(KindPosition)
	return nil
}
