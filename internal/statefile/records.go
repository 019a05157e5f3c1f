package statefile

import (
	"encoding/json"
	"math"
	"strings"

	"dialbridge/internal/faults"
)

// Kind names one state record published by the device host.
type Kind string

const (
	// KindPosition is the accumulated dial position record {x, y, ts?}.
	KindPosition Kind = "position"
	// KindButton is the most-recent discrete button event record.
	KindButton Kind = "button"
	// KindConsole is the multi-channel controller record (knobs, faders,
	// button flags) keyed by channel name.
	KindConsole Kind = "console"
)

// PositionRecord carries the accumulated positions of both dials. X drives
// the primary dial, Y the secondary/scrub dial. TS is an optional producer
// marker; 0 means "no marker".
type PositionRecord struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	TS float64 `json:"ts"`
}

// ButtonRecord carries the most recent discrete button event. Timestamp
// must strictly increase across accepted events; 0 means "no event yet".
type ButtonRecord struct {
	Button    string  `json:"button"`
	Pressed   bool    `json:"pressed"`
	Timestamp float64 `json:"timestamp"`
}

// ConsoleRecord carries one value per named channel plus per-button flags
// and the producer's last_update marker.
type ConsoleRecord struct {
	Channels   map[string]float64
	Buttons    map[string]bool
	LastUpdate float64
}

// guard applies the cheap corruption check: after trimming whitespace the
// payload must begin with '{' and end with '}'. The device host writes
// non-atomically, so truncated payloads are routine.
func guard(data []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) < 2 || !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "guard", "payload is not a braced record", nil)
	}
	return []byte(trimmed), nil
}

func parsePosition(data []byte) (PositionRecord, error) {
	var raw struct {
		X  *float64 `json:"x"`
		Y  *float64 `json:"y"`
		TS *float64 `json:"ts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return PositionRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse position", "", err)
	}
	if raw.X == nil || raw.Y == nil {
		return PositionRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse position", "missing x or y", nil)
	}
	rec := PositionRecord{X: *raw.X, Y: *raw.Y}
	if raw.TS != nil {
		rec.TS = *raw.TS
	}
	if !finite(rec.X) || !finite(rec.Y) || !finite(rec.TS) {
		return PositionRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse position", "non-finite field", nil)
	}
	return rec, nil
}

func parseButton(data []byte) (ButtonRecord, error) {
	var raw struct {
		Button    *string  `json:"button"`
		Pressed   *bool    `json:"pressed"`
		Timestamp *float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ButtonRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse button", "", err)
	}
	if raw.Button == nil || raw.Pressed == nil || raw.Timestamp == nil {
		return ButtonRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse button", "missing required field", nil)
	}
	rec := ButtonRecord{Button: strings.TrimSpace(*raw.Button), Pressed: *raw.Pressed, Timestamp: *raw.Timestamp}
	if rec.Button == "" || !finite(rec.Timestamp) {
		return ButtonRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse button", "empty button or non-finite timestamp", nil)
	}
	return rec, nil
}

func parseConsole(data []byte) (ConsoleRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ConsoleRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse console", "", err)
	}
	rec := ConsoleRecord{
		Channels: make(map[string]float64),
		Buttons:  make(map[string]bool),
	}
	for key, value := range raw {
		switch v := value.(type) {
		case float64:
			if !finite(v) {
				return ConsoleRecord{}, faults.Wrap(faults.ErrCorruptPayload, "state-channel", "parse console", "non-finite channel "+key, nil)
			}
			if key == "last_update" {
				rec.LastUpdate = v
			} else {
				rec.Channels[key] = v
			}
		case bool:
			rec.Buttons[key] = v
		default:
			// Unknown shapes (strings, nested objects) are producer
			// metadata; the engine only consumes numeric and boolean
			// channels.
		}
	}
	return rec, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
