// Package faults defines the error taxonomy shared by the bridge engine.
// Every failure category is non-fatal to the poll loop; the sentinels here
// decide whether a failure is surfaced as status text or swallowed as
// routine noise.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransientRead marks a state file that is missing or locked.
	// Recovery is the cached last-valid value; not reported.
	ErrTransientRead = errors.New("transient read failure")
	// ErrCorruptPayload marks malformed state content or non-finite
	// required fields. Discarded without report; torn writes from the
	// device host are expected.
	ErrCorruptPayload = errors.New("corrupt payload")
	// ErrStaleRead marks a record whose marker is not newer than the last
	// one seen for its kind.
	ErrStaleRead = errors.New("stale read")
	// ErrGlitchRejected marks a delta that exceeded the per-channel
	// threshold and was forced to zero.
	ErrGlitchRejected = errors.New("glitch rejected")
	// ErrUnsupportedValue marks a target whose current value is neither
	// numeric nor a numeric vector.
	ErrUnsupportedValue = errors.New("unsupported value kind")
	// ErrHostAPI marks a host capability call that could not resolve the
	// referenced container, entity, or property.
	ErrHostAPI = errors.New("host api failure")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransientRead
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reportable reports whether the error should surface on the status channel.
// Transient, corrupt, and stale reads are routine noise by design; glitch
// rejections are debug-only.
func Reportable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransientRead),
		errors.Is(err, ErrCorruptPayload),
		errors.Is(err, ErrStaleRead),
		errors.Is(err, ErrGlitchRejected):
		return false
	default:
		return true
	}
}

// NeedsReenumeration reports whether the error should trigger a forced
// selection re-enumeration on the next tick.
func NeedsReenumeration(err error) bool {
	return errors.Is(err, ErrHostAPI)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "bridge failure"
	}
	return strings.Join(parts, ": ")
}
