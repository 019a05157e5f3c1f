package faults_test

import (
	"errors"
	"fmt"
	"testing"

	"dialbridge/internal/faults"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("no such property")
	err := faults.Wrap(faults.ErrHostAPI, "mapper", "read value", "target vanished", cause)

	if !errors.Is(err, faults.ErrHostAPI) {
		t.Fatalf("expected ErrHostAPI marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := faults.Wrap(faults.ErrStaleRead, "state-channel", "read", "marker unchanged", nil)
	if !errors.Is(err, faults.ErrStaleRead) {
		t.Fatalf("expected ErrStaleRead, got %v", err)
	}
	want := "stale read: state-channel: read: marker unchanged"
	if err.Error() != want {
		t.Fatalf("unexpected message: got %q want %q", err.Error(), want)
	}
}

func TestReportable(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{faults.ErrTransientRead, false},
		{faults.ErrCorruptPayload, false},
		{faults.ErrStaleRead, false},
		{faults.ErrGlitchRejected, false},
		{faults.ErrUnsupportedValue, true},
		{faults.ErrHostAPI, true},
		{faults.ErrConfiguration, true},
	}
	for _, tc := range cases {
		err := fmt.Errorf("wrapped: %w", tc.marker)
		if got := faults.Reportable(err); got != tc.want {
			t.Fatalf("Reportable(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
	if faults.Reportable(nil) {
		t.Fatal("nil error must not be reportable")
	}
}

func TestNeedsReenumeration(t *testing.T) {
	err := faults.Wrap(faults.ErrHostAPI, "navigator", "enumerate", "", nil)
	if !faults.NeedsReenumeration(err) {
		t.Fatal("host api failures must force re-enumeration")
	}
	if faults.NeedsReenumeration(faults.ErrStaleRead) {
		t.Fatal("stale reads must not force re-enumeration")
	}
}
