package services_test

import (
	"errors"
	"testing"

	"vigil/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "ytdlp", "list streams", "yt-dlp failed", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Error("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "helix", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Error("expected default external tool marker")
	}
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrNotFound, "storage", "scan", "", nil), true},
		{services.Wrap(services.ErrTimeout, "ytdlp", "probe", "", nil), true},
		{services.Wrap(services.ErrWrite, "document", "write", "", nil), false},
		{services.Wrap(services.ErrMalformed, "document", "parse", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.Recoverable(tc.err); got != tc.want {
			t.Errorf("Recoverable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
