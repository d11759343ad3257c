package browser

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WHAT: an isolated tab's incognito context is released on Close.
// WHY: every extraction unit gets its own context, and Chrome keeps leaked
// ones (cookie jar, storage) alive until the run ends; on a long channel
// that degrades every later unit.
func TestCloseDisposesIncognitoContext(t *testing.T) {
	disposed := 0
	tab := &Tab{
		log:     discardLog(),
		dispose: func() error { disposed++; return nil },
	}

	if err := tab.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if disposed != 1 {
		t.Fatalf("context disposed %d times, want 1", disposed)
	}
}

func TestCloseReportsDisposeFailure(t *testing.T) {
	boom := errors.New("context already gone")
	tab := &Tab{
		log:     discardLog(),
		dispose: func() error { return boom },
	}

	if err := tab.Close(); !errors.Is(err, boom) {
		t.Fatalf("Close err = %v, want dispose failure", err)
	}
}

func TestCloseSharedTabHasNoContext(t *testing.T) {
	tab := &Tab{log: discardLog()}
	if err := tab.Close(); err != nil {
		t.Fatalf("Close on a shared tab: %v", err)
	}
}
