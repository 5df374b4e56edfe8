package cleanup

import (
	"errors"
	"strings"
	"testing"
)

func TestRunAll_LIFOAndReset(t *testing.T) {
	var order []string
	Register("log file", func() error { order = append(order, "log file"); return nil })
	Register("provider", func() error { order = append(order, "provider"); return nil })
	Register("nil", nil)

	if Pending() != 2 {
		t.Fatalf("expected 2 pending hooks, got %d", Pending())
	}
	if err := RunAll(); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "provider" || order[1] != "log file" {
		t.Fatalf("expected LIFO order [provider log file], got %v", order)
	}
	if Pending() != 0 {
		t.Fatalf("expected hooks to be cleared")
	}
	if err := RunAll(); err != nil {
		t.Fatalf("second RunAll should be a no-op, got %v", err)
	}
}

func TestRunAll_JoinsNamedErrors(t *testing.T) {
	sentinel := errors.New("close failed")
	Register("gemini client", func() error { return sentinel })
	Register("log file", func() error { return nil })

	err := RunAll()
	if err == nil || !errors.Is(err, sentinel) {
		t.Fatalf("expected joined error containing sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "cleanup failed") || !strings.Contains(err.Error(), "gemini client: close failed") {
		t.Fatalf("unexpected error text: %v", err)
	}
}
