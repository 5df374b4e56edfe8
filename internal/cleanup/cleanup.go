// Package cleanup collects shutdown hooks (open log files, provider clients)
// that the CLI runs once a command returns.
package cleanup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oukeidos/boardtrans/internal/logger"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu    sync.Mutex
	hooks []hook
)

// Register adds a named hook. Hooks run in LIFO order.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook{name: name, fn: fn})
	mu.Unlock()
}

// Pending reports how many hooks are waiting to run.
func Pending() int {
	mu.Lock()
	defer mu.Unlock()
	return len(hooks)
}

// RunAll executes all registered hooks once. Failures are labelled with the
// hook name and joined.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		h := local[i]
		logger.Debug("Running cleanup", "hook", h.name)
		if err := h.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{errors.New("cleanup failed")}, errs...)...)
}
