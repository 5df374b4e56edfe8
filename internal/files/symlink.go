package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// RejectSymlinkPath refuses paths where any existing component is a symlink
// or a reparse point. Components that do not exist yet are accepted.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for _, p := range ancestors(abs) {
		info, err := os.Lstat(p)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to access path: %w", err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("refusing to write through symlink: %s (link at %s)", path, p)
		}
		reparse, err := isReparsePoint(p)
		if err != nil {
			return fmt.Errorf("failed to check reparse point: %w", err)
		}
		if reparse {
			return fmt.Errorf("refusing to write through reparse point: %s (at %s)", path, p)
		}
	}
	return nil
}

// ancestors returns path and every parent, root first.
func ancestors(path string) []string {
	var out []string
	for {
		out = append(out, path)
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}
	slices.Reverse(out)
	return out
}
