package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxNumberedSiblings bounds the name_1 .. name_N candidates SafePath tries.
const MaxNumberedSiblings = 9

// SafePath returns path when nothing exists there. Otherwise it returns the
// first free sibling name_N.ext, falling back to name_<uuid>.ext. changed
// reports whether a sibling was chosen.
func SafePath(path string) (string, bool, error) {
	if path == "" {
		return "", false, errors.New("path is empty")
	}
	free, err := isFree(path)
	if err != nil {
		return "", false, err
	}
	if free {
		return path, false, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= MaxNumberedSiblings; i++ {
		candidate := stem + "_" + strconv.Itoa(i) + ext
		free, err := isFree(candidate)
		if err != nil {
			return "", false, err
		}
		if free {
			return candidate, true, nil
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return stem + "_" + id.String() + ext, true, nil
}

func isFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, os.ErrNotExist):
		return true, nil
	default:
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
}
