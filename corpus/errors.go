package corpus

import (
	"errors"
	"fmt"
)

// ErrModeConflict marks calls that contradict the corpus mode.
var ErrModeConflict = errors.New("corpus: mode conflict")

// ModeConflictError reports a configuration or call that does not fit Mode.
type ModeConflictError struct {
	Mode   Mode
	Reason string
}

func (e *ModeConflictError) Error() string {
	return fmt.Sprintf("corpus: %s mode: %s", e.Mode, e.Reason)
}

// Unwrap lets errors.Is match ErrModeConflict.
func (e *ModeConflictError) Unwrap() error {
	return ErrModeConflict
}
