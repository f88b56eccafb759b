package apps

import (
	"errors"
	"fmt"
)

// ErrOutsideManagedDir guards removals against install records pointing
// somewhere the launcher does not own.
var ErrOutsideManagedDir = errors.New("path is outside the managed apps directory")

// ErrNotAvailable is returned when an app is neither listed nor installed.
var ErrNotAvailable = errors.New("app is not available")

// UnknownSourceError is returned for a source that is not registered.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q", e.Source)
}
