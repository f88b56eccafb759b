package sources

import (
	"fmt"

	"launcher/pkg/appspec"
)

// ReservedNameError is returned when an operation targets a source name that
// belongs to the launcher itself.
type ReservedNameError struct {
	Op   string
	Name string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("cannot %s reserved source %q", e.Op, e.Name)
}

// SourceError records a per-source failure inside a batch operation.
type SourceError struct {
	Source appspec.Source `json:"source"`
	Reason string         `json:"reason"`
	Err    error          `json:"-"`
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %s", e.Source.Name, e.Reason)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

func newSourceError(src appspec.Source, err error) SourceError {
	return SourceError{Source: src, Reason: err.Error(), Err: err}
}
