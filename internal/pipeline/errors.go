package pipeline

import "errors"

// Collaborator names reported in CollaboratorError.
const (
	CollaboratorSource  = "transcript source"
	CollaboratorLabeler = "labeling oracle"
)

// ErrCancelled is recorded on jobs stopped through Runner.Cancel.
var ErrCancelled = errors.New("cancelled")

// CollaboratorError reports a failure in an external dependency of the
// pipeline. The underlying message is kept as-is.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return e.Collaborator + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
