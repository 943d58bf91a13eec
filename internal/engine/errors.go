package engine

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a bin id is not in the registry.
type NotFoundError struct {
	BinID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bin %d not found", e.BinID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrScheduleConfirmationRequired is returned when a schedule save would
// replace an active schedule and the caller has not confirmed it.
var ErrScheduleConfirmationRequired = errors.New("a collection schedule is already active; confirm to overwrite")
