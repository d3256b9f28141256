package records

import (
	"errors"
	"fmt"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrNoVisits        = errors.New("patient has no visits")
	errMissingColumn   = errors.New("missing required column")
	errEmptySource     = errors.New("dataset is empty")
)

// DataLoadError reports a dataset that cannot be loaded at all.
type DataLoadError struct {
	Source string
	reason error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load dataset %q: %v", e.Source, e.reason)
}

func (e *DataLoadError) Unwrap() error {
	return e.reason
}

func IsDataLoadError(err error) bool {
	var le *DataLoadError
	return errors.As(err, &le)
}

func loadError(source string, reason error) error {
	return &DataLoadError{Source: source, reason: reason}
}
