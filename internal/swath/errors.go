package swath

import "fmt"

// DataReadError reports a swath file that could not be read: the file is
// missing or malformed, or it lacks one of the requested variables.
type DataReadError struct {
	Path     string
	Variable string
	Err      error
}

func (e *DataReadError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("swath: read %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("swath: read %s from %s: %v", e.Variable, e.Path, e.Err)
}

func (e *DataReadError) Unwrap() error {
	return e.Err
}
