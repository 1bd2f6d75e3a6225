package model

import (
	"errors"
	"fmt"
)

// InvalidFaceRecordError is returned when a face record violates its
// invariants (malformed bounds, zero-height box, zero confidence).
type InvalidFaceRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidFaceRecordError) Error() string {
	return fmt.Sprintf("invalid face record %d: %s", e.Index, e.Reason)
}

// IsInvalidFaceRecord returns true if err (or any error in its chain) is an
// InvalidFaceRecordError.
func IsInvalidFaceRecord(err error) bool {
	var ife *InvalidFaceRecordError
	return errors.As(err, &ife)
}
