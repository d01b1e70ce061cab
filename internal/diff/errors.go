package diff

import (
	"errors"
	"fmt"

	"github.com/roach88/loanwatch/internal/record"
)

// InputError reports a malformed observed or stored record set.
//
// A record without its identity key, or a stored set with two records for
// the same key, breaks the 1:1 cross-cycle join. The reconciler rejects the
// whole cycle rather than skipping the record: a silent skip would read as
// "nothing changed" on the next cycle and mask real transitions.
type InputError struct {
	// Code identifies the error category.
	Code InputErrorCode

	// Key is the offending identity key, when known.
	Key record.Key

	// Source names the record set the error was found in ("observed" or
	// "stored").
	Source string
}

// InputErrorCode categorizes input-shape errors.
type InputErrorCode string

const (
	// ErrCodeMissingKey indicates a record with an empty identity key.
	ErrCodeMissingKey InputErrorCode = "MISSING_KEY"

	// ErrCodeDuplicateKey indicates two stored records for the same key.
	ErrCodeDuplicateKey InputErrorCode = "DUPLICATE_KEY"
)

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s record set (key=%s)", e.Code, e.Source, e.Key)
	}
	return fmt.Sprintf("%s: %s record set", e.Code, e.Source)
}

// IsInputError returns true if err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
