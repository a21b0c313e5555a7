package record

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrEmptyStore is returned when an operation needs at least one record and the budget has none.
var ErrEmptyStore = errors.New("there is nothing in this budget")

// ParseError reports user input that could not be turned into a value.
type ParseError struct {
	Field string
	Input string
	msg   string
}

func (e *ParseError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("%s is not a valid %s", e.Input, e.Field)
}

// OutOfRangeError reports a record window that falls outside the stored records.
type OutOfRangeError struct {
	ID    int
	Count int
	Total int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("records exhausted: window of %d ending at %d is outside 1..%d", e.Count, e.ID, e.Total)
}

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// fail logs err and returns it wrapped in a StorageError.
func fail(op, msg string, err error) error {
	err = storageError(op, fmt.Errorf("%s: %w", msg, err))
	log.Error(err)
	return err
}
