package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyLabel   = errors.New("label cannot be empty")
	ErrLabelTooLong = errors.New("label too long (max 255 characters)")
	ErrNodeNotFound = errors.New("bommel not found")

	// ErrIllegalTarget is returned for moves outside the legal-target set.
	ErrIllegalTarget = errors.New("illegal move target")
	ErrRootImmutable = errors.New("root bommel cannot be edited, moved or deleted")

	ErrTransactionHandlingRequired = errors.New("bommel has transactions, a transaction handling policy is required")
	ErrHandlingUnavailable         = errors.New("transaction handling policy not available")
	ErrUnknownHandling             = errors.New("unknown transaction handling policy")

	// ErrMutationInFlight rejects a mutation while the previous one is still reloading.
	ErrMutationInFlight = errors.New("another change is still being saved")
)

// ValidationError is detected locally and never reaches the collaborator.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed collaborator call. The local snapshot is untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports corrupt hierarchy data, such as a parent cycle.
type IntegrityError struct {
	NodeID int64
	Chain  []int64
}

func (e *IntegrityError) Error() string {
	ids := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("cycle detected in ancestor chain of bommel %d: %s", e.NodeID, strings.Join(ids, " -> "))
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsIntegrity reports whether err is (or wraps) an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
