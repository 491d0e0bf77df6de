package shared

import (
	"errors"
	"fmt"
)

// ValidationError covers caller-fixable input problems: unbalanced
// entries, inactive accounts, closed periods, bad state transitions.
// The message must carry enough context (numero, cuenta, período) for an
// operator to locate the offending data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NotFoundf builds a NotFoundError from a format string.
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConsistencyError signals the ledger disagrees with itself: a stored row
// diverges from a fresh recompute, or the accounting equation does not
// hold. It points at a prior transactional failure or a bug and must be
// surfaced, never swallowed.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }

// Consistencyf builds a ConsistencyError from a format string.
func Consistencyf(format string, args ...any) error {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConsistency reports whether err wraps a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// ErrNumeroConflict indicates a duplicate asiento number slipped past the
// advisory lock; creation retries the numbering step on this error.
var ErrNumeroConflict = errors.New("contabilidad: numero de asiento duplicado")

// BalanceTolerance is the accepted drift between total debits and credits.
const BalanceTolerance = 0.01
