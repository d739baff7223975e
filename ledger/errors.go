/*
errors.go - Error taxonomy for the ledger engine

ERROR CATEGORIES:
  1. MissingReference - unknown product, salesman, or transaction id
  2. BusinessRule     - inactive entity, disallowed void target, bad credit
                        link, unsupported enum value, duplicate catalog key
  3. InvalidValue     - non-positive quantity, negative money, empty field
  4. Store errors     - persistence failures (ErrDuplicateID, ErrNotFound)

Every rule failure is an *Error carrying an ErrorKind. Callers branch with
errors.Is against the kind sentinels or with KindOf:

    if errors.Is(err, ledger.ErrBusinessRule) { ... }
    switch ledger.KindOf(err) { ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// KINDS
// =============================================================================

// ErrorKind classifies a rejected command.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMissingReference
	KindBusinessRule
	KindInvalidValue
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingReference:
		return "missing_reference"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindInvalidValue:
		return "invalid_value"
	default:
		return "unknown"
	}
}

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrMissingReference = errors.New("missing reference")
	ErrBusinessRule     = errors.New("business rule violation")
	ErrInvalidValue     = errors.New("invalid value")

	// ErrDuplicateID is returned by a Store when an appended row reuses an
	// existing key.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound is returned by a Store when updating an unknown key.
	ErrNotFound = errors.New("not found")

	// ErrSchemaMismatch is returned when the store was written by a
	// different schema version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error is the typed failure returned by every rule-engine operation.
type Error struct {
	Kind ErrorKind
	Op   string // operation that rejected the input, e.g. "record sale"
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindMissingReference:
		return ErrMissingReference
	case KindBusinessRule:
		return ErrBusinessRule
	case KindInvalidValue:
		return ErrInvalidValue
	}
	return nil
}

func newError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// withOp returns err re-labelled with op when it is an *Error without one.
func withOp(err error, op string) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		return &Error{Kind: e.Kind, Op: op, Msg: e.Msg}
	}
	return err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the ErrorKind of err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsMissingReference(err error) bool { return errors.Is(err, ErrMissingReference) }
func IsBusinessRule(err error) bool     { return errors.Is(err, ErrBusinessRule) }
func IsInvalidValue(err error) bool     { return errors.Is(err, ErrInvalidValue) }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return KindOf(err) != KindUnknown
}
