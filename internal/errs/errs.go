// Package errs defines the structured error taxonomy shared by every
// layer of the engine: validation, semantic, storage, execution and
// transaction failures. Callers type-switch or errors.As on the
// concrete kinds below rather than matching on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the five buckets the engine
// distinguishes when deciding whether a query can be partially
// salvaged, retried, or must abort outright.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindSemantic    Kind = "semantic"
	KindStorage     Kind = "storage"
	KindExecution   Kind = "execution"
	KindTransaction Kind = "transaction"
)

// Info is the user-visible shape of any engine failure, matching the
// `{ code, kind, message, operator_id?, span?, suggestion? }` contract.
type Info struct {
	Code       string
	Kind       Kind
	Message    string
	OperatorID int64
	Span       string
	Suggestion string
	cause      error
}

func (e *Info) Error() string {
	if e.OperatorID != 0 {
		return fmt.Sprintf("[%s/%s] %s (operator %d)", e.Kind, e.Code, e.Message, e.OperatorID)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
}

func (e *Info) Unwrap() error { return e.cause }

func newInfo(kind Kind, code, msg string, cause error) *Info {
	return &Info{Kind: kind, Code: code, Message: msg, cause: cause}
}

// Validation wraps an unknown identifier / type mismatch / illegal
// expression shape detected before execution begins.
func Validation(code, msg string) *Info { return newInfo(KindValidation, code, msg, nil) }

// Semantic wraps a schema or permission or constraint violation.
func Semantic(code, msg string) *Info { return newInfo(KindSemantic, code, msg, nil) }

// Execution wraps an operator-internal failure, timeout or
// cancellation discovered mid-pull.
func Execution(code, msg string, cause error) *Info { return newInfo(KindExecution, code, msg, cause) }

// Transaction wraps a write-write conflict, snapshot validation
// failure, or deadlock.
func Transaction(code, msg string) *Info { return newInfo(KindTransaction, code, msg, nil) }

// WithOperator attaches the id of the operator that raised the error.
func (e *Info) WithOperator(id int64) *Info {
	e.OperatorID = id
	return e
}

// WithSuggestion attaches an actionable hint for the caller.
func (e *Info) WithSuggestion(s string) *Info {
	e.Suggestion = s
	return e
}

// --- Storage error kind, matching spec §4.A StorageError{...} ---

// StorageErrorKind enumerates the four storage failure modes named in
// the spec: DbError, Serialization, Invalid, NotFound.
type StorageErrorKind string

const (
	StorageDbError       StorageErrorKind = "DbError"
	StorageSerialization StorageErrorKind = "Serialization"
	StorageInvalid       StorageErrorKind = "Invalid"
	StorageNotFound      StorageErrorKind = "NotFound"
)

// StorageError is the error type every Storage interface method
// returns on failure.
type StorageError struct {
	SubKind StorageErrorKind
	Message string
	cause   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %s", e.SubKind, e.Message)
}

func (e *StorageError) Unwrap() error { return e.cause }

func NewStorageError(kind StorageErrorKind, msg string, cause error) *StorageError {
	return &StorageError{SubKind: kind, Message: msg, cause: cause}
}

func NotFound(msg string) *StorageError {
	return NewStorageError(StorageNotFound, msg, nil)
}

func IsNotFound(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.SubKind == StorageNotFound
	}
	return false
}

// Sentinel errors used where a dedicated structured error would be
// overkill (package-internal plumbing, not user-visible).
var (
	ErrPoisonedLock    = errors.New("lock manager: poisoned lock, owning transaction panicked")
	ErrLockConflict    = errors.New("lock manager: entity already locked by another transaction")
	ErrTxNotActive     = errors.New("transaction is not active")
	ErrSnapshotExpired = errors.New("snapshot no longer valid: garbage collected")
	ErrCancelled       = errors.New("query cancelled")
	ErrTimeout         = errors.New("query timed out")
)
