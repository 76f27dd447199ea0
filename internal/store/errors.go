package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/dexnode/offerdb/internal/offer"
)

// Code categorizes store errors.
type Code string

const (
	// CodeDuplicateKey indicates a unique or primary key violation on add.
	CodeDuplicateKey Code = "DUPLICATE_KEY"

	// CodeNotFound indicates a point lookup or edit on an absent key.
	CodeNotFound Code = "NOT_FOUND"

	// CodeBusy indicates lock contention past the busy timeout. Retryable.
	CodeBusy Code = "BUSY"

	// CodeStaleVersion indicates an edit that does not raise editingVersion.
	CodeStaleVersion Code = "STALE_VERSION"

	// CodeInvalidArgument indicates a request the store refuses to run.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeSchemaMismatch indicates the on-disk schema differs from the
	// declared one with no migration path. Fatal at open.
	CodeSchemaMismatch Code = "SCHEMA_MISMATCH"

	// CodeIntegrityFailure indicates the structural self-check failed. Fatal at open.
	CodeIntegrityFailure Code = "INTEGRITY_FAILURE"

	// CodeMigrationFailure indicates the migration was rolled back. Fatal at open.
	CodeMigrationFailure Code = "MIGRATION_FAILURE"

	// CodeEngine wraps any other driver failure.
	CodeEngine Code = "ENGINE_ERROR"
)

// Error is returned by every store operation that fails.
//
// Sentinels such as ErrNotFound carry only a Code, so
// errors.Is(err, store.ErrNotFound) matches any Error with that code.
type Error struct {
	Code  Code
	Op    string // Operation name, e.g. "add offer"
	Table string // Table name, empty for store-wide operations
	Err   error  // Underlying cause (optional)
}

// Sentinel errors for errors.Is.
var (
	ErrDuplicateKey     = &Error{Code: CodeDuplicateKey}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrBusy             = &Error{Code: CodeBusy}
	ErrStaleVersion     = &Error{Code: CodeStaleVersion}
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument}
	ErrSchemaMismatch   = &Error{Code: CodeSchemaMismatch}
	ErrIntegrityFailure = &Error{Code: CodeIntegrityFailure}
	ErrMigrationFailure = &Error{Code: CodeMigrationFailure}
	ErrEngine           = &Error{Code: CodeEngine}
)

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		if e.Table != "" {
			msg = fmt.Sprintf("%s %s: %s", e.Op, e.Table, msg)
		} else {
			msg = fmt.Sprintf("%s: %s", e.Op, msg)
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "store: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// newError builds an Error with an explicit code.
func newError(code Code, op, table string, err error) *Error {
	return &Error{Code: code, Op: op, Table: table, Err: err}
}

// wrapError classifies err and attaches op and table.
// An err that already carries a store code keeps it.
func wrapError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Op != "" {
			return err
		}
		if err == error(se) {
			return newError(se.Code, op, table, se.Err)
		}
		return newError(se.Code, op, table, err)
	}
	return newError(classify(err), op, table, err)
}

// classify maps a driver or library error to a Code.
func classify(err error) Code {
	if errors.Is(err, sql.ErrNoRows) {
		return CodeNotFound
	}
	if errors.Is(err, offer.ErrInvalidRecord) {
		return CodeInvalidArgument
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return CodeBusy
		case sqlite3.ErrConstraint:
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
				return CodeDuplicateKey
			}
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return CodeIntegrityFailure
		}
	}
	return CodeEngine
}

// CodeOf returns the store code carried by err, or "" if none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsDuplicateKey reports whether err is a DuplicateKey error.
func IsDuplicateKey(err error) bool { return CodeOf(err) == CodeDuplicateKey }

// IsRetryable reports whether the caller may retry the operation.
// Only lock contention is retryable.
func IsRetryable(err error) bool { return CodeOf(err) == CodeBusy }

// IsFatal reports whether err must stop store initialization.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeSchemaMismatch, CodeIntegrityFailure, CodeMigrationFailure:
		return true
	}
	return false
}
