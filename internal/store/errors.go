// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilter is returned for filters, sort keys, projections or
	// limits the data-access layer cannot serve with a bounded, indexed query.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrRelationNotLoaded is returned when a caller reads a relation that
	// was not requested from the planner.
	ErrRelationNotLoaded = errors.New("relation not loaded")

	// ErrInvalidTransition is returned for status changes that move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrParentMismatch is returned when a reply targets a comment on another post.
	ErrParentMismatch = errors.New("reply must belong to the parent comment's post")

	// ErrInvalidInput is returned when a write carries missing or malformed values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a failure of the underlying database: timeouts, lost
// connections or rejected statements. Callers may retry once when
// Retryable reports true; the store itself never retries.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Retryable reports whether the failure is transient. Statement errors
// (syntax, data and constraint classes) are not.
func (e *StorageError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23", "42":
			return false
		}
	}
	return true
}

// wrapErr converts a database error into the store's error taxonomy.
// Domain errors pass through unchanged.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{ErrNotFound, ErrInvalidFilter, ErrRelationNotLoaded, ErrInvalidTransition, ErrParentMismatch, ErrInvalidInput, ErrConflict, ErrStorage} {
		if errors.Is(err, domain) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, pgErr.ConstraintName)
		}
	}
	return &StorageError{Op: op, Err: err}
}

// invalidf builds an ErrInvalidFilter with a formatted reason.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}

// notLoaded builds an ErrRelationNotLoaded naming the entity and relation.
func notLoaded(entity string, rel Relation) error {
	return fmt.Errorf("%w: %s.%s", ErrRelationNotLoaded, entity, rel)
}

// compact collapses whitespace in a SQL statement for log output.
func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
