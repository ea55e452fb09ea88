package services

import (
	"fmt"
	"strings"
)

// NotFoundError signals that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError carries every violated field at once so a caller can fix
// everything in one round-trip instead of replaying the request per field.
type ValidationError struct {
	Fields []string // field names, e.g. "supplier.vatNumber"
}

func (e *ValidationError) Error() string {
	return "validation failed: missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ConflictError signals a state conflict, such as converting a quote that
// already has an invoice.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Entity, e.Reason)
}

// PersistenceError wraps an underlying store failure during a transactional
// write. The transaction has been rolled back when this is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
