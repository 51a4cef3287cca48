package store

import (
	"errors"
	"fmt"
)

// ErrAlertNotFound is returned by single-alert lookups for unknown ids.
var ErrAlertNotFound = errors.New("alert not found")

// DuplicateAlertError reports an insert collision on (tenantId, alertId).
// Bulk inserts report one per rejected record and keep going.
type DuplicateAlertError struct {
	TenantID string
	AlertID  string
}

func (e *DuplicateAlertError) Error() string {
	return fmt.Sprintf("duplicate alert %q in tenant %q", e.AlertID, e.TenantID)
}

// InvalidCriteriaError reports a criteria whose tag query failed to compile.
// It is returned before any scan begins.
type InvalidCriteriaError struct {
	TagQuery string
	Err      error
}

func (e *InvalidCriteriaError) Error() string {
	return fmt.Sprintf("invalid criteria: tag query %q: %v", e.TagQuery, e.Err)
}

func (e *InvalidCriteriaError) Unwrap() error { return e.Err }

// StoreError wraps a backing-storage failure. The store never retries;
// callers own retry policy.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
