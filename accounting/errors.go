package accounting

import "errors"

var (
	// ErrTenantNotFound is returned when a slug does not resolve to a tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrSnapshotNotFound is returned when a tenant has never been accounted.
	ErrSnapshotNotFound = errors.New("storage snapshot not found")

	// ErrPersist wraps any failure to write the snapshot row.
	ErrPersist = errors.New("failed to persist storage snapshot")

	ErrUnknownKind = errors.New("unknown storage resource kind")
)
