package domain

import "errors"

// Sentinel errors shared across the engine. Callers match with errors.Is.
var (
	ErrUnknownType      = errors.New("unknown or disabled item type")
	ErrUnknownDirection = errors.New("unknown sync direction")
	ErrSyncInProgress   = errors.New("sync already in progress for type")
	ErrConflictNotFound = errors.New("conflict not found")
	ErrAlreadyResolved  = errors.New("conflict already resolved")
	ErrMappingNotFound  = errors.New("mapping not found")
	ErrItemNotFound     = errors.New("item not found")
)
