package sync

import "errors"

var (
	ErrRetriesExhausted = errors.New("push retries exhausted")
	// ErrUnresolvedRef: родитель еще не пришел локально, запись откладывается.
	ErrUnresolvedRef    = errors.New("unresolved reference")
	ErrTenantChanged    = errors.New("tenant changed")
	ErrOffline          = errors.New("remote store is not configured")
	ErrDocumentNotFound = errors.New("document not found")
	ErrWorkerRunning    = errors.New("sync worker already running")
)
