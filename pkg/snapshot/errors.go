package snapshot

import "errors"

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrUnknownBackend   = errors.New("unknown store backend")

	errSaveSnapshot  = errors.New("failed to save snapshot")
	errLoadSnapshot  = errors.New("failed to load snapshot")
	errClearStore    = errors.New("failed to clear store")
	errListSnapshots = errors.New("failed to list snapshots")
	errBeginTx       = errors.New("failed to begin transaction")
	errInitSchema    = errors.New("failed to initialize schema")
	errOpenDB        = errors.New("failed to open database")
)
