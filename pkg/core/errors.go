package core

import "errors"

var (
	errReadUpload   = errors.New("failed to read upload")
	errSaveSnapshot = errors.New("failed to save snapshot")
	errLoadWindow   = errors.New("failed to load snapshots")
	errReset        = errors.New("failed to reset store")
)
