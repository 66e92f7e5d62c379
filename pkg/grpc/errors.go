package grpc

import "errors"

var (
	errInternalError = errors.New("internal error")
)
