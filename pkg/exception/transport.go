package exception

import "errors"

var (
	ErrQueueFull       = errors.New("bus: frame queue full")
	ErrQueueClosed     = errors.New("bus: frame queue closed")
	ErrUnknownEncoding = errors.New("transport: unknown frame encoding")
	ErrFrameTooLarge   = errors.New("transport: frame exceeds size limit")
)
