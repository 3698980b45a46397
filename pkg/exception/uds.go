package exception

import "errors"

// UDS errors
var (
	// ErrEmptyPathUDS is returned when a socket path is empty.
	ErrEmptyPathUDS = errors.New("uds: empty path")

	// ErrNilListenerUDS is returned when a nil listener receiver is used.
	ErrNilListenerUDS = errors.New("uds: nil listener")

	// ErrAlreadyListeningUDS is returned when Listen is called twice.
	ErrAlreadyListeningUDS = errors.New("uds: already listening")

	// ErrNotListeningUDS is returned when Serve is called before Listen.
	ErrNotListeningUDS = errors.New("uds: not listening")

	// ErrPathNotSocketUDS is returned when the existing path is not a socket.
	ErrPathNotSocketUDS = errors.New("uds: path exists and is not a socket")
)
