package exception

import "errors"

// Routing and command errors.
var (
	ErrDuplicateRegistration = errors.New("execution: duplicate strategy registration")
	ErrUnknownStrategy       = errors.New("execution: unknown strategy")
	ErrUnroutableEvent       = errors.New("execution: unroutable event")
	ErrNilStrategy           = errors.New("execution: nil strategy")
	ErrEmptyStrategyID       = errors.New("execution: empty strategy id")
	ErrNotOwner              = errors.New("execution: order not owned by strategy")
	ErrInvalidOrder          = errors.New("execution: invalid order")
	ErrNilSender             = errors.New("execution: nil sender")
	ErrVenueDisconnected     = errors.New("execution: venue disconnected")
)

// Lifecycle errors.
var (
	ErrDuplicateOrder    = errors.New("lifecycle: order already tracked")
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("lifecycle: invalid order state transition")
	ErrInvalidFill       = errors.New("lifecycle: invalid fill quantity")
)
