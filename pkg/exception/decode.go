package exception

import "errors"

// Decode errors. A frame failing with any of these is dropped; the stream continues.
var (
	ErrMalformedEvent     = errors.New("decode: malformed event")
	ErrMissingField       = errors.New("decode: missing field")
	ErrUnknownEventType   = errors.New("decode: unknown event type")
	ErrUnknownVenue       = errors.New("decode: unknown venue")
	ErrMalformedTimestamp = errors.New("decode: malformed timestamp")
	ErrMalformedDecimal   = errors.New("decode: malformed decimal")
	ErrInvalidEnumValue   = errors.New("decode: invalid enum value")
	ErrFieldCountMismatch = errors.New("decode: field count mismatch")
)
