package block

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVariantTag   = errors.New("invalid variant tag")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrInvalidDirectionSet = errors.New("invalid direction set")
	ErrInvalidBoolean      = errors.New("invalid boolean")
	ErrInvalidPowerState   = errors.New("invalid power state")
	ErrUnexpectedEOF       = errors.New("unexpected end of data")
)

// DecodeError reports which record field failed to decode.
type DecodeError struct {
	Variant Variant
	Field   string
	Value   byte
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %v", e.Variant, e.Err)
	}
	return fmt.Sprintf("decode %s.%s (byte %#02x): %v", e.Variant, e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
