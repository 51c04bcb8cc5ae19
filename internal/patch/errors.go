package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch is returned when the bytes a patch is applied to are not the bytes the
	// patch was made for.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrMalformed is returned for records that cannot be decoded.
	ErrMalformed = errors.New("malformed patch record")
	// ErrMissingClass is returned when a record patches a class absent from the input.
	ErrMissingClass = errors.New("patched class missing from input")
	// ErrToolFailed is returned when the console patcher exits unsuccessfully.
	ErrToolFailed = errors.New("patch tool failed")
)

// ChecksumMismatchError reports which class failed the checksum gate.
type ChecksumMismatchError struct {
	Class    string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: %v: expected %#08x, found %#08x", e.Class, ErrChecksumMismatch, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error {
	return ErrChecksumMismatch
}
