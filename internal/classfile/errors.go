package classfile

import "errors"

var (
	// ErrNotClassFile indicates data that does not start with the class file magic.
	ErrNotClassFile = errors.New("not a class file")

	// ErrTruncated indicates a class file or attribute that ends early.
	ErrTruncated = errors.New("truncated class file")

	// ErrMalformed indicates structurally invalid class file content.
	ErrMalformed = errors.New("malformed class file")

	// ErrPoolOverflow indicates a constant pool that grew past 65535 entries.
	ErrPoolOverflow = errors.New("constant pool overflow")

	// ErrLdcRange indicates an ldc operand that no longer fits in one byte after relocation.
	ErrLdcRange = errors.New("ldc constant index out of range")
)
