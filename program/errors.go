package program

import "errors"

var (
	// ErrParse is returned when the compiler rejects a program source.
	ErrParse = errors.New("program parse error")

	// ErrInstantiation is returned when arguments can't be bound to a
	// program's parameters.
	ErrInstantiation = errors.New("program instantiation error")

	// ErrSatisfaction is returned when the witness values don't satisfy
	// the program.
	ErrSatisfaction = errors.New("program satisfaction error")

	// ErrTaproot is returned when the taproot output of a program can't be
	// derived.
	ErrTaproot = errors.New("taproot error")
)
