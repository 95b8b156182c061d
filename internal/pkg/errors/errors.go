package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOracleTimeout marks a reasoning-oracle call that exceeded its deadline.
	ErrOracleTimeout = errors.New("oracle timeout")
	// ErrOracleParse marks a reasoning-oracle response that could not be decoded.
	ErrOracleParse = errors.New("oracle response parse failure")
)
