package domain

import "errors"

var (
	// ErrNoInput means no source file matched the configured pattern.
	ErrNoInput = errors.New("no input files found")

	// ErrDateColumnNotFound means none of the date candidates exist in a header.
	ErrDateColumnNotFound = errors.New("date column not found")

	// ErrTotalParseFailure means every row of a non-empty batch had an unparseable date.
	ErrTotalParseFailure = errors.New("no row has a parseable date")
)
