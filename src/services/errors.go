package services

import "errors"

var (
	// ErrParsingFailed wraps any parser-level failure (bad header, hard row
	// error). Nothing has been written when it is returned.
	ErrParsingFailed = errors.New("error parsing statement file")
	// ErrInvalidState means a commit or discard was attempted on a draft
	// that is no longer pending.
	ErrInvalidState = errors.New("draft is not pending")
	// ErrNotFound covers unknown account/category/draft/row references.
	ErrNotFound = errors.New("not found")
)
