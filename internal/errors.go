package internal

import "errors"

var (
	ErrMissingColumns    = errors.New("table is missing required columns")
	ErrEmptyHeader       = errors.New("table has no header")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoBlocks          = errors.New("document has no content blocks")
)
