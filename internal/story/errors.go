package story

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrCannotGoBack      = errors.New("cannot go back: current node has no parent")
	ErrGenerationStopped = errors.New("generation stopped by user")
	ErrParseFailure      = errors.New("failed to parse generation output")
	ErrTransport         = errors.New("generation service request failed")
	ErrInvalidNode       = errors.New("invalid story node")
)
