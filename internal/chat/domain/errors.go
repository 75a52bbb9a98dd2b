package domain

import "errors"

var (
	// ErrValidation rejected input (empty message, blank identity), never retried
	ErrValidation = errors.New("validation error")
	// ErrNotFound unknown user or no recorded value
	ErrNotFound = errors.New("not found")
	// ErrTransientStore the durable backend could not be reached
	ErrTransientStore = errors.New("message store unavailable")
)
