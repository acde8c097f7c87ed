package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionTerminated is returned when an intent reaches a session whose exit node was already activated.
var ErrSessionTerminated = errors.New("session terminated")

// ErrUnknownFunction is returned when an intent names a function with no registered handler.
var ErrUnknownFunction = errors.New("unknown function")

// ErrFunctionNotOffered is returned when an intent names a function the active node does not offer.
var ErrFunctionNotOffered = errors.New("function not offered by active node")

// ErrInvalidArguments is returned when intent arguments violate the function schema.
var ErrInvalidArguments = errors.New("invalid function arguments")

// ErrMissingReference is returned when the domain reference text is not configured.
var ErrMissingReference = errors.New("reference content is not configured")

// ErrEmptyPersona is returned when the assistant role of a node is empty.
var ErrEmptyPersona = errors.New("node persona is empty")

// ErrMissingContent is returned when a node has no task instructions.
var ErrMissingContent = errors.New("node task is missing")
