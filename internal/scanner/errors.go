package scanner

import "github.com/pkg/errors"

var (
	// ErrConfigIncomplete is returned by Start when required chat settings
	// are missing. The caller redirects the user to configuration.
	ErrConfigIncomplete = errors.New("scanner: config incomplete")
	// ErrEmptyTriggerSet is returned when a chat has no indicator selected.
	// An empty set must never match every snapshot.
	ErrEmptyTriggerSet = errors.New("scanner: empty trigger set")
	// ErrPairListTooLarge is returned when generation produced more pairs
	// than the configured maximum. The list is persisted but scanning is
	// not auto-started.
	ErrPairListTooLarge = errors.New("scanner: pair list too large")
	// ErrConcurrentPairListUpdate rejects a second generation request for
	// a chat whose previous one is still in flight.
	ErrConcurrentPairListUpdate = errors.New("scanner: pair list update already running")
)
