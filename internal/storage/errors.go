package storage

import "errors"

var (
	// ErrNotFound is returned when a referenced row does not exist for
	// the given user.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when an optimistic version check fails,
	// meaning another review was applied to the card concurrently. The
	// caller should re-read and retry once.
	ErrConflict = errors.New("storage: concurrent update conflict")
	// ErrDuplicate is returned when a uniqueness rule is violated, e.g.
	// registering an email twice or adding the same source path twice.
	ErrDuplicate = errors.New("storage: already exists")
)
