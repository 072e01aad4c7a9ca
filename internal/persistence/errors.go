package persistence

import "errors"

// errNotFound is returned internally for a missing Badger key; callers of
// the exported API observe it only through Manifest's zero-value return.
var errNotFound = errors.New("persistence: key not found")
