package cache

import "errors"

// ErrUnknownDriver is returned by New and Use when the driver name is not in
// the registry. A bad driver name is a configuration error: fatal at
// startup, never recoverable at request time.
var ErrUnknownDriver = errors.New("unknown cache driver")
