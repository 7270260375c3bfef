package thimble

import (
	"time"
)

// ResolveHook observes every Get, including the ones producers issue through
// their Resolution.
type ResolveHook func(key Key, duration time.Duration, err error)
