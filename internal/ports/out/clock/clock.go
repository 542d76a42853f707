package clock

import "time"

// Clock is the time source for entity timestamps, token validation and idempotency
// records. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
}
