// Package mono supplies "now" as milliseconds since the Unix epoch, with
// an injectable clock so tests don't depend on wall time.
package mono

import "time"

// Clock returns the current wall time as milliseconds since the Unix
// epoch. Tests replace Now with a deterministic stand-in.
type Clock func() int64

var Now Clock = realNow

func realNow() int64 {
	return time.Now().UnixMilli()
}
