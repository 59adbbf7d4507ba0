package originhttp

import "github.com/google/uuid"

// genID returns a fresh random identifier used for per-connection trace
// correlation and WebSocket ping nonces. Grounded on the uuid generation
// pattern in gid/base.go: a real random source instead of the
// timestamp-derived names spec.md §9 flags as collision-prone under
// concurrency.
func genID() string {
	return uuid.NewString()
}

// genSpoolName returns a filename for a spooled request body. It is
// unique per call (a v4 UUID has no meaningful collision probability at
// any realistic connection rate), replacing the nanosecond-timestamp
// Base64 naming spec.md §4.3/§9 describes as the source behavior.
func genSpoolName() string {
	return "originhttp-body-" + uuid.NewString()
}
