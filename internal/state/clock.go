package state

import "time"

// nowUTC is replaced in tests that need deterministic ordering.
var nowUTC = func() time.Time { return time.Now().UTC() }
