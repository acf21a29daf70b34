package uuid

import "time"

// nowMillis is indirected for tests that need a fixed timestamp.
var nowMillis = func() int64 { return time.Now().UnixMilli() }
