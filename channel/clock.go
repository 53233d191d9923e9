package channel

import "time"

// nowNanos is the only place ReliableOrdered touches the wall clock,
// isolated so retransmit-timing tests can reach in if needed.
var nowNanos = func() int64 { return time.Now().UnixNano() }
