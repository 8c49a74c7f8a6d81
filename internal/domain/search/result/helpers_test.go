package result

import "time"

var zeroTime time.Time
