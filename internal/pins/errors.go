package pins

import "errors"

// ErrUnknownColor is returned for any colour outside the closed set.
var ErrUnknownColor = errors.New("unknown pin color")

// ErrReservedColor is returned when a user patch action selects a colour
// excluded from the selectable set (ORANGE).
var ErrReservedColor = errors.New("reserved pin color")
