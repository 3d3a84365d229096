package testutils

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Genesis is the time mock clocks start at.
var Genesis = time.Unix(1_700_000_000, 0)

// NewMockClock returns a mock clock set to Genesis.
func NewMockClock() *clock.Mock {
	c := clock.NewMock()
	c.Set(Genesis)

	return c
}

// Unix returns the unix seconds of Genesis advanced by d.
func Unix(d time.Duration) uint64 {
	return uint64(Genesis.Add(d).Unix())
}
