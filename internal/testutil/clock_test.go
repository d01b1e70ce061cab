package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_Steps(t *testing.T) {
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	c := NewClock(start)

	assert.Equal(t, start, c.Start())
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, start, c.Start(), "Start is stable across Now calls")
}
