package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresAndStops(t *testing.T) {
	var beats atomic.Int64
	s := New(5*time.Millisecond, func(tick uint64) {
		beats.Add(1)
	})

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	got := beats.Load()
	assert.Greater(t, got, int64(2), "several beats in 40ms at 5ms interval")
	assert.Equal(t, uint64(got), s.Tick())

	// A second Stop is harmless.
	s.Stop()
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	s := New(0, nil)
	assert.Equal(t, time.Minute, s.Interval)
}
