package transport

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_FiresAfterDelay(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	fired := make(chan struct{}, 1)
	s.Schedule(func() { fired <- struct{}{} }, 10*time.Millisecond)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestScheduler_CancelBeforeFirePreventsCallback(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	var fired int32
	h := s.Schedule(func() { atomic.AddInt32(&fired, 1) }, 50*time.Millisecond)
	s.Cancel(h)

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))
}

func TestScheduler_CancelAfterFireIsNoOp(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	done := make(chan struct{})
	h := s.Schedule(func() { close(done) }, 5*time.Millisecond)

	<-done
	assert.NotPanics(t, func() { s.Cancel(h) })
}

func TestScheduler_CloseWaitsForInFlightCallbacks(t *testing.T) {
	s := NewScheduler(nil)

	var ran int32
	s.Schedule(func() {
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
	}, time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	s.Close()

	require.EqualValues(t, 1, atomic.LoadInt32(&ran))
}
