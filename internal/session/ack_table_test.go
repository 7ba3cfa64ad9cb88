package session

import (
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckTable_ResolveInvokesCallbackOnce(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()
	table := NewAckTable(sched, nil)

	calls := make(chan bool, 2)
	table.Register(1, time.Second, func(timedOut bool, reply *protocol.Envelope) {
		calls <- timedOut
	})

	reply := &protocol.Envelope{Cmd: protocol.CmdDone}
	assert.True(t, table.Resolve(1, reply))
	assert.False(t, table.Resolve(1, reply), "second resolve of the same msgid must be a no-op")

	select {
	case timedOut := <-calls:
		assert.False(t, timedOut)
	case <-time.After(time.Second):
		t.Fatal("callback never invoked")
	}
	assert.Equal(t, 0, table.Len())
}

func TestAckTable_ExpiresOnTimeout(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()
	table := NewAckTable(sched, nil)

	calls := make(chan bool, 1)
	table.Register(2, 10*time.Millisecond, func(timedOut bool, reply *protocol.Envelope) {
		calls <- timedOut
	})

	select {
	case timedOut := <-calls:
		assert.True(t, timedOut)
	case <-time.After(time.Second):
		t.Fatal("timeout callback never fired")
	}
}

func TestAckTable_FlushAllResolvesEveryEntryWithTimeout(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()
	table := NewAckTable(sched, nil)

	results := make(chan bool, 3)
	for i := int64(1); i <= 3; i++ {
		table.Register(i, time.Minute, func(timedOut bool, reply *protocol.Envelope) {
			results <- timedOut
		})
	}

	table.FlushAll()
	require.Equal(t, 0, table.Len())

	for i := 0; i < 3; i++ {
		select {
		case timedOut := <-results:
			assert.True(t, timedOut)
		case <-time.After(time.Second):
			t.Fatal("flush did not resolve all entries")
		}
	}
}
