package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllClients(t *testing.T) {
	b := NewBroadcaster()
	a := b.AddClient()
	c := b.AddClient()

	b.BroadcastLeadCreated(42)

	want := `{"type":"lead_created","leadId":42}`
	assert.Equal(t, want, <-a)
	assert.Equal(t, want, <-c)
}

func TestBroadcasterSkipsRemovedClient(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddClient()
	b.RemoveClient(ch)

	// Removing twice must not panic on the closed channel.
	b.RemoveClient(ch)
	b.BroadcastLeadCreated(1)

	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcasterDropsWhenClientIsFull(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddClient()

	for i := 0; i < 20; i++ {
		b.BroadcastLeadCreated(int64(i))
	}

	// The buffer holds the first 8; the rest were dropped, not blocked on.
	require.Len(t, ch, 8)
	assert.Equal(t, `{"type":"lead_created","leadId":0}`, <-ch)
}
