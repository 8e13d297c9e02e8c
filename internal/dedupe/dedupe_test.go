package dedupe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvents_Seen(t *testing.T) {
	ev := NewEvents(time.Minute, 100)

	assert.False(t, ev.Seen("$event1"))
	assert.True(t, ev.Seen("$event1"))
	assert.False(t, ev.Seen("$event2"))
	assert.True(t, ev.Seen("$event2"))
}

func TestEvents_Expiry(t *testing.T) {
	ev := NewEvents(20*time.Millisecond, 100)

	assert.False(t, ev.Seen("$event1"))
	time.Sleep(30 * time.Millisecond)
	assert.False(t, ev.Seen("$event1"), "expired entries are forgotten")
}

func TestEvents_CapacityEviction(t *testing.T) {
	ev := NewEvents(time.Minute, 3)

	for i := 0; i < 4; i++ {
		ev.Seen(fmt.Sprintf("$event%d", i))
	}

	assert.Equal(t, 3, ev.Len())
	assert.False(t, ev.Seen("$event0"), "oldest entry was evicted")
	assert.True(t, ev.Seen("$event3"))
}

func TestEvents_PruneOnInsert(t *testing.T) {
	ev := NewEvents(10*time.Millisecond, 100)

	for i := 0; i < 10; i++ {
		ev.Seen(fmt.Sprintf("$old%d", i))
	}
	time.Sleep(20 * time.Millisecond)

	ev.Seen("$fresh")
	assert.Equal(t, 1, ev.Len(), "expired entries pruned on insert")
}

func TestEvents_Concurrent(t *testing.T) {
	ev := NewEvents(time.Minute, 1000)

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				ev.Seen(fmt.Sprintf("$g%d-e%d", g, i))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	assert.Equal(t, 400, ev.Len())
}
