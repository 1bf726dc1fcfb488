package latest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_LatestCommits(t *testing.T) {
	var s Slot
	t1, _ := s.Begin(context.Background())

	applied := false
	require.NoError(t, s.Commit(t1, func() { applied = true }))
	assert.True(t, applied)
	assert.Equal(t, uint64(1), t1.Generation())
}

func TestSlot_SupersededIsStale(t *testing.T) {
	var s Slot
	first, firstCtx := s.Begin(context.Background())
	second, _ := s.Begin(context.Background())

	assert.ErrorIs(t, firstCtx.Err(), context.Canceled, "superseded request is cancelled")
	assert.False(t, s.Current(first))
	assert.True(t, s.Current(second))

	applied := false
	assert.ErrorIs(t, s.Commit(first, func() { applied = true }), ErrStale)
	assert.False(t, applied)
}

func TestSlot_LastRequestedWinsNotLastCompleted(t *testing.T) {
	var s Slot
	var mu sync.Mutex
	var result string

	first, _ := s.Begin(context.Background())
	second, _ := s.Begin(context.Background())

	// The second request completes first.
	require.NoError(t, s.Commit(second, func() {
		mu.Lock()
		result = "second"
		mu.Unlock()
	}))
	// The first completes later and must not overwrite.
	assert.ErrorIs(t, s.Commit(first, func() {
		mu.Lock()
		result = "first"
		mu.Unlock()
	}), ErrStale)

	assert.Equal(t, "second", result)
}

func TestSlot_CommitReleasesContext(t *testing.T) {
	var s Slot
	tk, ctx := s.Begin(context.Background())
	require.NoError(t, s.Commit(tk, nil))
	assert.Error(t, ctx.Err())
}

func TestSlot_CloseCancelsAndRejects(t *testing.T) {
	var s Slot
	tk, ctx := s.Begin(context.Background())

	s.Close()
	s.Close()

	assert.True(t, s.Closed())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.ErrorIs(t, s.Commit(tk, func() { t.Fatal("must not apply after close") }), ErrStale)

	_, lateCtx := s.Begin(context.Background())
	assert.ErrorIs(t, lateCtx.Err(), context.Canceled)
}

func TestSlot_ParentCancellationPropagates(t *testing.T) {
	var s Slot
	parent, cancel := context.WithCancel(context.Background())
	_, ctx := s.Begin(parent)
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context not cancelled with parent")
	}
}

func TestSlot_ConcurrentBegin(t *testing.T) {
	var s Slot
	var wg sync.WaitGroup
	tickets := make([]*Ticket, 50)

	for i := range tickets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i], _ = s.Begin(context.Background())
		}(i)
	}
	wg.Wait()

	var committed int
	for _, tk := range tickets {
		if s.Commit(tk, nil) == nil {
			committed++
		}
	}
	assert.Equal(t, 1, committed)
}

func TestGroup_Close(t *testing.T) {
	a, b := &Slot{}, &Slot{}
	Group{a, b}.Close()
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}
