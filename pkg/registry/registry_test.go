package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMember struct {
	name string

	mu    sync.Mutex
	flags Flags
}

func (m *fakeMember) Name() string { return m.name }

func (m *fakeMember) Flags() Flags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags
}

func (m *fakeMember) set(f Flags) {
	m.mu.Lock()
	m.flags = f
	m.mu.Unlock()
}

func add(t *testing.T, r *Registry, name string, flags Flags) *fakeMember {
	t.Helper()
	m, ok := r.Add(name, func() Member {
		return &fakeMember{name: name, flags: flags}
	})
	require.True(t, ok)
	return m.(*fakeMember)
}

func TestAddRejectsDuplicate(t *testing.T) {
	r := New()
	first := add(t, r, "scanner", Listed)

	constructed := false
	m, ok := r.Add("scanner", func() Member {
		constructed = true
		return &fakeMember{name: "scanner"}
	})

	assert.False(t, ok)
	assert.False(t, constructed, "construct must not run on a duplicate add")
	assert.Same(t, first, m.(*fakeMember))
	assert.Equal(t, 1, r.Size())
}

func TestFindAndDel(t *testing.T) {
	r := New()
	add(t, r, "a", Listed)

	m, ok := r.Find("a")
	require.True(t, ok)
	assert.Equal(t, "a", m.Name())

	_, ok = r.Find("b")
	assert.False(t, ok)

	_, ok = r.Del("a")
	assert.True(t, ok)
	assert.Zero(t, r.Size())

	_, ok = r.Del("a")
	assert.False(t, ok)
}

func TestCollectFiltersByFlagIntersection(t *testing.T) {
	r := New()
	add(t, r, "ready", Listed|Ready)
	add(t, r, "probing", Listed|InitWait)
	add(t, r, "halted", Halted)

	ready := r.Collect(Ready)
	require.Len(t, ready, 1)
	assert.Equal(t, "ready", ready[0].Name())

	assert.Len(t, r.Collect(All), 3)
}

func TestReadyTracksInitWait(t *testing.T) {
	r := New()
	assert.True(t, r.Ready(), "empty registry is ready")

	m := add(t, r, "scanner", Listed|InitWait)
	assert.False(t, r.Ready())

	m.set(Listed | Ready)
	assert.True(t, r.Ready())
}

func TestWaitReadyWakesOnBroadcast(t *testing.T) {
	r := New()
	m := add(t, r, "scanner", Listed|InitWait)

	done := make(chan bool, 1)
	go func() {
		done <- r.WaitReady(context.Background(), time.Now().Add(5*time.Second), func() bool { return true })
	}()

	time.Sleep(50 * time.Millisecond)
	m.set(Listed | Ready)
	r.Broadcast()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitReady did not wake on broadcast")
	}
}

func TestWaitReadyTimesOut(t *testing.T) {
	r := New()
	add(t, r, "scanner", Listed|InitWait)

	ok := r.WaitReady(context.Background(), time.Now().Add(50*time.Millisecond), func() bool { return true })
	assert.False(t, ok)
}

func TestPurgeReturnsEveryMember(t *testing.T) {
	r := New()
	add(t, r, "a", Listed)
	add(t, r, "b", Listed)

	purged := r.Purge()
	assert.Len(t, purged, 2)
	assert.Zero(t, r.Size())
}
