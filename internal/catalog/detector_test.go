package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDetector_SignalChangesOnAppend(t *testing.T) {
	s := newSeededFileStore(t)
	d := NewFileDetector(s.Path(), nil)

	before, err := d.CurrentSignal(context.Background())
	require.NoError(t, err)
	same, err := d.CurrentSignal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, same)

	_, err = s.Append(context.Background(), NewItem{Name: "Lamp", Category: "Lighting", Price: 40})
	require.NoError(t, err)

	after, err := d.CurrentSignal(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFileDetector_MissingFile(t *testing.T) {
	d := NewFileDetector(filepath.Join(t.TempDir(), "absent.json"), nil)

	_, err := d.CurrentSignal(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestFileDetector_WatchNotifiesOnReplace(t *testing.T) {
	s := newSeededFileStore(t)
	d := NewFileDetector(s.Path(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var calls atomic.Int64
	require.NoError(t, d.Watch(ctx, func() { calls.Add(1) }))

	_, err := s.Append(context.Background(), NewItem{Name: "Lamp", Category: "Lighting", Price: 40})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPollWatch_NotifiesOnSignalChange(t *testing.T) {
	mem := NewMemStore(DefaultItems()...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var calls atomic.Int64
	PollWatch(ctx, mem, 5*time.Millisecond, func() { calls.Add(1) }, nil)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())

	_, err := mem.Append(context.Background(), NewItem{Name: "Lamp", Category: "Lighting", Price: 40})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPollWatch_NonPositiveIntervalUsesDefault(t *testing.T) {
	mem := NewMemStore(DefaultItems()...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	assert.NotPanics(t, func() {
		PollWatch(ctx, mem, 0, func() {}, nil)
	})
}

func TestWatch_PushedInvalidationKeepsCacheFresh(t *testing.T) {
	s := newSeededFileStore(t)
	d := NewFileDetector(s.Path(), nil)
	c := NewStatsCache(s, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, d.Watch(ctx, c.Invalidate))

	st, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, st.Total)

	_, err = s.Append(context.Background(), NewItem{Name: "Lamp", Category: "Lighting", Price: 40})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.entry == nil
	}, 2*time.Second, 10*time.Millisecond)

	st, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, st.Total)
}
