package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the payloads of remote writes.
type recorder struct {
	mu     sync.Mutex
	writes []string
	fail   *envelope.Error
}

func (r *recorder) write(payload string) Write {
	return func(context.Context) *envelope.Error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.writes = append(r.writes, payload)
		return r.fail
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

func newStore(initial map[string]string) *store.Store[map[string]string] {
	s := store.New(func(context.Context) envelope.Result[map[string]string] {
		return envelope.Success(map[string]string{"d1": "server"})
	})
	s.Set(initial)
	return s
}

func setContent(s *store.Store[map[string]string], key, v string) func() {
	return func() {
		s.Update(func(m map[string]string) map[string]string {
			out := make(map[string]string, len(m))
			for k, old := range m {
				out[k] = old
			}
			out[key] = v
			return out
		})
	}
}

func TestDebounced_CoalescesBurst(t *testing.T) {
	// Arrange
	s := newStore(map[string]string{"d1": ""})
	c := New(s, WithWindow(30*time.Millisecond))
	defer c.Close()
	rec := &recorder{}

	// Act
	for _, text := range []string{"Our", "Our mission", "Our mission is"} {
		require.NoError(t, c.Debounced("d1", setContent(s, "d1", text), rec.write(text)))
		time.Sleep(5 * time.Millisecond)
	}

	// Assert
	v, _ := s.Value()
	assert.Equal(t, "Our mission is", v["d1"])
	assert.Equal(t, Unsaved, c.Status("d1"))
	assert.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"Our mission is"}, rec.got())
	assert.Equal(t, Saved, c.Status("d1"))
}

func TestDebounced_KeysAreIndependent(t *testing.T) {
	s := newStore(map[string]string{})
	c := New(s, WithWindow(20*time.Millisecond))
	defer c.Close()
	rec := &recorder{}

	require.NoError(t, c.Debounced("d1", setContent(s, "d1", "a"), rec.write("d1:a")))
	require.NoError(t, c.Debounced("d2", setContent(s, "d2", "b"), rec.write("d2:b")))

	assert.Eventually(t, func() bool { return len(rec.got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"d1:a", "d2:b"}, rec.got())
}

func TestImmediate_FailureKeepsEditAndMarksOutOfSync(t *testing.T) {
	s := newStore(map[string]string{"d1": "Budget"})
	c := New(s)
	defer c.Close()
	rec := &recorder{fail: envelope.Database(errors.New("connection reset"))}

	err := c.Immediate(context.Background(), "d1", setContent(s, "d1", "Budget 2025"), rec.write("Budget 2025"))

	require.Error(t, err)
	assert.True(t, envelope.IsCode(err, envelope.CodeDatabase))
	v, _ := s.Value()
	assert.Equal(t, "Budget 2025", v["d1"])
	assert.True(t, s.OutOfSync("d1"))
	assert.False(t, s.Pending("d1"))
	assert.Equal(t, Unsaved, c.Status("d1"))

	// An explicit refetch reconciles with the server.
	require.Nil(t, s.Refetch(context.Background()))
	assert.False(t, s.OutOfSync("d1"))
	v, _ = s.Value()
	assert.Equal(t, "server", v["d1"])
}

func TestImmediate_StaleResponseIsDiscarded(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	c := New(s)
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context) *envelope.Error {
		close(started)
		<-release
		return envelope.Database(errors.New("timeout"))
	}
	fast := func(context.Context) *envelope.Error { return nil }

	done := make(chan error)
	go func() { done <- c.Immediate(context.Background(), "d1", nil, slow) }()
	<-started

	require.NoError(t, c.Immediate(context.Background(), "d1", nil, fast))
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, s.OutOfSync("d1"))
	assert.False(t, s.Pending("d1"))
	assert.Equal(t, Saved, c.Status("d1"))
}

func TestFlush_SendsPendingWrites(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	c := New(s, WithWindow(time.Hour))
	defer c.Close()
	rec := &recorder{}

	require.NoError(t, c.Debounced("d1", setContent(s, "d1", "draft"), rec.write("draft")))
	require.Empty(t, rec.got())

	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, []string{"draft"}, rec.got())
	assert.Equal(t, Saved, c.Status("d1"))
}

func TestFlush_ReturnsFailures(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	c := New(s, WithWindow(time.Hour))
	defer c.Close()
	rec := &recorder{fail: envelope.NotFound("Document not found")}

	require.NoError(t, c.Debounced("d1", nil, rec.write("draft")))
	err := c.Flush(context.Background())

	require.Error(t, err)
	assert.True(t, envelope.IsCode(err, envelope.CodeNotFound))
	assert.True(t, s.OutOfSync("d1"))
}

func TestStatusTransitions(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	var (
		mu   sync.Mutex
		seen []Status
	)
	c := New(s, WithWindow(time.Hour), OnStatus(func(key string, st Status) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	}))
	defer c.Close()
	rec := &recorder{}

	require.NoError(t, c.Debounced("d1", nil, rec.write("x")))
	require.NoError(t, c.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{Unsaved, Saving, Saved}, seen)
}

func TestReorder_FailureForcesRefetch(t *testing.T) {
	s := newStore(map[string]string{"d1": "local"})
	c := New(s)
	defer c.Close()
	fail := func(context.Context) *envelope.Error { return envelope.Validation("order must list every document") }

	err := c.Reorder(context.Background(), "reorder", setContent(s, "d1", "optimistic"), fail, s.Refetch)

	require.Error(t, err)
	v, _ := s.Value()
	assert.Equal(t, "server", v["d1"])
}

func TestClose(t *testing.T) {
	s := newStore(map[string]string{})
	c := New(s, WithWindow(10*time.Millisecond))
	rec := &recorder{}

	require.NoError(t, c.Debounced("d1", nil, rec.write("dropped")))
	c.Close()
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, rec.got())
	assert.ErrorIs(t, c.Debounced("d1", nil, rec.write("x")), ErrClosed)
	assert.ErrorIs(t, c.Immediate(context.Background(), "d1", nil, rec.write("x")), ErrClosed)
}

func TestDebounced_AfterCloseLeavesCacheAlone(t *testing.T) {
	s := newStore(map[string]string{"d1": "kept"})
	c := New(s)
	c.Close()

	err := c.Debounced("d1", setContent(s, "d1", "lost"), (&recorder{}).write("lost"))

	assert.ErrorIs(t, err, ErrClosed)
	v, _ := s.Value()
	assert.Equal(t, "kept", v["d1"])
}

func TestCancel_DropsPendingWrite(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	c := New(s, WithWindow(10*time.Millisecond))
	defer c.Close()
	rec := &recorder{}

	require.NoError(t, c.Debounced("d1", setContent(s, "d1", "draft"), rec.write("draft")))
	require.NoError(t, c.Debounced("d2", nil, rec.write("other")))
	c.Cancel("d1")

	assert.Equal(t, Saved, c.Status("d1"))
	assert.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"other"}, rec.got())
	assert.False(t, s.OutOfSync("d1"))
}

func TestCancel_InFlightWriteIsSuperseded(t *testing.T) {
	s := newStore(map[string]string{"d1": ""})
	c := New(s)
	defer c.Close()
	started := make(chan struct{})
	release := make(chan struct{})
	write := func(context.Context) *envelope.Error {
		close(started)
		<-release
		return envelope.NotFound("Document not found")
	}

	errc := make(chan error, 1)
	go func() { errc <- c.Immediate(context.Background(), "d1", nil, write) }()
	<-started
	c.Cancel("d1")
	close(release)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, Saved, c.Status("d1"))
	assert.False(t, s.OutOfSync("d1"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "saved", Saved.String())
	assert.Equal(t, "unsaved", Unsaved.String())
	assert.Equal(t, "saving", Saving.String())
}
