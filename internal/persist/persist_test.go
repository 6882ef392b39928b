package persist

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSaver(debounce time.Duration, save func() error) (*Saver, *clock) {
	c := &clock{t: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
	s := NewSaver(debounce, save)
	s.now = c.now
	return s, c
}

func TestSaverDebouncesBursts(t *testing.T) {
	writes := 0
	s, c := newTestSaver(5*time.Second, func() error { writes++; return nil })

	s.Queue()
	c.advance(3 * time.Second)
	s.Queue()
	c.advance(3 * time.Second)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 0, writes, "second change pushes the deadline out")

	c.advance(2 * time.Second)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 1, writes)
	assert.False(t, s.Pending())

	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 1, writes)
}

func TestSaverMinimumDebounce(t *testing.T) {
	writes := 0
	s, c := newTestSaver(0, func() error { writes++; return nil })

	s.Queue()
	c.advance(100 * time.Millisecond)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 0, writes)

	c.advance(150 * time.Millisecond)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 1, writes)
}

func TestSaverRetriesAfterFailure(t *testing.T) {
	fail := true
	writes := 0
	s, c := newTestSaver(time.Second, func() error {
		writes++
		if fail {
			return errors.New("database is locked")
		}
		return nil
	})

	s.Queue()
	c.advance(time.Second)
	assert.Error(t, s.FlushIfDue())
	assert.True(t, s.Pending())

	c.advance(500 * time.Millisecond)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 1, writes, "retry waits a full second")

	fail = false
	c.advance(500 * time.Millisecond)
	require.NoError(t, s.FlushIfDue())
	assert.Equal(t, 2, writes)
	assert.False(t, s.Pending())
}

func TestSaverFlushIgnoresDeadline(t *testing.T) {
	writes := 0
	s, _ := newTestSaver(time.Minute, func() error { writes++; return nil })

	require.NoError(t, s.Flush())
	assert.Equal(t, 0, writes)

	s.Queue()
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, writes)
}
