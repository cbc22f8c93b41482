package log_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

func TestNewCircularBuffer(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		capacity     int
		wantCapacity int
	}{
		"positive capacity": {
			capacity:     10,
			wantCapacity: 10,
		},
		"zero capacity defaults": {
			capacity:     0,
			wantCapacity: 100,
		},
		"negative capacity defaults": {
			capacity:     -5,
			wantCapacity: 100,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cb := log.NewCircularBuffer(tc.capacity)

			assert.Equal(t, tc.wantCapacity, cb.Capacity())
			assert.Equal(t, 0, cb.Size())
			assert.False(t, cb.IsFull())
		})
	}
}

func TestCircularBuffer_Write(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(3)

	n, err := cb.Write([]byte("entry1"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 1, cb.Size())

	// Empty writes are ignored.
	n, err = cb.Write([]byte{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, cb.Size())

	_, err = cb.Write([]byte("entry2"))
	require.NoError(t, err)
	_, err = cb.Write([]byte("entry3"))
	require.NoError(t, err)
	assert.Equal(t, 3, cb.Size())
	assert.True(t, cb.IsFull())

	// Overwrites the oldest entry once full.
	_, err = cb.Write([]byte("entry4"))
	require.NoError(t, err)
	assert.Equal(t, 3, cb.Size())
}

func TestCircularBuffer_Entries(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(3)
	assert.Nil(t, cb.Entries())

	for _, s := range []string{"first", "second", "third", "fourth", "fifth"} {
		_, err := cb.Write([]byte(s))
		require.NoError(t, err)
	}

	entries := cb.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "third", string(entries[0]))
	assert.Equal(t, "fourth", string(entries[1]))
	assert.Equal(t, "fifth", string(entries[2]))

	// Returned entries are copies.
	entries[0][0] = 'X'
	assert.Equal(t, "third", string(cb.Entries()[0]))
}

func TestCircularBuffer_Clear(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(3)

	_, err := cb.Write([]byte("entry1"))
	require.NoError(t, err)
	_, err = cb.Write([]byte("entry2"))
	require.NoError(t, err)
	require.Equal(t, 2, cb.Size())

	cb.Clear()

	assert.Equal(t, 0, cb.Size())
	assert.Nil(t, cb.Entries())
}

func TestCircularBuffer_WriteTo(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(3)

	var buf bytes.Buffer

	n, err := cb.WriteTo(&buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, s := range []string{"line1\n", "line2\n", "line3\n"} {
		_, err = cb.Write([]byte(s))
		require.NoError(t, err)
	}

	n, err = cb.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)
	assert.Equal(t, "line1\nline2\nline3\n", buf.String())
}

func TestCircularBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(100)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				_, err := cb.Write([]byte(strings.Repeat("x", 10)))
				assert.NoError(t, err)
			}
		}()
	}

	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 20 {
				cb.Entries()
				cb.Size()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, cb.Size())
}
