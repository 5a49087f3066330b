package snapshot

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthd/internal/book"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	snap := Snapshot{
		Sequence: 77,
		Time:     time.Now().UTC().Truncate(time.Millisecond),
		Bids: []book.BookRecord{
			{Price: 3995.00, Size: 0.5, ID: uuid.New()},
			{Price: 3994.96, Size: 0.3, ID: uuid.New()},
		},
		Asks: []book.BookRecord{
			{Price: 4005.00, Size: 0.4, ID: uuid.New()},
		},
	}
	require.NoError(t, s.Save("BTC-USD", snap))

	got, ok, err := s.Load("BTC-USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestLoadMissingInstrument(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Load("ETH-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save("BTC-USD", Snapshot{Sequence: 1}))
	require.NoError(t, s.Save("BTC-USD", Snapshot{Sequence: 2}))

	got, ok, err := s.Load("BTC-USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Sequence)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save("BTC-USD", Snapshot{Sequence: 1}))
	require.NoError(t, s.Delete("BTC-USD"))

	_, ok, err := s.Load("BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstrumentsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save("BTC-USD", Snapshot{Sequence: 5}))
	require.NoError(t, s.Save("ETH-USD", Snapshot{Sequence: 9}))

	got, ok, err := s.Load("BTC-USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(5), got.Sequence)
}
