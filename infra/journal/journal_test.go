package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, j.Append("ORDER PLACED: Parker (PAH) BUY 25 @ 4.95"))
	require.NoError(t, j.Append("ORDER FILLED: Parker (PAH) SELL 10 @ 5"))
	require.NoError(t, j.Close())

	f, err := os.Open(filepath.Join(dir, activeSegment))
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	require.NoError(t, ReadSegment(f, func(ts int64, line string) error {
		assert.NotZero(t, ts)
		lines = append(lines, line)
		return nil
	}))
	assert.Equal(t, []string{
		"ORDER PLACED: Parker (PAH) BUY 25 @ 4.95",
		"ORDER FILLED: Parker (PAH) SELL 10 @ 5",
	}, lines)
}

func TestSizeRotation(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir, SegmentSize: 32})
	require.NoError(t, err)

	// each record is well over 32 bytes, so every append rotates
	require.NoError(t, j.Append("ORDER PLACED: Parker (PAH) BUY 25 @ 4.95"))
	require.NoError(t, j.Append("ORDER REMOVED: Parker (PAH) BUY 25 @ 4.95"))
	require.NoError(t, j.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var sealed int
	for _, e := range entries {
		if e.Name() != activeSegment {
			sealed++
		}
	}
	assert.GreaterOrEqual(t, sealed, 1)
}

func TestReadSegmentCorruptRecord(t *testing.T) {
	data := encodeRecord(42, "ORDER PLACED: Jake (JJG) SELL 5 @ 9")
	data[len(data)-1] ^= 0xFF

	err := ReadSegment(bytes.NewReader(data), func(int64, string) error { return nil })
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestReadSegmentEmpty(t *testing.T) {
	err := ReadSegment(bytes.NewReader(nil), func(int64, string) error { return nil })
	assert.NoError(t, err)
}

func TestSendEventDelegatesToAppend(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, j.SendEvent("WELCOME TO THE MARKET DATA FEED"))
	require.NoError(t, j.Close())

	f, err := os.Open(filepath.Join(dir, activeSegment))
	require.NoError(t, err)
	defer f.Close()

	var got []string
	require.NoError(t, ReadSegment(f, func(_ int64, line string) error {
		got = append(got, line)
		return nil
	}))
	assert.Equal(t, []string{"WELCOME TO THE MARKET DATA FEED"}, got)
}
