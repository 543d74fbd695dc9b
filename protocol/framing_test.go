package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSingleCompleteLine(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("HELP\n"))
	assert.Equal(t, []string{"HELP"}, lines)
	assert.Zero(t, d.Pending())
}

func TestFeedSplitAcrossChunks(t *testing.T) {
	var d Decoder
	assert.Empty(t, d.Feed([]byte("ADD-PAH|B")))
	assert.Empty(t, d.Feed([]byte("UY|10")))
	lines := d.Feed([]byte("|20\n"))
	assert.Equal(t, []string{"ADD-PAH|BUY|10|20"}, lines)
	assert.Zero(t, d.Pending())
}

func TestFeedMergedMessages(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("HELP\nREMOVE-3\nBOOK-ALL\n"))
	assert.Equal(t, []string{"HELP", "REMOVE-3", "BOOK-ALL"}, lines)
}

func TestFeedMergedWithTrailingPartial(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("HELP\nBOOK-P"))
	assert.Equal(t, []string{"HELP"}, lines)
	assert.Equal(t, 6, d.Pending())

	lines = d.Feed([]byte("AH\n"))
	assert.Equal(t, []string{"BOOK-PAH"}, lines)
	assert.Zero(t, d.Pending())
}

func TestFeedByteAtATime(t *testing.T) {
	var d Decoder
	var got []string
	for _, c := range []byte("MY ORDERS\nHELP\n") {
		got = append(got, d.Feed([]byte{c})...)
	}
	assert.Equal(t, []string{"MY ORDERS", "HELP"}, got)
}

func TestFeedTrimsCarriageReturn(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("HELP\r\n"))
	assert.Equal(t, []string{"HELP"}, lines)
}

func TestFeedEmptyLine(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("\n"))
	assert.Equal(t, []string{""}, lines)
}

func TestCloseCleanAfterCompleteLines(t *testing.T) {
	var d Decoder
	d.Feed([]byte("HELP\n"))
	assert.NoError(t, d.Close())
}

func TestCloseWithCarryOverIsTruncated(t *testing.T) {
	var d Decoder
	d.Feed([]byte("ADD-PAH|BUY"))
	err := d.Close()
	require.ErrorIs(t, err, ErrTruncated)

	// the partial bytes are discarded, not resurrected
	assert.Zero(t, d.Pending())
	assert.NoError(t, d.Close())
}

func TestMalformedLineDoesNotCorruptCarryOver(t *testing.T) {
	var d Decoder
	lines := d.Feed([]byte("GARBAGE\nBOOK-"))
	assert.Equal(t, []string{"GARBAGE"}, lines)

	lines = d.Feed([]byte("ALL\n"))
	assert.Equal(t, []string{"BOOK-ALL"}, lines)
}
