package streamzip

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerFixedSizeBlocks(t *testing.T) {
	var sink bytes.Buffer
	c := newChunker(&sink, 4)

	n, err := c.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "abcdefgh", sink.String())
}

func TestChunkerPartialWritesAccumulate(t *testing.T) {
	var sink bytes.Buffer
	c := newChunker(&sink, 4)

	_, err := c.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Empty(t, sink.String(), "a partial block must not be forwarded early")

	_, err = c.Write([]byte("cd"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", sink.String())

	_, err = c.Write([]byte("e"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", sink.String(), "a new partial block must not be forwarded before it fills")

	require.NoError(t, c.Flush())
	assert.Equal(t, "abcde", sink.String())
}

func TestChunkerFlushNoOpWhenEmpty(t *testing.T) {
	var sink bytes.Buffer
	c := newChunker(&sink, 4)
	require.NoError(t, c.Flush())
	assert.Empty(t, sink.String())
}

func TestChunkerSpanningWriteAcrossManyBlocks(t *testing.T) {
	var sink bytes.Buffer
	c := newChunker(&sink, 3)

	_, err := c.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, "012345678", sink.String())

	require.NoError(t, c.Flush())
	assert.Equal(t, "0123456789", sink.String())
}

func TestOffsetWriterTracksBytesForwarded(t *testing.T) {
	var sink bytes.Buffer
	ow := &offsetWriter{next: &sink}

	n, err := ow.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.EqualValues(t, 5, ow.offset)

	_, err = ow.Write([]byte(" world"))
	require.NoError(t, err)
	assert.EqualValues(t, 11, ow.offset)
}
