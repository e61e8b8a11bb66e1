package streamzip

import (
	"bytes"
	"hash/crc32"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeflateStageRoundTrips(t *testing.T) {
	var out bytes.Buffer
	content := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)

	usize, csize, crc, err := deflateStage(&out, strings.NewReader(content), defaultCompressorFactory, uint32max, uint32max)
	require.NoError(t, err)
	assert.EqualValues(t, len(content), usize)
	assert.EqualValues(t, out.Len(), csize)
	assert.Equal(t, crc32.ChecksumIEEE([]byte(content)), crc)

	fr := flate.NewReader(bytes.NewReader(out.Bytes()))
	defer fr.Close()
	decompressed, err := io.ReadAll(fr)
	require.NoError(t, err)
	assert.Equal(t, content, string(decompressed))
}

func TestDeflateStageUncompressedOverflow(t *testing.T) {
	var out bytes.Buffer
	_, _, _, err := deflateStage(&out, strings.NewReader("0123456789"), defaultCompressorFactory, 5, uint32max)
	assert.ErrorIs(t, err, ErrUncompressedSizeOverflow)
}

func TestDeflateStageCompressedOverflow(t *testing.T) {
	var out bytes.Buffer
	// Random-looking input defeats DEFLATE's matcher, so compressed size
	// tracks uncompressed size closely enough to blow a tiny cap.
	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i * 2654435761 >> 16)
	}
	_, _, _, err := deflateStage(&out, bytes.NewReader(content), defaultCompressorFactory, uint32max, 8)
	assert.ErrorIs(t, err, ErrCompressedSizeOverflow)
}

func TestBufferStoreContentNilIsEmpty(t *testing.T) {
	data, size, crc, err := bufferStoreContent(nil, uint32max)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.EqualValues(t, 0, size)
	assert.Equal(t, crc32.ChecksumIEEE(nil), crc)
}

func TestBufferStoreContentOverflow(t *testing.T) {
	_, _, _, err := bufferStoreContent(strings.NewReader("0123456789"), 5)
	assert.ErrorIs(t, err, ErrUncompressedSizeOverflow)
}

func TestStreamStoreContentChecksCRCBeforeSize(t *testing.T) {
	content := []byte("abcdefgh")
	var out bytes.Buffer

	err := streamStoreContent(&out, bytes.NewReader(content), uint64(len(content))+1, 0xdeadbeef, uint32max)
	assert.ErrorIs(t, err, ErrCRC32Mismatch, "a wrong CRC must be reported even when the size is also wrong")
}

func TestStreamStoreContentSizeMismatch(t *testing.T) {
	content := []byte("abcdefgh")
	var out bytes.Buffer

	err := streamStoreContent(&out, bytes.NewReader(content), uint64(len(content))+1, crc32.ChecksumIEEE(content), uint32max)
	assert.ErrorIs(t, err, ErrUncompressedSizeMismatch)
}

func TestStreamStoreContentSuccess(t *testing.T) {
	content := []byte("abcdefgh")
	var out bytes.Buffer

	err := streamStoreContent(&out, bytes.NewReader(content), uint64(len(content)), crc32.ChecksumIEEE(content), uint32max)
	require.NoError(t, err)
	assert.Equal(t, content, out.Bytes())
}
