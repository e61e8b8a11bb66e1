package streamzip

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// readBufSize is the size of each read from a member's content while it is
// compressed, hashed, or buffered. The DEFLATE and streamed-store stages hold
// one such block at a time (spec §4.1, applied to the input side of the
// pipeline); the buffered-store stage keeps the whole content in memory.
const readBufSize = 32 * 1024

// CompressorFactory creates a fresh raw-deflate (no zlib/gzip framing)
// compressor writing to dst, one per member (spec §4.3: "creates a fresh
// raw-deflate compressor"). The default uses klauspost/compress/flate at
// level 9. klauspost/compress/flate always operates in raw mode, so unlike
// zlib there is no separate "window" or "memLevel" knob to configure — its
// encoder picks its own internal tables for the requested level.
type CompressorFactory func(dst io.Writer) *flate.Writer

func defaultCompressorFactory(dst io.Writer) *flate.Writer {
	fw, err := flate.NewWriter(dst, flate.BestCompression)
	if err != nil {
		// BestCompression is always accepted; NewWriter only errors for
		// levels outside [-2, 9].
		panic(err)
	}
	return fw
}

// cappedWriter counts bytes forwarded to next and fails once the count
// would exceed max, implementing the per-call compressed-size cap from
// spec §4.3.
type cappedWriter struct {
	next    io.Writer
	n       uint64
	max     uint64
	failErr error
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	if w.n+uint64(len(p)) > w.max {
		return 0, w.failErr
	}
	n, err := w.next.Write(p)
	w.n += uint64(n)
	return n, err
}

// deflateStage compresses content, writing compressed bytes to dst as they
// are produced, and returns the final (uncompressedSize, compressedSize,
// crc32) triple once content is exhausted (spec §4.3).
func deflateStage(dst io.Writer, content io.Reader, factory CompressorFactory, maxUncompressed, maxCompressed uint64) (uncompressedSize, compressedSize uint64, crc32Sum uint32, err error) {
	counter := &cappedWriter{next: dst, max: maxCompressed, failErr: ErrCompressedSizeOverflow}
	fw := factory(counter)

	crcState := crc32.NewIEEE()
	buf := make([]byte, readBufSize)
	for {
		n, rerr := content.Read(buf)
		if n > 0 {
			uncompressedSize += uint64(n)
			if uncompressedSize > maxUncompressed {
				return 0, 0, 0, ErrUncompressedSizeOverflow
			}
			crcState.Write(buf[:n])
			if _, werr := fw.Write(buf[:n]); werr != nil {
				return 0, 0, 0, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, 0, 0, rerr
		}
	}
	if err := fw.Close(); err != nil {
		return 0, 0, 0, err
	}
	return uncompressedSize, counter.n, crcState.Sum32(), nil
}
