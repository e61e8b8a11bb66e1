package streamzip

import (
	"crypto/rand"
	"io"
	"os"
	"strings"
	"time"
)

// Member is one entry to add to the archive: its name, modification time,
// POSIX mode bits, the Method selecting its output strategy, and its
// content. A directory is any Member whose Name ends in "/"; its Content
// must be nil (spec §4.7's "identified solely by a trailing '/'").
type Member struct {
	Name     string
	Modified time.Time
	Mode     os.FileMode
	Method   Method
	Content  io.Reader
}

// Config configures a Writer. The zero value is usable: ChunkSize defaults
// to 65536, CompressorFactory to raw DEFLATE at the best compression level,
// and CryptoRandom to crypto/rand.Reader. Extended timestamps are on by
// default; set DisableExtendedTimestamps to turn them off.
type Config struct {
	// ChunkSize is the fixed block size the re-chunker emits to the sink,
	// except possibly the final block (spec §4.1).
	ChunkSize int

	// CompressorFactory creates a fresh raw-deflate compressor per Deflate
	// member. Defaults to klauspost/compress/flate at BestCompression.
	CompressorFactory CompressorFactory

	// DisableExtendedTimestamps turns off the "UT" extra field that
	// otherwise accompanies every member (spec §4.7).
	DisableExtendedTimestamps bool

	// Password, if non-empty, enables WinZip AE-2 encryption for every
	// member (spec §4.6).
	Password string

	// CryptoRandom is the source of the salt used to derive each member's
	// encryption keys. Defaults to crypto/rand.Reader.
	CryptoRandom io.Reader
}

// Writer emits a ZIP archive to sink one Member at a time. It is single-use:
// call Add for every member in order, then Close exactly once.
type Writer struct {
	cfg   Config
	chunk *chunker
	off   *offsetWriter

	cdEntries     []cdEntry
	cdTotalBytes  uint64
	needsZip64End bool
	closed        bool
}

// NewWriter returns a Writer that re-chunks and forwards every byte it
// emits to sink (spec §4.1, §4.2: re-chunker wraps the offset tracker,
// which wraps the per-member emitters).
func NewWriter(sink io.Writer, cfg Config) *Writer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 65536
	}
	if cfg.CompressorFactory == nil {
		cfg.CompressorFactory = defaultCompressorFactory
	}
	if cfg.CryptoRandom == nil {
		cfg.CryptoRandom = rand.Reader
	}
	chunk := newChunker(sink, cfg.ChunkSize)
	return &Writer{
		cfg:   cfg,
		chunk: chunk,
		off:   &offsetWriter{next: chunk},
	}
}

func isDirName(name string) bool {
	return strings.HasSuffix(name, "/")
}

// Add writes one member's local header, content, and (for Deflate kinds)
// data descriptor, and appends its central directory record. Members must
// be added in the order they are to appear in the archive.
func (w *Writer) Add(m Member) error {
	if w.closed {
		return ErrWriterClosed
	}

	nameBytes := []byte(m.Name)
	if len(nameBytes) > uint16max {
		return ErrNameLengthOverflow
	}
	if isDirName(m.Name) && m.Content != nil {
		return ErrDirectoryHasContent
	}

	resolved := m.Method.resolve(w.off.offset, w.cfg.CompressorFactory)
	zip64 := resolved.kind.isZip64()
	maxSize := uint64(uint32max)
	if zip64 {
		maxSize = ^uint64(0)
	}
	encrypted := w.cfg.Password != ""

	modDate, modTime := timeToMSDOS(m.Modified)

	flags := uint16(flagUTF8)
	if resolved.kind.isDeflate() {
		flags |= flagDataDescriptor
	}
	if encrypted {
		flags |= flagAES
	}

	actualMethod := uint16(methodStore)
	if resolved.kind.isDeflate() {
		actualMethod = methodDeflate
	}
	headerMethod := actualMethod
	if encrypted {
		headerMethod = methodAES
	}

	versionNeeded := uint16(versionNeeded20)
	if zip64 {
		versionNeeded = versionNeeded45
	}

	extattrs := externalAttrs(m.Mode, m.Name)

	fileOffset := w.off.offset

	var uncompressedSize, compressedSize uint64
	var crc32Sum uint32

	switch {
	case resolved.kind.isBuffered():
		data, size, crc, err := bufferStoreContent(m.Content, maxSize)
		if err != nil {
			return err
		}
		uncompressedSize = size
		compressedSize = size
		crc32Sum = crc

		localExtra := w.localExtra(zip64, uncompressedSize, compressedSize+encryptedOverhead(encrypted), m, actualMethod, encrypted)
		if _, err := writeLocalHeader(w.off, localHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            headerCRC(crc32Sum, encrypted),
			compressedSize:   compressedSize + encryptedOverhead(encrypted),
			uncompressedSize: uncompressedSize,
			zip64:            zip64,
		}, nameBytes, localExtra); err != nil {
			return err
		}

		dst, encWriter, err := w.bodyWriter(encrypted)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if _, err := dst.Write(data); err != nil {
				return err
			}
		}
		if encWriter != nil {
			if err := encWriter.Close(); err != nil {
				return err
			}
			compressedSize += aesOverheadBytes
		}

		centralExtra := w.centralExtra(zip64, uncompressedSize, compressedSize, fileOffset, m, actualMethod, encrypted)
		entry := buildCentralDirectoryEntry(centralHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            headerCRC(crc32Sum, encrypted),
			compressedSize:   compressedSize,
			uncompressedSize: uncompressedSize,
			externalAttrs:    extattrs,
			fileOffset:       fileOffset,
			zip64:            zip64,
		}, nameBytes, centralExtra)
		w.addEntry(entry)

	case resolved.kind.isStreamed():
		uncompressedSize = resolved.uncompressedSize
		compressedSize = resolved.uncompressedSize
		crc32Sum = resolved.crc32

		localExtra := w.localExtra(zip64, uncompressedSize, compressedSize+encryptedOverhead(encrypted), m, actualMethod, encrypted)
		if _, err := writeLocalHeader(w.off, localHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            headerCRC(crc32Sum, encrypted),
			compressedSize:   compressedSize + encryptedOverhead(encrypted),
			uncompressedSize: uncompressedSize,
			zip64:            zip64,
		}, nameBytes, localExtra); err != nil {
			return err
		}

		dst, encWriter, err := w.bodyWriter(encrypted)
		if err != nil {
			return err
		}
		if err := streamStoreContent(dst, m.Content, resolved.uncompressedSize, resolved.crc32, maxSize); err != nil {
			return err
		}
		if encWriter != nil {
			if err := encWriter.Close(); err != nil {
				return err
			}
			compressedSize += aesOverheadBytes
		}

		centralExtra := w.centralExtra(zip64, uncompressedSize, compressedSize, fileOffset, m, actualMethod, encrypted)
		entry := buildCentralDirectoryEntry(centralHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            headerCRC(crc32Sum, encrypted),
			compressedSize:   compressedSize,
			uncompressedSize: uncompressedSize,
			externalAttrs:    extattrs,
			fileOffset:       fileOffset,
			zip64:            zip64,
		}, nameBytes, centralExtra)
		w.addEntry(entry)

	default: // Deflate32, Deflate64
		localExtra := w.localExtra(zip64, 0, 0, m, actualMethod, encrypted)
		if _, err := writeLocalHeader(w.off, localHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            0,
			compressedSize:   0,
			uncompressedSize: 0,
			zip64:            zip64,
		}, nameBytes, localExtra); err != nil {
			return err
		}

		dst, encWriter, err := w.bodyWriter(encrypted)
		if err != nil {
			return err
		}
		usize, csize, crc, err := deflateStage(dst, m.Content, resolved.compressorFactory, maxSize, maxSize)
		if err != nil {
			return err
		}
		uncompressedSize, compressedSize, crc32Sum = usize, csize, crc
		if encWriter != nil {
			if err := encWriter.Close(); err != nil {
				return err
			}
			compressedSize += aesOverheadBytes
		}

		if err := writeDataDescriptor(w.off, headerCRC(crc32Sum, encrypted), compressedSize, uncompressedSize, zip64); err != nil {
			return err
		}

		centralExtra := w.centralExtra(zip64, uncompressedSize, compressedSize, fileOffset, m, actualMethod, encrypted)
		entry := buildCentralDirectoryEntry(centralHeaderFields{
			versionNeeded:    versionNeeded,
			flags:            flags,
			method:           headerMethod,
			modDate:          modDate,
			modTime:          modTime,
			crc32:            headerCRC(crc32Sum, encrypted),
			compressedSize:   compressedSize,
			uncompressedSize: uncompressedSize,
			externalAttrs:    extattrs,
			fileOffset:       fileOffset,
			zip64:            zip64,
		}, nameBytes, centralExtra)
		w.addEntry(entry)
	}

	if resolved.kind.isZip64() {
		w.needsZip64End = true
	}
	if resolved.autoUpgrade && (w.off.offset > uint32max || uint64(len(w.cdEntries)) > uint16max) {
		w.needsZip64End = true
	}

	return w.validateBounds()
}

// bodyWriter returns the destination a member's body should be written to:
// w.off directly, or, when encrypted, an aesEncryptWriter that has just
// emitted its salt and password verifier to w.off (spec §4.6 steps 1-2,
// which belong to the start of the data region, immediately after the
// local header and its extra field).
func (w *Writer) bodyWriter(encrypted bool) (io.Writer, *aesEncryptWriter, error) {
	if !encrypted {
		return w.off, nil, nil
	}
	enc, err := newAESEncryptWriter(w.off, w.cfg.Password, w.cfg.CryptoRandom)
	if err != nil {
		return nil, nil, err
	}
	return enc, enc, nil
}

func (w *Writer) addEntry(e cdEntry) {
	w.cdEntries = append(w.cdEntries, e)
	w.cdTotalBytes += e.size()
}

// headerCRC is the CRC32 value to place in a ZIP structural field: the real
// checksum, or zero when AE-2 encryption suppresses it (spec §4.6).
func headerCRC(crc32Sum uint32, encrypted bool) uint32 {
	if encrypted {
		return 0
	}
	return crc32Sum
}

func encryptedOverhead(encrypted bool) uint64 {
	if encrypted {
		return aesOverheadBytes
	}
	return 0
}

// localExtra assembles a local header's extra field in the fixed order the
// format requires: ZIP64 local extra, then UNIX timestamp, then AES (spec
// §4.7 "Ordering and tie-breaks").
func (w *Writer) localExtra(zip64 bool, uncompressedSize, compressedSize uint64, m Member, actualMethod uint16, encrypted bool) []byte {
	var extra []byte
	if zip64 {
		extra = append(extra, zip64LocalExtra(uncompressedSize, compressedSize)...)
	}
	if !w.cfg.DisableExtendedTimestamps {
		extra = append(extra, unixTimestampExtra(m.Modified.Unix())...)
	}
	if encrypted {
		extra = append(extra, aesExtra(actualMethod)...)
	}
	return extra
}

// centralExtra mirrors localExtra for the central directory record.
func (w *Writer) centralExtra(zip64 bool, uncompressedSize, compressedSize, fileOffset uint64, m Member, actualMethod uint16, encrypted bool) []byte {
	var extra []byte
	if zip64 {
		extra = append(extra, zip64CentralExtra(uncompressedSize, compressedSize, fileOffset)...)
	}
	if !w.cfg.DisableExtendedTimestamps {
		extra = append(extra, unixTimestampExtra(m.Modified.Unix())...)
	}
	if encrypted {
		extra = append(extra, aesExtra(actualMethod)...)
	}
	return extra
}

// validateBounds enforces spec §4.9's ValidateBounds state, run after every
// member is fully accumulated.
func (w *Writer) validateBounds() error {
	offsetLimit := uint64(uint32max)
	entriesLimit := uint64(uint16max)
	cdBytesLimit := uint64(uint32max)
	if w.needsZip64End {
		offsetLimit = ^uint64(0)
		entriesLimit = ^uint64(0)
		cdBytesLimit = ^uint64(0)
	}
	if w.off.offset > offsetLimit {
		return ErrOffsetOverflow
	}
	if uint64(len(w.cdEntries)) > entriesLimit {
		return ErrCentralDirectoryEntriesOverflow
	}
	if w.cdTotalBytes > cdBytesLimit {
		return ErrCentralDirectorySizeOverflow
	}
	if sum := w.off.offset + w.cdTotalBytes; sum < w.off.offset {
		return ErrCentralDirectorySizeOverflow
	}
	return nil
}

// Close writes the central directory and the classic or ZIP64
// end-of-central-directory terminator (spec §4.8), then flushes any
// partially-filled final chunk to the sink.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	if err := writeCentralDirectory(w.off, w.cdEntries, w.needsZip64End); err != nil {
		return err
	}
	return w.chunk.Flush()
}
