package streamzip

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// kind identifies one of the six per-member output strategies (spec §3, §4.7).
type kind int

const (
	kindDeflate32 kind = iota
	kindDeflate64
	kindStoreBuffered32
	kindStoreBuffered64
	kindStoreStreamed32
	kindStoreStreamed64
)

func (k kind) isZip64() bool {
	return k == kindDeflate64 || k == kindStoreBuffered64 || k == kindStoreStreamed64
}

func (k kind) isDeflate() bool {
	return k == kindDeflate32 || k == kindDeflate64
}

func (k kind) isBuffered() bool {
	return k == kindStoreBuffered32 || k == kindStoreBuffered64
}

func (k kind) isStreamed() bool {
	return k == kindStoreStreamed32 || k == kindStoreStreamed64
}

// resolved is what a Method resolves to once the encoder knows the current
// archive offset (spec §3: "Method selector is a first-class value resolved
// per member").
type resolved struct {
	kind              kind
	autoUpgrade       bool
	compressorFactory CompressorFactory
	uncompressedSize  uint64 // declared, Store*Streamed only
	crc32             uint32 // declared, Store*Streamed only
}

// Method selects how a member's content is packaged into the archive:
// whether it is DEFLATE-compressed or stored, whether its size is known up
// front, and whether 32 or 64 bit structural fields are used. Construct one
// with Deflate32, Deflate64, StoreBuffered32, StoreBuffered64,
// StoreStreamed32, StoreStreamed64, or Auto.
type Method interface {
	resolve(offset uint64, defaultFactory CompressorFactory) resolved
}

type simpleMethod struct {
	kind kind
}

func (m simpleMethod) resolve(_ uint64, defaultFactory CompressorFactory) resolved {
	return resolved{kind: m.kind, compressorFactory: defaultFactory}
}

// Deflate32 DEFLATE-compresses the member, using a ZIP32 (32 bit) local
// header and a trailing data descriptor, since the compressed size isn't
// known until the content has been fully read.
func Deflate32() Method { return simpleMethod{kind: kindDeflate32} }

// Deflate64 is Deflate32 with ZIP64 (64 bit) structural fields, for members
// whose compressed size may exceed the ZIP32 bound.
func Deflate64() Method { return simpleMethod{kind: kindDeflate64} }

// StoreBuffered32 stores the member uncompressed. Its content is
// materialized in memory first, so the local header can carry the exact
// size and CRC32 without a trailing data descriptor (spec §4.4).
func StoreBuffered32() Method { return simpleMethod{kind: kindStoreBuffered32} }

// StoreBuffered64 is StoreBuffered32 with ZIP64 structural fields.
func StoreBuffered64() Method { return simpleMethod{kind: kindStoreBuffered64} }

type streamedMethod struct {
	kind             kind
	uncompressedSize uint64
	crc32            uint32
}

func (m streamedMethod) resolve(_ uint64, defaultFactory CompressorFactory) resolved {
	return resolved{
		kind:              m.kind,
		compressorFactory: defaultFactory,
		uncompressedSize:  m.uncompressedSize,
		crc32:             m.crc32,
	}
}

// StoreStreamed32 stores the member uncompressed without buffering it,
// using the caller-declared uncompressedSize and crc32 in the local header
// up front. Both values are verified against the content actually read as
// it streams through; a mismatch raises ErrCRC32Mismatch or
// ErrUncompressedSizeMismatch and abandons the archive (spec §4.5).
func StoreStreamed32(uncompressedSize uint64, crc32 uint32) Method {
	return streamedMethod{kind: kindStoreStreamed32, uncompressedSize: uncompressedSize, crc32: crc32}
}

// StoreStreamed64 is StoreStreamed32 with ZIP64 structural fields.
func StoreStreamed64(uncompressedSize uint64, crc32 uint32) Method {
	return streamedMethod{kind: kindStoreStreamed64, uncompressedSize: uncompressedSize, crc32: crc32}
}

// deflateBound64Threshold is the largest declared uncompressed size for
// which DEFLATE's worst-case expansion is guaranteed to still fit a ZIP32
// compressed-size field, derived from zlib's deflateBound formula:
// size + (size>>12) + (size>>14) + (size>>25) + 7, evaluated at the default
// memLevel of 8 against the ZIP32 limit of 0xffffffff.
const deflateBound64Threshold = 4293656841

type autoMethod struct {
	uncompressedSize uint64
	level            int
}

func (m autoMethod) resolve(offset uint64, _ CompressorFactory) resolved {
	k := kindDeflate32
	if m.uncompressedSize > deflateBound64Threshold || offset > uint32max {
		k = kindDeflate64
	}
	level := m.level
	return resolved{
		kind:        k,
		autoUpgrade: true,
		compressorFactory: func(dst io.Writer) *flate.Writer {
			fw, err := flate.NewWriter(dst, level)
			if err != nil {
				panic(err)
			}
			return fw
		},
	}
}

// Auto DEFLATE-compresses the member at the given level, picking ZIP32 or
// ZIP64 structural fields for it based on its declared uncompressedSize and
// the archive's current offset, and latching the archive's
// end-of-central-directory record to ZIP64 if, once this member is written,
// the archive's offset or entry count exceeds what ZIP32 provides. Later
// members are not covered by this check (spec §4.8, §3 Non-goals
// notwithstanding, this is the auto_upgrade path).
func Auto(uncompressedSize uint64, level int) Method {
	return autoMethod{uncompressedSize: uncompressedSize, level: level}
}
