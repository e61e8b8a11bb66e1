// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package streamzip

// cdEntry is one member's fully-rendered central directory record (spec
// §6 "Central directory header"): fixed bytes (signature included), name
// bytes, extra bytes, kept in insertion order so the final directory lists
// members in the order they were added.
type cdEntry struct {
	fixed []byte // directoryHeaderLen bytes
	name  []byte
	extra []byte
}

func (e *cdEntry) size() uint64 {
	return uint64(len(e.fixed) + len(e.name) + len(e.extra))
}

// localHeaderFields are the per-member values that differ across the six
// strategies but share one wire layout (spec §6 "Local file header").
type localHeaderFields struct {
	versionNeeded    uint16
	flags            uint16
	method           uint16
	modDate          uint16
	modTime          uint16
	crc32            uint32
	compressedSize   uint64
	uncompressedSize uint64
	zip64            bool
}

// writeLocalHeader writes a local file header, returning the offset it
// started at so the central directory entry can reference it.
func writeLocalHeader(w *offsetWriter, f localHeaderFields, name, extra []byte) (fileOffset uint64, err error) {
	fileOffset = w.offset

	var hdr [fileHeaderLen]byte
	b := buf(hdr[:])
	b.uint32(fileHeaderSignature)
	b.uint16(f.versionNeeded)
	b.uint16(f.flags)
	b.uint16(f.method)
	b.uint16(f.modTime)
	b.uint16(f.modDate)
	b.uint32(f.crc32)
	if f.zip64 {
		b.uint32(uint32max)
		b.uint32(uint32max)
	} else {
		b.uint32(uint32(f.compressedSize))
		b.uint32(uint32(f.uncompressedSize))
	}
	b.uint16(uint16(len(name)))
	b.uint16(uint16(len(extra)))

	if _, err = w.Write(hdr[:]); err != nil {
		return fileOffset, err
	}
	if _, err = w.Write(name); err != nil {
		return fileOffset, err
	}
	if _, err = w.Write(extra); err != nil {
		return fileOffset, err
	}
	return fileOffset, nil
}

// writeDataDescriptor writes the trailer that carries the final CRC32 and
// sizes for Deflate members, in ZIP32 or ZIP64 form (spec §6 "Data
// descriptor").
func writeDataDescriptor(w *offsetWriter, crc32 uint32, compressedSize, uncompressedSize uint64, zip64 bool) error {
	if zip64 {
		var rec [dataDescriptor64Len]byte
		b := buf(rec[:])
		b.uint32(dataDescriptorSignature)
		b.uint32(crc32)
		b.uint64(compressedSize)
		b.uint64(uncompressedSize)
		_, err := w.Write(rec[:])
		return err
	}
	var rec [dataDescriptorLen]byte
	b := buf(rec[:])
	b.uint32(dataDescriptorSignature)
	b.uint32(crc32)
	b.uint32(uint32(compressedSize))
	b.uint32(uint32(uncompressedSize))
	_, err := w.Write(rec[:])
	return err
}

// centralHeaderFields mirrors localHeaderFields for the central directory
// record, which additionally carries the local header's file offset and the
// member's external (UNIX mode) attributes.
type centralHeaderFields struct {
	versionNeeded    uint16
	flags            uint16
	method           uint16
	modDate          uint16
	modTime          uint16
	crc32            uint32
	compressedSize   uint64
	uncompressedSize uint64
	externalAttrs    uint32
	fileOffset       uint64
	zip64            bool
}

// buildCentralDirectoryEntry renders one member's central directory record.
// When zip64 is false, the sizes and fileOffset are written in the
// fixed-size fields; when it is true, those fields hold uint32max and callers
// must supply a zip64CentralExtra carrying the true values.
func buildCentralDirectoryEntry(f centralHeaderFields, name, extra []byte) cdEntry {
	versionMadeBy := uint16(creatorUnix)<<8 | f.versionNeeded

	var fixed [directoryHeaderLen]byte
	b := buf(fixed[:])
	b.uint32(directoryHeaderSignature)
	b.uint16(versionMadeBy)
	b.uint16(f.versionNeeded)
	b.uint16(f.flags)
	b.uint16(f.method)
	b.uint16(f.modTime)
	b.uint16(f.modDate)
	b.uint32(f.crc32)
	if f.zip64 {
		b.uint32(uint32max)
		b.uint32(uint32max)
	} else {
		b.uint32(uint32(f.compressedSize))
		b.uint32(uint32(f.uncompressedSize))
	}
	b.uint16(uint16(len(name)))
	b.uint16(uint16(len(extra)))
	b.uint16(0) // file comment length: members never carry a per-entry comment
	b.uint16(0) // disk number start
	b.uint16(0) // internal file attributes
	b.uint32(f.externalAttrs)
	if f.zip64 {
		b.uint32(uint32max)
	} else {
		b.uint32(uint32(f.fileOffset))
	}

	return cdEntry{fixed: fixed[:], name: name, extra: extra}
}

// zip64LocalExtra renders the ZIP64 extra field carried in a local header.
func zip64LocalExtra(uncompressedSize, compressedSize uint64) []byte {
	rec := make([]byte, 4+zip64ExtraLocalLen)
	b := buf(rec)
	b.uint16(zip64ExtraID)
	b.uint16(zip64ExtraLocalLen)
	b.uint64(uncompressedSize)
	b.uint64(compressedSize)
	return rec
}

// zip64CentralExtra renders the ZIP64 extra field carried in a central
// directory record, including the true local header offset.
func zip64CentralExtra(uncompressedSize, compressedSize, localHeaderOffset uint64) []byte {
	rec := make([]byte, 4+zip64ExtraCentralLen)
	b := buf(rec)
	b.uint16(zip64ExtraID)
	b.uint16(zip64ExtraCentralLen)
	b.uint64(uncompressedSize)
	b.uint64(compressedSize)
	b.uint64(localHeaderOffset)
	return rec
}

// unixTimestampExtra renders the "UT" extended-timestamp extra field,
// carrying only the modification time (spec's supplemented UNIX time
// extra, emitted unless Config.DisableExtendedTimestamps is set).
func unixTimestampExtra(modified int64) []byte {
	rec := make([]byte, extTimeExtraLen)
	b := buf(rec)
	b.uint16(extTimeExtraID)
	b.uint16(5) // size: 1 flags byte + 4 byte seconds
	b.uint8(1)  // flags: modification time present, no access/creation time
	b.uint32(uint32(modified))
	return rec
}

// aesExtra renders the WinZip AES extra field (spec §4.6).
func aesExtra(actualMethod uint16) []byte {
	rec := make([]byte, aesExtraLen)
	b := buf(rec)
	b.uint16(aesExtraID)
	b.uint16(7) // data size: vendor version + vendor id + strength + actual method
	b.uint16(2) // vendor version AE-2
	b.bytes([]byte("AE"))
	b.uint8(3) // strength: AES-256
	b.uint16(actualMethod)
	return rec
}

// writeCentralDirectory writes every collected entry in order, then either
// the classic or ZIP64 end-of-central-directory sequence (spec §4.8).
func writeCentralDirectory(w *offsetWriter, entries []cdEntry, zip64 bool) error {
	cdStart := w.offset
	for _, e := range entries {
		if _, err := w.Write(e.fixed); err != nil {
			return err
		}
		if _, err := w.Write(e.name); err != nil {
			return err
		}
		if _, err := w.Write(e.extra); err != nil {
			return err
		}
	}
	cdSize := w.offset - cdStart
	numEntries := uint64(len(entries))

	if zip64 {
		cdEnd := w.offset

		var rec [directory64EndLen]byte
		b := buf(rec[:])
		b.uint32(directory64EndSignature)
		b.uint64(directory64EndLen - 12) // size of this record, excluding the signature and this field
		b.uint16(versionNeeded45)
		b.uint16(versionNeeded45)
		b.uint32(0) // disk number
		b.uint32(0) // disk with the start of the central directory
		b.uint64(numEntries)
		b.uint64(numEntries)
		b.uint64(cdSize)
		b.uint64(cdStart)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}

		var loc [directory64LocLen]byte
		b = buf(loc[:])
		b.uint32(directory64LocSignature)
		b.uint32(0) // disk with the zip64 end of central directory record
		b.uint64(cdEnd)
		b.uint32(1) // total number of disks
		if _, err := w.Write(loc[:]); err != nil {
			return err
		}

		var end [directoryEndLen]byte
		b = buf(end[:])
		b.uint32(directoryEndSignature)
		b.uint16(uint16max)
		b.uint16(uint16max)
		b.uint16(uint16max)
		b.uint16(uint16max)
		b.uint32(uint32max)
		b.uint32(uint32max)
		b.uint16(0) // comment length
		_, err := w.Write(end[:])
		return err
	}

	var end [directoryEndLen]byte
	b := buf(end[:])
	b.uint32(directoryEndSignature)
	b.uint16(0) // disk number
	b.uint16(0) // disk with the start of the central directory
	b.uint16(uint16(numEntries))
	b.uint16(uint16(numEntries))
	b.uint32(uint32(cdSize))
	b.uint32(uint32(cdStart))
	b.uint16(0) // comment length
	_, err := w.Write(end[:])
	return err
}
