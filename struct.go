// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package streamzip

import (
	"os"
	"time"
)

// Compression methods, as they appear in the method field of a local or
// central header.
const (
	methodStore   uint16 = 0  // no compression
	methodDeflate uint16 = 8  // DEFLATE compressed
	methodAES     uint16 = 99 // actual method is in the AES extra field
)

const (
	fileHeaderSignature      = 0x04034b50
	dataDescriptorSignature  = 0x08074b50 // de-facto standard; required by OS X Finder
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64LocSignature  = 0x07064b50
	directory64EndSignature  = 0x06064b50

	fileHeaderLen       = 30 // + filename + extra
	directoryHeaderLen  = 46 // + filename + extra + comment
	directoryEndLen     = 22 // + comment
	dataDescriptorLen   = 16 // signature, crc32, 32 bit compressed size, 32 bit uncompressed size
	dataDescriptor64Len = 24 // signature, crc32, 64 bit compressed size, 64 bit uncompressed size
	directory64LocLen   = 20
	directory64EndLen   = 56 // + extra

	zip64ExtraLocalLen   = 16 // 2x uint64
	zip64ExtraCentralLen = 24 // 3x uint64
	extTimeExtraLen      = 9  // 2*uint16 + uint8 + uint32
	aesExtraLen          = 11 // 2*uint16 + uint16 + 2s + uint8 + uint16

	// Constants for the first byte in CreatorVersion / version made by.
	creatorUnix = 3

	// Version numbers.
	versionNeeded20 = 20 // 2.0: Store and Deflate
	versionNeeded45 = 45 // 4.5: reads and writes zip64 archives

	// Limits for non-zip64 fields.
	uint16max = 1<<16 - 1
	uint32max = 1<<32 - 1

	// Extra header IDs.
	//
	// IDs 0..31 are reserved for official use by PKWARE. IDs above that range
	// are defined by third-party vendors. See
	// http://mdfs.net/Docs/Comp/Archiving/Zip/ExtraField
	zip64ExtraID   = 0x0001 // Zip64 extended information
	extTimeExtraID = 0x5455 // "UT" extended timestamp
	aesExtraID     = 0x9901 // WinZip AES encryption

	// General purpose bit flags (§4.7).
	flagAES            = 0x1
	flagDataDescriptor = 0x8
	flagUTF8           = 0x800

	// msdosDir is the MS-DOS directory attribute bit in ExternalAttrs.
	msdosDir = 0x10
)

// timeToMSDOS converts a time.Time to an MS-DOS date and time, with the
// customary 2-second resolution.
//
// See: https://msdn.microsoft.com/en-us/library/ms724274(v=VS.85).aspx
func timeToMSDOS(t time.Time) (date, dosTime uint16) {
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	dosTime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, dosTime
}

// externalAttrs computes the external attributes field for a member: the
// mode bits in the high word, plus the MS-DOS directory bit when name ends
// in a slash, independently of whatever os.ModeDir says about mode (spec
// Open Question in §9 — both signals are preserved, not reconciled).
func externalAttrs(mode os.FileMode, name string) uint32 {
	attrs := unixModeToExternalAttrs(mode) << 16
	if len(name) > 0 && name[len(name)-1] == '/' {
		attrs |= msdosDir
	}
	return attrs
}

// unixModeToExternalAttrs packs an os.FileMode into the 16 bits that
// traditionally go in the high word of a ZIP entry's external attributes,
// i.e. the classic `mode_t` layout readers expect when CreatorVersion's high
// byte is creatorUnix.
func unixModeToExternalAttrs(mode os.FileMode) uint32 {
	const (
		sIFDIR  = 0x4000
		sIFREG  = 0x8000
		sIFLNK  = 0xa000
		sIFBLK  = 0x6000
		sIFCHR  = 0x2000
		sIFIFO  = 0x1000
		sIFSOCK = 0xc000
		sISUID  = 0x800
		sISGID  = 0x400
		sISVTX  = 0x200
	)

	var m uint32
	switch mode & os.ModeType {
	case os.ModeDir:
		m = sIFDIR
	case os.ModeSymlink:
		m = sIFLNK
	case os.ModeNamedPipe:
		m = sIFIFO
	case os.ModeSocket:
		m = sIFSOCK
	case os.ModeDevice:
		if mode&os.ModeCharDevice != 0 {
			m = sIFCHR
		} else {
			m = sIFBLK
		}
	default:
		m = sIFREG
	}
	if mode&os.ModeSetuid != 0 {
		m |= sISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= sISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= sISVTX
	}
	return m | uint32(mode.Perm())
}
