// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package streamzip produces a ZIP archive as a stream of writes to a
caller-supplied io.Writer, from a sequence of member files whose content is
itself supplied as io.Reader. The full archive is never held in memory or on
disk: every member is written, compressed (if requested) and, optionally,
encrypted as its content is read, in the order the caller adds members.

Because compressed size and CRC32 are not known until a member's content has
been fully read, most members are written with a data descriptor following
their compressed bytes rather than a complete local file header. Members
whose size and CRC32 are known up front (or that the caller is willing to
buffer) can avoid the data descriptor; see the Method constructors.

See: https://www.pkware.com/appnote, https://golang.org/pkg/archive/zip/

This package does not support disk spanning, ZipCrypto encryption, random
access, or compression methods other than DEFLATE.
*/
package streamzip
