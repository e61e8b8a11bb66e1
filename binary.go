package streamzip

import "encoding/binary"

// buf is a small cursor over a fixed byte slice used to pack little-endian
// ZIP structural fields, adapted from the writeBuf helper archive/zip (and
// this package's teacher, zipserve) use for the same purpose.
type buf []byte

func (b *buf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *buf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *buf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *buf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

func (b *buf) bytes(v []byte) {
	n := copy(*b, v)
	*b = (*b)[n:]
}
