package classfile

import (
	"encoding/binary"
	"fmt"
)

// reader is a big-endian cursor over class file bytes. The first read past
// the end sticks: later reads return zero values and err reports where the
// data ran out.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("truncated %s at offset %d: need %d bytes, have %d", what, r.off, n, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1(what string) uint8 {
	if b := r.take(1, what); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2(what string) uint16 {
	if b := r.take(2, what); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4(what string) uint32 {
	if b := r.take(4, what); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u8(what string) uint64 {
	if b := r.take(8, what); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// u2s reads a u2 count followed by that many u2 values.
func (r *reader) u2s(what string) []uint16 {
	n := int(r.u2(what + " count"))
	if r.err != nil || len(r.data)-r.off < 2*n {
		r.take(2*n, what)
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.u2(what)
	}
	return out
}

// bytes returns a copy of the next n bytes.
func (r *reader) bytes(n int, what string) []byte {
	b := r.take(n, what)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// rest reports how many unread bytes remain.
func (r *reader) rest() int { return len(r.data) - r.off }
