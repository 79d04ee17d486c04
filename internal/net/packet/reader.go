package packet

import "encoding/binary"

// Reader decodes the fields of a decrypted client payload. The first byte
// of every payload is the opcode; field reads start right after it.
//
// Reads past the end of the payload yield zero values rather than errors.
// Client packets are small and fixed-shape, so handlers read the fields
// they expect and treat zeros from a truncated packet like any other bad
// input.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps a decrypted payload. data[0] must be the opcode.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, pos: 1}
}

// Opcode returns the opcode byte of the payload.
func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// take advances the cursor n bytes and reports whether they were available.
func (r *Reader) take(n int) ([]byte, bool) {
	if len(r.data)-r.pos < n {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

// ReadC reads one unsigned byte.
func (r *Reader) ReadC() byte {
	b, ok := r.take(1)
	if !ok {
		return 0
	}
	return b[0]
}

// ReadH reads a little-endian uint16.
func (r *Reader) ReadH() uint16 {
	b, ok := r.take(2)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadD reads a little-endian int32.
func (r *Reader) ReadD() int32 {
	b, ok := r.take(4)
	if !ok {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// ReadS reads a null-terminated MS950 string and returns it as UTF-8.
// A missing terminator consumes the rest of the payload.
func (r *Reader) ReadS() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	raw := r.data[start:r.pos]
	if r.pos < len(r.data) {
		r.pos++ // terminator
	}
	return decodeMS950(raw)
}

// ReadBytes reads up to n raw bytes, clamped to what remains.
func (r *Reader) ReadBytes(n int) []byte {
	if rem := len(r.data) - r.pos; n > rem {
		n = rem
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:])
	r.pos += n
	return b
}

// Remaining returns the number of unread bytes. Handlers use it to detect
// the optional trailing fields some client builds append.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}
