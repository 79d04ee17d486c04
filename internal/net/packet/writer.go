package packet

import "encoding/binary"

// Writer assembles a server payload field by field. Multi-byte fields are
// little-endian and strings go out as null-terminated MS950, mirroring
// what Reader accepts on the way in.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer. The caller writes the opcode itself.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// NewWriterWithOpcode returns a Writer with the opcode byte already written.
func NewWriterWithOpcode(opcode byte) *Writer {
	w := NewWriter()
	w.WriteC(opcode)
	return w
}

// WriteC appends one byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH appends a little-endian uint16.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD appends a little-endian int32.
func (w *Writer) WriteD(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteDU appends a little-endian uint32.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteS appends s as a null-terminated MS950 string.
func (w *Writer) WriteS(s string) {
	w.buf = append(w.buf, encodeMS950(s)...)
	w.buf = append(w.buf, 0)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the payload zero-padded to a 4-byte boundary, the unit
// the cipher operates on.
func (w *Writer) Bytes() []byte {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
	return w.buf
}

// RawBytes returns the payload without padding. The handshake goes out
// before the cipher is active and must keep its exact length.
func (w *Writer) RawBytes() []byte {
	return w.buf
}

// Len returns the unpadded length written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}
