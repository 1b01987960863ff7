package parcel

import (
	"encoding/binary"
)

// Writer accumulates an outbound parcel.
// Integers are little-endian, strings are an int32 byte length followed by
// their UTF-8 bytes. There is no padding between fields.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// WriteByte appends a single byte. It never fails; the error return only
// satisfies io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteBool appends a bool as one byte (0 or 1).
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// WriteInt32 appends a 4-byte little-endian integer.
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteString appends a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteInterfaceToken appends the token identifying the interface a request
// is addressed to. Receivers check it with Reader.EnforceInterface.
func (w *Writer) WriteInterfaceToken(token string) {
	w.WriteString(token)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded parcel. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}
