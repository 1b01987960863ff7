package parcel

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the parcel.
	ErrShortBuffer = errors.New("parcel: short buffer")
	// ErrBadLength is returned when a string length prefix is negative.
	ErrBadLength = errors.New("parcel: invalid length prefix")
	// ErrInterfaceMismatch is returned when the interface token does not match.
	ErrInterfaceMismatch = errors.New("parcel: interface token mismatch")
)

// Reader consumes an inbound parcel in field order.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a one-byte bool. Any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadInt32 reads a 4-byte little-endian integer.
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("%w: %d", ErrBadLength, n)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EnforceInterface reads the leading interface token and checks it against want.
func (r *Reader) EnforceInterface(want string) error {
	got, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("failed to read interface token: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: got %q, want %q", ErrInterfaceMismatch, got, want)
	}
	return nil
}
