package llsd

import "io"

// BytesReader reads from an in-memory byte slice. It is the source the
// slice-based entry points (FromBinary, Unzip, UnmarshalBinary) parse from,
// and implements io.ByteScanner so Reader can use it without buffering.
type BytesReader struct {
	B []byte // source slice
	N int    // current read position
}

var _ io.ByteScanner = (*BytesReader)(nil)

// NewBytesReader creates a new BytesReader.
func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{B: b}
}

// Read implements the [io.Reader] interface.
func (r *BytesReader) Read(p []byte) (int, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	n := copy(p, r.B[r.N:])
	r.N += n
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (r *BytesReader) ReadByte() (byte, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	b := r.B[r.N]
	r.N++
	return b, nil
}

// UnreadByte implements the [io.ByteScanner] interface.
func (r *BytesReader) UnreadByte() error {
	if r.N <= 0 {
		return ErrInvalidRead
	}
	r.N--
	return nil
}
