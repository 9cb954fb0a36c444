package llsd

import (
	"io"
)

// PeekableReader serves a prefix of already-consumed bytes before continuing
// with the underlying reader. The header dispatcher uses it to hand a codec
// the bytes it had to look at while sniffing the format.
type PeekableReader struct {
	R io.Reader // The underlying reader.
	B []byte    // Bytes served before R.

	last    byte
	hasLast bool
}

// PeekReader returns a PeekableReader. If the given reader is already a
// PeekableReader, it is returned directly.
func PeekReader(r io.Reader) *PeekableReader {
	if pr, ok := r.(*PeekableReader); ok {
		return pr
	}
	return &PeekableReader{R: r}
}

// PrependReader returns a reader that yields prefix and then r.
func PrependReader(prefix []byte, r io.Reader) *PeekableReader {
	pr := PeekReader(r)
	if len(prefix) > 0 {
		b := make([]byte, 0, len(prefix)+len(pr.B))
		pr.B = append(append(b, prefix...), pr.B...)
	}
	return pr
}

// Read reads data into p. It first drains the prefix and then reads from the
// underlying reader.
func (r *PeekableReader) Read(p []byte) (n int, err error) {
	r.hasLast = false
	if len(r.B) > 0 {
		n = copy(p, r.B)
		r.B = r.B[n:]
		if len(r.B) == 0 {
			r.B = nil
		}
		return n, nil
	}
	return r.R.Read(p)
}

// ReadByte implements io.ByteReader, draining the prefix first.
func (r *PeekableReader) ReadByte() (byte, error) {
	if len(r.B) > 0 {
		c := r.B[0]
		r.B = r.B[1:]
		r.last, r.hasLast = c, true
		return c, nil
	}
	var c byte
	var err error
	if br, ok := r.R.(io.ByteReader); ok {
		c, err = br.ReadByte()
	} else {
		var one [1]byte
		_, err = io.ReadFull(r.R, one[:])
		c = one[0]
	}
	if err != nil {
		r.hasLast = false
		return 0, err
	}
	r.last, r.hasLast = c, true
	return c, nil
}

// UnreadByte implements io.ByteScanner by pushing the last byte back onto
// the prefix.
func (r *PeekableReader) UnreadByte() error {
	if !r.hasLast {
		return ErrInvalidRead
	}
	r.hasLast = false
	r.B = append([]byte{r.last}, r.B...)
	return nil
}
