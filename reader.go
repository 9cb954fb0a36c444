package llsd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const defaultReaderSize = 4096

// byteScanner is the minimum a stream must offer to be parsed without an
// extra buffering layer.
type byteScanner interface {
	io.Reader
	io.ByteScanner
}

// Reader is the byte source every parser reads through. It tracks the first
// error, after which all reads become no-ops, counts consumed bytes and meters
// every primitive read against an optional byte budget.
type Reader struct {
	r      byteScanner
	count  int64 // total bytes consumed
	budget int64 // bytes still allowed; negative when unmetered
	err    error // first error encountered
	order  binary.ByteOrder
}

var (
	_ io.Reader      = (*Reader)(nil)
	_ io.ByteScanner = (*Reader)(nil)
)

// NewReaderSize creates a Reader over r, buffering with size bytes when r
// cannot already hand out single bytes.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	// Reuse an existing Reader so nested parsers share a single budget.
	case *Reader:
		return reader, nil

	// Already byte addressable (bufio.Reader, bytes.Reader, BytesReader, ...);
	// buffering it again would only read ahead of the parser.
	case byteScanner:
		return &Reader{r: reader, budget: Unlimited, order: Order}, nil
	}

	if size < 16 {
		size = defaultReaderSize
	}
	return &Reader{r: bufio.NewReaderSize(r, size), budget: Unlimited, order: Order}, nil
}

// NewReader creates a Reader with a default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, defaultReaderSize)
}

// openReader adapts r for a parser. A Reader handed in by a caller keeps its
// own budget; a fresh one is metered with maxBytes.
func openReader(r io.Reader, maxBytes int64) (*Reader, error) {
	if in, ok := r.(*Reader); ok {
		return in, nil
	}
	in, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	return in.WithBudget(maxBytes), nil
}

// WithBudget limits how many more bytes may be consumed. A negative n removes
// the limit.
func (r *Reader) WithBudget(n int64) *Reader {
	if n < 0 {
		n = Unlimited
	}
	r.budget = n
	return r
}

// WithByteOrder sets the order used by the fixed-width reads.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	r.order = order
	return r
}

func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// Remaining reports the unspent budget, or Unlimited.
func (r *Reader) Remaining() int64 { return r.budget }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// spend charges n bytes against the budget before they are read.
func (r *Reader) spend(n int64) error {
	if r.budget < 0 {
		return nil
	}
	if n > r.budget {
		r.setError(fmt.Errorf("%w: need %d bytes, %d left", ErrByteBudgetExceeded, n, r.budget))
		return r.err
	}
	r.budget -= n
	return nil
}

// Read implements the io.Reader interface. Reads are clipped to the budget.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.budget >= 0 && int64(len(p)) > r.budget {
		if r.budget == 0 {
			r.setError(fmt.Errorf("%w: stream continues past the limit", ErrByteBudgetExceeded))
			return 0, r.err
		}
		p = p[:r.budget]
	}
	n, err := r.r.Read(p)
	if n < 0 || n > len(p) {
		r.setError(ErrInvalidRead)
		return 0, r.err
	}
	r.count += int64(n)
	if r.budget >= 0 {
		r.budget -= int64(n)
	}
	r.setError(err)
	return n, r.err
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.budget == 0 {
		// A stream that ends exactly at the limit reports EOF.
		if _, err := r.r.ReadByte(); err != nil {
			r.setError(err)
			return 0, r.err
		}
		_ = r.r.UnreadByte()
	}
	if r.spend(1) != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.setError(err)
		return 0, r.err
	}
	r.count++
	return b, nil
}

// UnreadByte implements io.ByteScanner and refunds the byte to the budget.
func (r *Reader) UnreadByte() error {
	if r.err != nil {
		return r.err
	}
	if err := r.r.UnreadByte(); err != nil {
		r.setError(err)
		return r.err
	}
	r.count--
	if r.budget >= 0 {
		r.budget++
	}
	return nil
}

// PeekByte returns the next byte without consuming it. Looking ahead is not
// charged to the budget.
func (r *Reader) PeekByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err == nil {
		err = r.r.UnreadByte()
	}
	if err != nil {
		r.setError(err)
		return 0, r.err
	}
	return b, nil
}

// SkipSpace consumes whitespace and returns the next byte without consuming it.
func (r *Reader) SkipSpace() (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if !isSpace(b) {
			return b, r.UnreadByte()
		}
	}
}

// Expect consumes one byte and fails unless it is want.
func (r *Reader) Expect(want byte) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b != want {
		r.setError(malformed(r.count-1, "expected %q, found %q", want, b))
		return r.err
	}
	return nil
}

// ReadBytes reads exactly n bytes into a new slice. The whole length is charged
// to the budget up front, and large lengths are read in chunks so a lying
// length prefix cannot force a huge allocation before the data shows up.
func (r *Reader) ReadBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.setError(malformed(r.count, "negative length %d", n))
		return nil
	}
	if r.spend(int64(n)) != nil {
		return nil
	}
	if n <= CHUNK_SIZE {
		buf := make([]byte, n)
		read, err := io.ReadFull(r.r, buf)
		r.count += int64(read)
		if err != nil {
			r.setError(io.ErrUnexpectedEOF)
			return nil
		}
		return buf
	}
	var buf bytes.Buffer
	read, err := io.CopyN(&buf, r.r, int64(n))
	r.count += read
	if err != nil {
		r.setError(io.ErrUnexpectedEOF)
		return nil
	}
	return buf.Bytes()
}

// --- Fixed-width reads ---

func (r *Reader) ReadUint32(dest *uint32) {
	buf := r.ReadBytes(4)
	if r.err == nil {
		*dest = r.order.Uint32(buf)
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	var v uint32
	if r.ReadUint32(&v); r.err == nil {
		*dest = int32(v)
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	buf := r.ReadBytes(8)
	if r.err == nil {
		*dest = r.order.Uint64(buf)
	}
}

func (r *Reader) ReadFloat64(dest *float64) {
	var v uint64
	if r.ReadUint64(&v); r.err == nil {
		*dest = math.Float64frombits(v)
	}
}
