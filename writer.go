package llsd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
)

// writerPro is what the formatters need from a destination.
type writerPro interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
	Flush() error
}

// Writer provides a buffered writer for the formatters.
// It tracks the first error that occurs; after an error, all subsequent
// write operations become no-ops.
type Writer struct {
	w     writerPro
	count int64 // total bytes written
	err   error // first error encountered. Subsequent writes become no-ops.
	depth int
	order binary.ByteOrder
}

var (
	_ io.Writer       = (*Writer)(nil)
	_ io.ByteWriter   = (*Writer)(nil)
	_ io.StringWriter = (*Writer)(nil)
)

// NewWriterSize creates a new Writer with a specified buffer size.
// In-memory destinations are written directly; a caller's *bufio.Writer is
// used as is and left for the caller to flush.
func NewWriterSize(w io.Writer, size int) (*Writer, error) {
	if w == nil {
		return nil, ErrNilIO
	}

	switch bw := w.(type) {
	// Nested formatters share the outer buffer and never flush it.
	case *Writer:
		return &Writer{w: bw.w, depth: bw.depth + 1, order: bw.order}, nil

	case *bufio.Writer:
		return &Writer{w: &bufioWriterAdapter{bw}, depth: 1, order: Order}, nil

	// underlying is a buf so we don't need buffering
	case *bytes.Buffer:
		return &Writer{w: &bytesBufferWriterAdapter{bw}, order: Order}, nil
	case *strings.Builder:
		return &Writer{w: &stringsBuilderWriterAdapter{bw}, order: Order}, nil
	}

	if size <= 0 {
		size = defaultReaderSize
	}
	// default use bufio
	return &Writer{w: &bufioWriterAdapter{bufio.NewWriterSize(w, size)}, order: Order}, nil
}

// NewWriter creates a new Writer with a default buffer size.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterSize(w, 0)
}

// WithByteOrder sets the order used by the fixed-width writes.
func (w *Writer) WithByteOrder(order binary.ByteOrder) *Writer {
	w.order = order
	return w
}

// Write implements the io.Writer interface.
func (w *Writer) Write(buf []byte) (int, error) {
	if len(buf) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteString implements the io.StringWriter interface.
func (w *Writer) WriteString(str string) (int, error) {
	if str == "" || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.WriteString(str)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteByte implements the io.ByteWriter interface.
func (w *Writer) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	err := w.w.WriteByte(v)
	if err == nil {
		w.count++
	} else {
		w.err = err
	}
	return err
}

func (w *Writer) Count() int64 { return w.count }
func (w *Writer) Err() error   { return w.err }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result flushes the buffer and returns the final count and error state.
func (w *Writer) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	// Only the outermost writer is responsible for the final flush.
	if w.depth > 0 || w.err != nil {
		return w.err
	}
	err := w.w.Flush()
	w.setError(err)
	return err
}

// --- Primitive Write Operations ---

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	w.order.PutUint32(buf[:], v)
	_, _ = w.Write(buf[:])
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	var buf [8]byte
	w.order.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}

func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteSized writes a 4-byte length followed by the bytes of s.
func (w *Writer) WriteSized(s string) {
	w.WriteUint32(uint32(len(s)))
	_, _ = w.WriteString(s)
}

// writeIndent writes level units of pretty-print indentation.
func (w *Writer) writeIndent(level int) {
	for range level {
		_, _ = w.WriteString(indentUnit)
	}
}
