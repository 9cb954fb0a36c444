package llsd

import (
	"bytes"
	"io"
)

// Kind names one of the wire formats.
type Kind int

const (
	KindBinary Kind = iota
	KindXML
	KindNotation
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindXML:
		return "xml"
	case KindNotation:
		return "notation"
	}
	return "unknown"
}

// Parser reads one value from a stream into sd.
//
// Parse returns the number of values read. On failure it returns ParseFailure
// together with an error wrapping ErrMalformed, ErrDepthExceeded or
// ErrByteBudgetExceeded, and sd is left undefined. Empty input parses as
// undefined and returns 0. Passing a *Reader parses from it directly, sharing
// its byte count and budget, so several values can be read back to back.
type Parser interface {
	Parse(r io.Reader, sd *SD) (int, error)
}

// Formatter writes one value to a stream.
//
// Format returns the number of values written, counting every map and array
// element, or the first write error.
type Formatter interface {
	Format(sd SD, w io.Writer) (int, error)
}

// marshal formats sd into a fresh byte slice.
func marshal(f Formatter, sd SD) ([]byte, error) {
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bytesBufPool.Put(buf)

	if _, err := f.Format(sd, buf); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// unmarshal parses data into sd.
func unmarshal(p Parser, data []byte, sd *SD) error {
	_, err := p.Parse(NewBytesReader(data), sd)
	return err
}
