package llsd

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
)

// maxPrealloc caps how many map or array slots a declared count may reserve
// before the elements are actually read.
const maxPrealloc = 1024

// BinaryParser reads the tagged binary grammar. Every value starts with a one
// byte tag; numbers and lengths are big-endian.
//
//	!                  undef
//	0 1                false, true
//	i <int32>          integer
//	r <float64>        real
//	u <16 bytes>       uuid
//	s <len> <bytes>    string, also a quoted notation string
//	l <len> <bytes>    uri
//	d <float64>        date, seconds since the epoch
//	b <len> <bytes>    binary
//	{ <count> (k <len> <bytes> value)* }
//	[ <count> value* ]
type BinaryParser struct {
	cfg parseConfig
}

var _ Parser = (*BinaryParser)(nil)

func NewBinaryParser(opts ...ParseOption) *BinaryParser {
	return &BinaryParser{cfg: newParseConfig(opts)}
}

func (p *BinaryParser) Parse(r io.Reader, sd *SD) (int, error) {
	sd.Clear()
	in, err := openReader(r, p.cfg.maxBytes)
	if err != nil {
		return p.cfg.fail("binary", nil, sd, err)
	}
	if _, err := in.PeekByte(); err != nil {
		if in.IsEOF() {
			return 0, nil
		}
		return p.cfg.fail("binary", in, sd, streamError(err))
	}

	d := binaryDecoder{in: in.WithByteOrder(BE)}
	var v SD
	count, err := d.value(&v, p.cfg.maxDepth)
	if err != nil {
		return p.cfg.fail("binary", in, sd, streamError(err))
	}
	*sd = v
	return p.cfg.done("binary", in, count)
}

type binaryDecoder struct {
	in *Reader
}

func (d *binaryDecoder) fail(format string, args ...any) error {
	err := malformed(d.in.Count(), format, args...)
	d.in.setError(err)
	return err
}

func (d *binaryDecoder) value(sd *SD, depth int) (int, error) {
	tag, err := d.in.ReadByte()
	if err != nil {
		return 0, err
	}
	switch tag {
	case '{':
		if depth == 0 {
			return 0, fmt.Errorf("%w at offset %d", ErrDepthExceeded, d.in.Count())
		}
		return d.mapValue(sd, childDepth(depth))

	case '[':
		if depth == 0 {
			return 0, fmt.Errorf("%w at offset %d", ErrDepthExceeded, d.in.Count())
		}
		return d.arrayValue(sd, childDepth(depth))

	case '!':
		sd.Clear()

	case '0', '1':
		*sd = Boolean(tag == '1')

	case 'i':
		var n int32
		d.in.ReadInt32(&n)
		*sd = Integer(n)

	case 'r':
		var f float64
		d.in.ReadFloat64(&f)
		*sd = Real(f)

	case 'u':
		raw := d.in.ReadBytes(16)
		if d.in.Err() == nil {
			*sd = UUID(uuid.UUID(raw))
		}

	case 's':
		*sd = String(string(d.sized()))

	case '\'', '"':
		s, err := (&notationDecoder{in: d.in}).delimited(tag)
		if err != nil {
			return 0, err
		}
		*sd = String(s)

	case 'l':
		*sd = NewURI(URI(d.sized()))

	case 'd':
		var f float64
		d.in.ReadFloat64(&f)
		*sd = Date(secondsToDate(f))

	case 'b':
		if raw := d.sized(); raw != nil {
			*sd = SD{kind: TypeBinary, v: raw}
		}

	default:
		return 0, d.fail("unknown tag %q", tag)
	}
	if err := d.in.Err(); err != nil {
		return 0, err
	}
	return 1, nil
}

// size reads a 4-byte element count or length.
func (d *binaryDecoder) size() (int, error) {
	var n int32
	d.in.ReadInt32(&n)
	if err := d.in.Err(); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, d.fail("negative length %d", n)
	}
	return int(n), nil
}

// sized reads a length-prefixed byte string.
func (d *binaryDecoder) sized() []byte {
	n, err := d.size()
	if err != nil {
		return nil
	}
	return d.in.ReadBytes(n)
}

func (d *binaryDecoder) key() (string, error) {
	tag, err := d.in.ReadByte()
	if err != nil {
		return "", err
	}
	switch tag {
	case 'k':
		key := d.sized()
		return string(key), d.in.Err()
	case '\'', '"':
		return (&notationDecoder{in: d.in}).delimited(tag)
	}
	return "", d.fail("unknown map key tag %q", tag)
}

func (d *binaryDecoder) mapValue(sd *SD, depth int) (int, error) {
	n, err := d.size()
	if err != nil {
		return 0, err
	}
	m := SD{kind: TypeMap, v: &mapBlock{refs: 1, entries: make(map[string]*SD, min(n, maxPrealloc))}}
	count := 1
	for range n {
		key, err := d.key()
		if err != nil {
			return 0, err
		}
		var child SD
		c, err := d.value(&child, depth)
		if err != nil {
			return 0, err
		}
		count += c
		m.adoptKey(key, child)
	}
	if err := d.closing('}'); err != nil {
		return 0, err
	}
	*sd = m
	return count, nil
}

func (d *binaryDecoder) arrayValue(sd *SD, depth int) (int, error) {
	n, err := d.size()
	if err != nil {
		return 0, err
	}
	a := SD{kind: TypeArray, v: &arrayBlock{refs: 1, items: make([]*SD, 0, min(n, maxPrealloc))}}
	count := 1
	for range n {
		var child SD
		c, err := d.value(&child, depth)
		if err != nil {
			return 0, err
		}
		count += c
		a.adoptAppend(child)
	}
	if err := d.closing(']'); err != nil {
		return 0, err
	}
	*sd = a
	return count, nil
}

// closing checks that a container ends where its declared count says it does.
func (d *binaryDecoder) closing(want byte) error {
	c, err := d.in.ReadByte()
	if err != nil {
		return err
	}
	if c != want {
		return d.fail("expected %q after the declared elements, found %q", want, c)
	}
	return nil
}

// secondsToDate converts wire seconds to a date, flooring any fraction and
// clamping to the years 0000 through 9999.
func secondsToDate(f float64) time.Time {
	if math.IsNaN(f) {
		return epoch
	}
	secs := clamp(math.Floor(f), float64(minDateSeconds), float64(maxDateSeconds))
	return time.Unix(int64(secs), 0).UTC()
}

// BinaryFormatter writes values in the binary grammar read by BinaryParser.
// Map keys are always written with the k tag, in ascending order.
type BinaryFormatter struct{}

var _ Formatter = (*BinaryFormatter)(nil)

func NewBinaryFormatter() *BinaryFormatter { return &BinaryFormatter{} }

func (f *BinaryFormatter) Format(sd SD, w io.Writer) (int, error) {
	out, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	out.WithByteOrder(BE)
	count := f.format(out, sd)
	if _, err := out.Result(); err != nil {
		return 0, err
	}
	return count, nil
}

func (f *BinaryFormatter) format(w *Writer, sd SD) int {
	count := 1
	switch sd.kind {
	case TypeMap:
		entries := sd.entries()
		w.WriteByte('{')
		w.WriteUint32(uint32(len(entries)))
		for _, k := range sd.Keys() {
			w.WriteByte('k')
			w.WriteSized(k)
			count += f.format(w, *entries[k])
		}
		w.WriteByte('}')

	case TypeArray:
		items := sd.items()
		w.WriteByte('[')
		w.WriteUint32(uint32(len(items)))
		for _, e := range items {
			count += f.format(w, *e)
		}
		w.WriteByte(']')

	case TypeBoolean:
		if sd.AsBoolean() {
			w.WriteByte('1')
		} else {
			w.WriteByte('0')
		}

	case TypeInteger:
		w.WriteByte('i')
		w.WriteInt32(sd.AsInteger())

	case TypeReal:
		w.WriteByte('r')
		w.WriteFloat64(sd.AsReal())

	case TypeUUID:
		id := sd.AsUUID()
		w.WriteByte('u')
		w.Write(id[:])

	case TypeString:
		w.WriteByte('s')
		w.WriteSized(sd.AsString())

	case TypeDate:
		w.WriteByte('d')
		w.WriteFloat64(float64(sd.AsDate().Unix()))

	case TypeURI:
		w.WriteByte('l')
		w.WriteSized(string(sd.AsURI()))

	case TypeBinary:
		b := sd.rawBinary()
		w.WriteByte('b')
		w.WriteUint32(uint32(len(b)))
		w.Write(b)

	default:
		w.WriteByte('!')
	}
	return count
}
