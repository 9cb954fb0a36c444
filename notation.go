package llsd

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NotationParser reads the compact text grammar:
//
//	undef    !
//	boolean  0 1 t T f F true TRUE false FALSE
//	integer  i-42
//	real     r2.5
//	uuid     u6b4e3c4a-2fbc-4c5e-9f5e-3a1f2b7c9d01
//	string   'text' "text" s(4)"text"
//	uri      l"http://example.com/"
//	date     d"2006-01-02T15:04:05Z"
//	binary   b(3)"raw" b64"AAEC" b16"00FF"
//	map      {'key':value,'other':value}
//	array    [value,value]
type NotationParser struct {
	cfg parseConfig
}

var _ Parser = (*NotationParser)(nil)

func NewNotationParser(opts ...ParseOption) *NotationParser {
	return &NotationParser{cfg: newParseConfig(opts)}
}

func (p *NotationParser) Parse(r io.Reader, sd *SD) (int, error) {
	sd.Clear()
	in, err := openReader(r, p.cfg.maxBytes)
	if err != nil {
		return p.cfg.fail("notation", nil, sd, err)
	}
	if _, err := in.SkipSpace(); err != nil {
		if in.IsEOF() {
			return 0, nil
		}
		return p.cfg.fail("notation", in, sd, streamError(err))
	}

	d := notationDecoder{in: in}
	var v SD
	count, err := d.value(&v, p.cfg.maxDepth)
	if err != nil {
		return p.cfg.fail("notation", in, sd, streamError(err))
	}
	*sd = v
	return p.cfg.done("notation", in, count)
}

type notationDecoder struct {
	in *Reader
}

func (d *notationDecoder) fail(format string, args ...any) error {
	err := malformed(d.in.Count(), format, args...)
	d.in.setError(err)
	return err
}

// value parses one value into sd and returns how many values it held.
func (d *notationDecoder) value(sd *SD, depth int) (int, error) {
	c, err := d.in.SkipSpace()
	if err != nil {
		return 0, err
	}
	switch c {
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
		_, err = d.in.ReadByte()
		sd.Clear()

	case '0', '1':
		_, err = d.in.ReadByte()
		*sd = Boolean(c == '1')

	case 't', 'T', 'f', 'F':
		var b bool
		b, err = d.boolean()
		*sd = Boolean(b)

	case 'i':
		var n int32
		n, err = d.integer()
		*sd = Integer(n)

	case 'r':
		var f float64
		f, err = d.real()
		*sd = Real(f)

	case 'u':
		var id uuid.UUID
		id, err = d.uuid()
		*sd = UUID(id)

	case '\'', '"', 's':
		var s string
		s, err = d.text()
		*sd = String(s)

	case 'l':
		var s string
		s, err = d.tagged()
		*sd = NewURI(URI(s))

	case 'd':
		var s string
		if s, err = d.tagged(); err == nil {
			t, ok := parseDate(s)
			if !ok {
				return 0, d.fail("invalid date %q", s)
			}
			*sd = Date(t)
		}

	case 'b':
		var b []byte
		if b, err = d.binary(); err == nil {
			*sd = SD{kind: TypeBinary, v: b}
		}

	default:
		return 0, d.fail("unexpected %q", c)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (d *notationDecoder) mapValue(sd *SD, depth int) (int, error) {
	if _, err := d.in.ReadByte(); err != nil { // '{'
		return 0, err
	}
	m := EmptyMap()
	count := 1
	for {
		c, err := d.in.ReadByte()
		if err != nil {
			return 0, err
		}
		var key string
		switch {
		case isSpace(c) || c == ',':
			continue
		case c == '}':
			*sd = m
			return count, nil
		case c == '\'' || c == '"':
			key, err = d.delimited(c)
		case c == 's':
			key, err = d.counted()
		default:
			return 0, d.fail("unexpected %q where a map key belongs", c)
		}
		if err != nil {
			return 0, err
		}

		if c, err = d.in.SkipSpace(); err != nil {
			return 0, err
		}
		if c != ':' {
			return 0, d.fail("expected ':' after key %q, found %q", key, c)
		}
		d.in.ReadByte()
		if c, err = d.in.SkipSpace(); err != nil {
			return 0, err
		}
		if c == '}' || c == ',' {
			return 0, d.fail("key %q has no value", key)
		}

		var child SD
		n, err := d.value(&child, depth)
		if err != nil {
			return 0, err
		}
		count += n
		m.adoptKey(key, child)
	}
}

func (d *notationDecoder) arrayValue(sd *SD, depth int) (int, error) {
	if _, err := d.in.ReadByte(); err != nil { // '['
		return 0, err
	}
	a := EmptyArray()
	count := 1
	for {
		c, err := d.in.ReadByte()
		if err != nil {
			return 0, err
		}
		if isSpace(c) || c == ',' {
			continue
		}
		if c == ']' {
			*sd = a
			return count, nil
		}
		if err := d.in.UnreadByte(); err != nil {
			return 0, err
		}
		var child SD
		n, err := d.value(&child, depth)
		if err != nil {
			return 0, err
		}
		count += n
		a.adoptAppend(child)
	}
}

// run consumes bytes while accept holds, up to limit bytes. End of input
// terminates the run.
func (d *notationDecoder) run(accept func(byte) bool, limit int) (string, error) {
	var b []byte
	for {
		c, err := d.in.PeekByte()
		if err != nil {
			if d.in.IsEOF() {
				return string(b), nil
			}
			return "", err
		}
		if !accept(c) {
			return string(b), nil
		}
		if len(b) == limit {
			return "", d.fail("token longer than %d bytes", limit)
		}
		d.in.ReadByte()
		b = append(b, c)
	}
}

func (d *notationDecoder) boolean() (bool, error) {
	word, err := d.run(isAlpha, len("false"))
	if err != nil {
		return false, err
	}
	switch word {
	case "t", "T", "true", "TRUE":
		return true, nil
	case "f", "F", "false", "FALSE":
		return false, nil
	}
	return false, d.fail("invalid boolean %q", word)
}

func (d *notationDecoder) integer() (int32, error) {
	d.in.ReadByte() // 'i'
	text, err := d.run(func(c byte) bool { return isDigit(c) || c == '-' || c == '+' }, 16)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, d.fail("invalid integer %q", text)
	}
	return int32(n), nil
}

func (d *notationDecoder) real() (float64, error) {
	d.in.ReadByte() // 'r'
	text, err := d.run(func(c byte) bool {
		return isDigit(c) || isAlpha(c) || c == '.' || c == '-' || c == '+'
	}, 64)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, d.fail("invalid real %q", text)
	}
	return f, nil
}

func (d *notationDecoder) uuid() (uuid.UUID, error) {
	d.in.ReadByte() // 'u'
	text := d.in.ReadBytes(36)
	if err := d.in.Err(); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.ParseBytes(text)
	if err != nil {
		return uuid.Nil, d.fail("invalid uuid %q", text)
	}
	return id, nil
}

// text parses a quoted or counted string starting at its opening byte.
func (d *notationDecoder) text() (string, error) {
	c, err := d.in.ReadByte()
	if err != nil {
		return "", err
	}
	if c == 's' {
		return d.counted()
	}
	return d.delimited(c)
}

// tagged parses the delimited text following a one-letter tag, as in l"..."
// and d"...".
func (d *notationDecoder) tagged() (string, error) {
	d.in.ReadByte() // tag
	delim, err := d.in.ReadByte()
	if err != nil {
		return "", err
	}
	return d.delimited(delim)
}

// delimited reads escaped text up to the closing delim.
func (d *notationDecoder) delimited(delim byte) (string, error) {
	var b strings.Builder
	for {
		c, err := d.in.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case delim:
			return b.String(), nil
		case '\\':
			if c, err = d.in.ReadByte(); err != nil {
				return "", err
			}
			if c == 'x' {
				hi, err := d.nybble()
				if err != nil {
					return "", err
				}
				lo, err := d.nybble()
				if err != nil {
					return "", err
				}
				b.WriteByte(hi<<4 | lo)
				continue
			}
			if u := unescapes[c]; u != 0 {
				c = u
			}
		}
		b.WriteByte(c)
	}
}

func (d *notationDecoder) nybble() (byte, error) {
	c, err := d.in.ReadByte()
	if err != nil {
		return 0, err
	}
	n := hexNybbles[c]
	if n < 0 {
		return 0, d.fail("invalid hex digit %q", c)
	}
	return byte(n), nil
}

// length reads "(n)" and returns n.
func (d *notationDecoder) length() (int, error) {
	if err := d.in.Expect('('); err != nil {
		return 0, err
	}
	text, err := d.run(isDigit, 10)
	if err != nil {
		return 0, err
	}
	if err := d.in.Expect(')'); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, d.fail("invalid length %q", text)
	}
	return int(n), nil
}

// counted reads (n)"raw" after the leading 's'. Either quote may enclose the
// bytes as long as both ends match.
func (d *notationDecoder) counted() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}
	quote, err := d.in.ReadByte()
	if err != nil {
		return "", err
	}
	if quote != '"' && quote != '\'' {
		return "", d.fail("expected a quote, found %q", quote)
	}
	raw := d.in.ReadBytes(n)
	if err := d.in.Expect(quote); err != nil {
		return "", err
	}
	return string(raw), nil
}

func (d *notationDecoder) binary() ([]byte, error) {
	d.in.ReadByte() // 'b'
	c, err := d.in.PeekByte()
	if err != nil {
		return nil, err
	}
	switch c {
	case '(':
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		if err := d.in.Expect('"'); err != nil {
			return nil, err
		}
		raw := d.in.ReadBytes(n)
		if err := d.in.Expect('"'); err != nil {
			return nil, err
		}
		return raw, nil

	case '6':
		text, err := d.encoded("64")
		if err != nil {
			return nil, err
		}
		return d.base64(text)

	case '1':
		text, err := d.encoded("16")
		if err != nil {
			return nil, err
		}
		return d.base16(text)
	}
	return nil, d.fail("unknown binary encoding %q", c)
}

// encoded reads the base marker and the quoted text after it, dropping
// whitespace.
func (d *notationDecoder) encoded(base string) ([]byte, error) {
	for i := range len(base) {
		if err := d.in.Expect(base[i]); err != nil {
			return nil, err
		}
	}
	if err := d.in.Expect('"'); err != nil {
		return nil, err
	}
	var text []byte
	for {
		c, err := d.in.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == '"' {
			return text, nil
		}
		if !isSpace(c) {
			text = append(text, c)
		}
	}
}

func (d *notationDecoder) base64(text []byte) ([]byte, error) {
	return decodeBase64(text, func() error { return d.fail("invalid base64 data") })
}

func (d *notationDecoder) base16(text []byte) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, d.fail("odd number of hex digits")
	}
	out := make([]byte, len(text)/2)
	for i := range out {
		hi, lo := hexNybbles[text[2*i]], hexNybbles[text[2*i+1]]
		if hi < 0 || lo < 0 {
			return nil, d.fail("invalid hex data")
		}
		out[i] = byte(hi)<<4 | byte(lo)
	}
	return out, nil
}

// decodeBase64 decodes padded or unpadded standard base64 with whitespace
// already removed.
func decodeBase64(text []byte, invalid func() error) ([]byte, error) {
	text = bytes.TrimRight(text, "=")
	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(text)))
	n, err := base64.RawStdEncoding.Decode(out, text)
	if err != nil {
		return nil, invalid()
	}
	return out[:n], nil
}
