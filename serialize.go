package llsd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// MaxHeaderLen is the most Deserialize reads while looking for a header line.
const MaxHeaderLen = 20

// Deserialize parses a value whose format is announced by a header line such
// as "<? LLSD/XML ?>". Without a header, a document starting with <llsd> or
// any other '<' is read as XML and anything else as notation.
func Deserialize(r io.Reader, sd *SD, opts ...ParseOption) (int, error) {
	sd.Clear()
	cfg := newParseConfig(opts)
	in, err := openReader(r, cfg.maxBytes)
	if err != nil {
		return cfg.fail("dispatch", nil, sd, err)
	}

	if _, err := in.SkipSpace(); err != nil {
		if in.IsEOF() {
			return 0, nil
		}
		return cfg.fail("dispatch", in, sd, streamError(err))
	}

	limit := int64(MaxHeaderLen)
	if rem := in.Remaining(); rem >= 0 && rem < limit {
		limit = rem
	}
	var head []byte
	for int64(len(head)) < limit {
		c, err := in.ReadByte()
		if err != nil {
			if in.IsEOF() {
				break
			}
			return cfg.fail("dispatch", in, sd, streamError(err))
		}
		head = append(head, c)
		if c == '\n' {
			break
		}
	}
	var f *Format
	kind, rest := KindNotation, head
	switch {
	case len(head) >= 6 && strings.EqualFold(string(head[:6]), "<llsd>"):
		kind = KindXML

	case bytes.HasPrefix(head, []byte("<?")) && bytes.Contains(head, []byte("?>")):
		end := bytes.Index(head, []byte("?>"))
		token := strings.TrimSpace(string(head[2:end]))
		if found, ok := LookupFormat(token); ok {
			f, rest = found, bytes.TrimLeft(head[end+2:], " \t\n\v\f\r")
			break
		}
		if len(token) >= 3 && strings.EqualFold(token[:3], "xml") {
			// An XML declaration rather than a stream header.
			kind = KindXML
			break
		}
		cfg.logger.Warn("llsd: unknown stream header", "header", token)
		return cfg.fail("dispatch", in, sd, fmt.Errorf("%w: %q", ErrUnknownHeader, token))

	case len(head) > 0 && head[0] == '<':
		kind = KindXML
	}

	if f == nil {
		var ok bool
		if f, ok = formatFor(kind); !ok {
			return cfg.fail("dispatch", in, sd, fmt.Errorf("%w: %s", ErrUnknownFormat, kind))
		}
	}
	// The remainder is still metered by in; the consumed prefix already was.
	inner := append(opts[:len(opts):len(opts)], WithMaxBytes(Unlimited))
	return f.NewParser(inner...).Parse(PrependReader(rest, in), sd)
}

// Serialize writes the header line for kind and then sd in that format.
func Serialize(sd SD, w io.Writer, kind Kind, flags FormatFlags) (int, error) {
	f, ok := formatFor(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, kind)
	}
	out, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	out.WriteString("<? " + f.Header + " ?>\n")
	count, err := f.NewFormatter(flags).Format(sd, out)
	if err != nil {
		return 0, err
	}
	if _, err := out.Result(); err != nil {
		return 0, err
	}
	return count, nil
}

// ToBinary returns sd in the binary format, without a header.
func ToBinary(sd SD) []byte {
	b, _ := marshal(NewBinaryFormatter(), sd)
	return b
}

// FromBinary parses a headerless binary document.
func FromBinary(data []byte, opts ...ParseOption) (SD, error) {
	var sd SD
	err := unmarshal(NewBinaryParser(opts...), data, &sd)
	return sd, err
}

// ToNotation returns sd in compact notation, without a header.
func ToNotation(sd SD) string {
	b, _ := marshal(NewNotationFormatter(FormatNone), sd)
	return string(b)
}

// FromNotation parses a headerless notation document.
func FromNotation(text string, opts ...ParseOption) (SD, error) {
	var sd SD
	_, err := NewNotationParser(opts...).Parse(strings.NewReader(text), &sd)
	return sd, err
}

// ToXML returns sd as a compact <llsd> document.
func ToXML(sd SD) string {
	b, _ := marshal(NewXMLFormatter(FormatNone), sd)
	return string(b)
}

// ToPrettyXML returns sd as an indented <llsd> document.
func ToPrettyXML(sd SD) string {
	b, _ := marshal(NewXMLFormatter(FormatPretty), sd)
	return string(b)
}

// FromXML parses an <llsd> document.
func FromXML(text string, opts ...ParseOption) (SD, error) {
	var sd SD
	_, err := NewXMLParser(opts...).Parse(strings.NewReader(text), &sd)
	return sd, err
}

// String renders sd in notation.
func (sd SD) String() string { return ToNotation(sd) }

func (sd SD) MarshalBinary() ([]byte, error) {
	return marshal(NewBinaryFormatter(), sd)
}

func (sd *SD) UnmarshalBinary(data []byte) error {
	return unmarshal(NewBinaryParser(), data, sd)
}

func (sd SD) MarshalText() ([]byte, error) {
	return marshal(NewNotationFormatter(FormatNone), sd)
}

func (sd *SD) UnmarshalText(text []byte) error {
	return unmarshal(NewNotationParser(), text, sd)
}
