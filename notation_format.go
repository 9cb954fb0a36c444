package llsd

import (
	"fmt"
	"io"
	"strconv"
)

// NotationFormatter writes values in the notation grammar read by
// NotationParser. Map keys are written in ascending order.
type NotationFormatter struct {
	Flags FormatFlags
	// RealFormat is a printf verb such as "%.3f" applied to reals. Empty
	// writes the shortest text that reads back exactly.
	RealFormat string
}

var _ Formatter = (*NotationFormatter)(nil)

func NewNotationFormatter(flags FormatFlags) *NotationFormatter {
	return &NotationFormatter{Flags: flags}
}

func (f *NotationFormatter) Format(sd SD, w io.Writer) (int, error) {
	out, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	count := f.format(out, sd, 0)
	if _, err := out.Result(); err != nil {
		return 0, err
	}
	return count, nil
}

func (f *NotationFormatter) format(w *Writer, sd SD, level int) int {
	pretty := f.Flags.Has(FormatPretty)
	count := 1
	switch sd.kind {
	case TypeMap:
		entries := sd.entries()
		if len(entries) == 0 {
			w.WriteString("{}")
			break
		}
		w.WriteString(f.open('{'))
		keys := sd.Keys()
		for i, k := range keys {
			if pretty {
				w.writeIndent(level + 1)
			}
			w.WriteByte('\'')
			writeEscaped(w, k)
			w.WriteString("':")
			count += f.format(w, *entries[k], level+1)
			f.separate(w, i == len(keys)-1)
		}
		f.close(w, '}', level)

	case TypeArray:
		items := sd.items()
		if len(items) == 0 {
			w.WriteString("[]")
			break
		}
		w.WriteString(f.open('['))
		for i, e := range items {
			if pretty {
				w.writeIndent(level + 1)
			}
			count += f.format(w, *e, level+1)
			f.separate(w, i == len(items)-1)
		}
		f.close(w, ']', level)

	case TypeBoolean:
		b := sd.AsBoolean()
		switch {
		case f.Flags.Has(FormatBoolAlpha) && b:
			w.WriteString("true")
		case f.Flags.Has(FormatBoolAlpha):
			w.WriteString("false")
		case b:
			w.WriteByte('1')
		default:
			w.WriteByte('0')
		}

	case TypeInteger:
		w.WriteByte('i')
		w.WriteString(strconv.FormatInt(int64(sd.AsInteger()), 10))

	case TypeReal:
		w.WriteByte('r')
		w.WriteString(realText(f.RealFormat, sd.AsReal()))

	case TypeUUID:
		w.WriteByte('u')
		w.WriteString(sd.AsString())

	case TypeString:
		w.WriteByte('\'')
		writeEscaped(w, sd.AsString())
		w.WriteByte('\'')

	case TypeDate:
		w.WriteString(`d"`)
		w.WriteString(sd.AsString())
		w.WriteByte('"')

	case TypeURI:
		w.WriteString(`l"`)
		writeEscapedURI(w, sd.AsString())
		w.WriteByte('"')

	case TypeBinary:
		b := sd.rawBinary()
		if f.Flags.Has(FormatPrettyBinary) {
			w.WriteString(`b16"`)
			for _, c := range b {
				w.WriteByte(upperHex[c>>4])
				w.WriteByte(upperHex[c&0xf])
			}
		} else {
			w.WriteString("b(")
			w.WriteString(strconv.Itoa(len(b)))
			w.WriteString(`)"`)
			w.Write(b)
		}
		w.WriteByte('"')

	default:
		w.WriteByte('!')
	}
	return count
}

func (f *NotationFormatter) open(c byte) string {
	if f.Flags.Has(FormatPretty) {
		return string(c) + "\n"
	}
	return string(c)
}

func (f *NotationFormatter) separate(w *Writer, last bool) {
	if !last {
		w.WriteByte(',')
	}
	if f.Flags.Has(FormatPretty) {
		w.WriteByte('\n')
	}
}

func (f *NotationFormatter) close(w *Writer, c byte, level int) {
	if f.Flags.Has(FormatPretty) {
		w.writeIndent(level)
	}
	w.WriteByte(c)
}

// realText renders v with a caller's printf format, or exactly without one.
func realText(format string, v float64) string {
	if format == "" {
		return formatReal(v)
	}
	return fmt.Sprintf(format, v)
}

// writeEscapedURI escapes like writeEscaped and also the double quote that
// encloses a URI.
func writeEscapedURI(w io.StringWriter, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		writeEscaped(w, s[start:i])
		_, _ = w.WriteString(`\"`)
		start = i + 1
	}
	writeEscaped(w, s[start:])
}
