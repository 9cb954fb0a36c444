package llsd

import (
	"encoding/base64"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
	"\r", "&#13;",
)

// XMLFormatter writes values as an <llsd> document.
//
// With FormatPretty every element goes on its own line, indented four spaces
// per level, a map's keys level with their values. Array elements sit one
// level shallower than map values at the same depth;
// FormatXMLUniformIndent indents them like map values instead.
//
// Carriage returns are written as &#13; so they survive line-end
// normalization. Other C0 control characters have no XML 1.0 form: a string
// holding one is written as is and the document will not parse. Use the
// binary or notation format for such text.
type XMLFormatter struct {
	Flags FormatFlags
	// RealFormat is a printf verb applied to reals, as on NotationFormatter.
	RealFormat string
}

var _ Formatter = (*XMLFormatter)(nil)

func NewXMLFormatter(flags FormatFlags) *XMLFormatter {
	return &XMLFormatter{Flags: flags}
}

func (f *XMLFormatter) Format(sd SD, w io.Writer) (int, error) {
	out, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	out.WriteString("<llsd>")
	if f.Flags.Has(FormatPretty) {
		out.WriteByte('\n')
	}
	count := f.format(out, sd, 1)
	out.WriteString("</llsd>\n")
	if _, err := out.Result(); err != nil {
		return 0, err
	}
	return count, nil
}

func (f *XMLFormatter) format(w *Writer, sd SD, level int) int {
	pretty := f.Flags.Has(FormatPretty)
	if pretty {
		w.writeIndent(level)
	}
	count := 1
	switch sd.kind {
	case TypeMap:
		entries := sd.entries()
		if len(entries) == 0 {
			w.WriteString("<map />")
			break
		}
		w.WriteString("<map>")
		f.newline(w)
		for _, k := range sd.Keys() {
			if pretty {
				w.writeIndent(level + 1)
			}
			w.WriteString("<key>")
			xmlEscaper.WriteString(w, k)
			w.WriteString("</key>")
			f.newline(w)
			count += f.format(w, *entries[k], level+1)
		}
		if pretty {
			w.writeIndent(level)
		}
		w.WriteString("</map>")

	case TypeArray:
		items := sd.items()
		if len(items) == 0 {
			w.WriteString("<array />")
			break
		}
		w.WriteString("<array>")
		f.newline(w)
		child := level
		if f.Flags.Has(FormatXMLUniformIndent) {
			child++
		}
		for _, e := range items {
			count += f.format(w, *e, child)
		}
		if pretty {
			w.writeIndent(level)
		}
		w.WriteString("</array>")

	case TypeBoolean:
		w.WriteString("<boolean>")
		switch b := sd.AsBoolean(); {
		case f.Flags.Has(FormatBoolAlpha) && b:
			w.WriteString("true")
		case f.Flags.Has(FormatBoolAlpha):
			w.WriteString("false")
		case b:
			w.WriteByte('1')
		default:
			w.WriteByte('0')
		}
		w.WriteString("</boolean>")

	case TypeInteger:
		w.WriteString("<integer>")
		w.WriteString(strconv.FormatInt(int64(sd.AsInteger()), 10))
		w.WriteString("</integer>")

	case TypeReal:
		w.WriteString("<real>")
		w.WriteString(realText(f.RealFormat, sd.AsReal()))
		w.WriteString("</real>")

	case TypeUUID:
		if id := sd.AsUUID(); id == uuid.Nil {
			w.WriteString("<uuid />")
		} else {
			w.WriteString("<uuid>")
			w.WriteString(id.String())
			w.WriteString("</uuid>")
		}

	case TypeString:
		f.text(w, "string", sd.AsString())

	case TypeDate:
		w.WriteString("<date>")
		w.WriteString(sd.AsString())
		w.WriteString("</date>")

	case TypeURI:
		f.text(w, "uri", sd.AsString())

	case TypeBinary:
		b := sd.rawBinary()
		if len(b) == 0 {
			w.WriteString(`<binary encoding="base64" />`)
			break
		}
		w.WriteString(`<binary encoding="base64">`)
		enc := base64.NewEncoder(base64.StdEncoding, w)
		enc.Write(b)
		enc.Close()
		w.WriteString("</binary>")

	default:
		w.WriteString("<undef />")
	}
	f.newline(w)
	return count
}

// text writes an escaped text element, self-closing when s is empty.
func (f *XMLFormatter) text(w *Writer, name, s string) {
	if s == "" {
		w.WriteString("<" + name + " />")
		return
	}
	w.WriteString("<" + name + ">")
	xmlEscaper.WriteString(w, s)
	w.WriteString("</" + name + ">")
}

func (f *XMLFormatter) newline(w *Writer) {
	if f.Flags.Has(FormatPretty) {
		w.WriteByte('\n')
	}
}
