package llsd

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type xmlElement uint8

const (
	elemUnknown xmlElement = iota
	elemLLSD
	elemKey
	elemUndef
	elemBoolean
	elemInteger
	elemReal
	elemString
	elemUUID
	elemDate
	elemURI
	elemBinary
	elemMap
	elemArray
)

var xmlElements = map[string]xmlElement{
	"llsd":    elemLLSD,
	"key":     elemKey,
	"undef":   elemUndef,
	"boolean": elemBoolean,
	"integer": elemInteger,
	"real":    elemReal,
	"string":  elemString,
	"uuid":    elemUUID,
	"date":    elemDate,
	"uri":     elemURI,
	"binary":  elemBinary,
	"map":     elemMap,
	"array":   elemArray,
}

func (e xmlElement) container() bool { return e == elemMap || e == elemArray }

// XMLParser reads the XML element grammar rooted at <llsd>.
//
// Structural surprises are not fatal: a nested <llsd>, a second top-level
// value, a value inside a scalar, a <key> outside a map, a map value without a
// key or a <binary> with an encoding other than base64 is skipped along with
// everything inside it. An end tag that closes nothing open is ignored; one
// that closes an enclosing element drops the unfinished elements in between.
// Unknown elements read as undefined. Malformed XML, the byte budget and the
// depth limit still fail the whole parse.
type XMLParser struct {
	cfg parseConfig
}

var _ Parser = (*XMLParser)(nil)

func NewXMLParser(opts ...ParseOption) *XMLParser {
	return &XMLParser{cfg: newParseConfig(opts)}
}

func (p *XMLParser) Parse(r io.Reader, sd *SD) (int, error) {
	sd.Clear()
	in, err := openReader(r, p.cfg.maxBytes)
	if err != nil {
		return p.cfg.fail("xml", nil, sd, err)
	}
	d := &xmlDecoder{in: in, maxDepth: p.cfg.maxDepth, logger: p.cfg.logger}
	if err := d.run(); err != nil {
		return p.cfg.fail("xml", in, sd, err)
	}
	*sd = d.root
	return p.cfg.done("xml", in, d.count)
}

// xmlFrame is one open element.
type xmlFrame struct {
	name   string
	elem   xmlElement
	slot   *SD    // destination of a value element, nil otherwise
	remove func() // takes slot back out of its parent
}

type xmlDecoder struct {
	in       *Reader
	maxDepth int
	logger   *slog.Logger

	open       []xmlFrame
	containers int // open map and array frames
	root       SD
	key        string
	haveKey    bool
	text       []byte

	// skipThrough is the nesting level at which skipping began; zero when
	// not skipping.
	skipThrough int
	inLLSD      bool
	rootDone    bool
	count       int
}

func (d *xmlDecoder) run() error {
	dec := xml.NewDecoder(d.in)
	dec.Strict = true
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			if len(d.open) > 0 {
				return fmt.Errorf("%w: %w: <%s> is not closed", ErrMalformed, io.ErrUnexpectedEOF, d.open[len(d.open)-1].name)
			}
			return nil
		}
		if err != nil {
			if rerr := d.in.Err(); rerr != nil && rerr != io.EOF {
				err = rerr
			}
			return streamError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := d.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if d.end(t.Name.Local) {
				return nil
			}
		case xml.CharData:
			if d.skipThrough == 0 {
				d.text = append(d.text, t...)
			}
		}
	}
}

func (d *xmlDecoder) skip(name, why string) {
	d.open = append(d.open, xmlFrame{name: name})
	d.skipThrough = len(d.open)
	d.logger.Debug("llsd: skipping xml element", "codec", "xml", "tag", name, "reason", why, "offset", d.in.Count())
}

func (d *xmlDecoder) start(t xml.StartElement) error {
	name := t.Name.Local
	if d.skipThrough > 0 {
		d.open = append(d.open, xmlFrame{name: name})
		return nil
	}
	elem := xmlElements[name]

	if !d.inLLSD {
		if elem != elemLLSD {
			d.skip(name, "outside <llsd>")
			return nil
		}
		d.inLLSD = true
		d.open = append(d.open, xmlFrame{name: name, elem: elemLLSD})
		return nil
	}

	top := d.open[len(d.open)-1]
	switch elem {
	case elemLLSD:
		d.skip(name, "nested <llsd>")
		return nil
	case elemKey:
		if top.elem != elemMap {
			d.skip(name, "key outside a map")
			return nil
		}
		d.text = d.text[:0]
		d.open = append(d.open, xmlFrame{name: name, elem: elemKey})
		return nil
	case elemBinary:
		if enc, ok := attr(t, "encoding"); ok && enc != "base64" {
			d.skip(name, "unsupported binary encoding "+enc)
			return nil
		}
	}

	frame := xmlFrame{name: name, elem: elem}
	switch top.elem {
	case elemLLSD:
		if d.rootDone {
			d.skip(name, "second top-level value")
			return nil
		}
		d.rootDone = true
		frame.slot = &d.root
		frame.remove = d.root.Clear
	case elemMap:
		if !d.haveKey {
			d.skip(name, "map value without a key")
			return nil
		}
		parent, key := top.slot, d.key
		d.haveKey = false
		frame.slot = parent.Key(key)
		frame.remove = func() { parent.Erase(key) }
	case elemArray:
		parent, i := top.slot, top.slot.Size()
		frame.slot = parent.Index(i)
		frame.remove = func() { parent.EraseAt(i) }
	default:
		d.skip(name, "value inside "+top.name)
		return nil
	}

	if elem.container() {
		if d.maxDepth >= 0 && d.containers >= d.maxDepth {
			return fmt.Errorf("%w at offset %d", ErrDepthExceeded, d.in.Count())
		}
		d.containers++
		if elem == elemMap {
			frame.slot.SetEmptyMap()
		} else {
			frame.slot.SetEmptyArray()
		}
	}
	d.text = d.text[:0]
	d.open = append(d.open, frame)
	return nil
}

// end handles an end tag and reports whether the document is complete.
func (d *xmlDecoder) end(name string) bool {
	if len(d.open) == 0 {
		return false
	}
	if d.skipThrough > 0 {
		d.open = d.open[:len(d.open)-1]
		if len(d.open) < d.skipThrough {
			d.skipThrough = 0
		}
		return false
	}

	match := -1
	for i := len(d.open) - 1; i >= 0; i-- {
		if d.open[i].name == name {
			match = i
			break
		}
	}
	if match < 0 {
		d.logger.Debug("llsd: ignoring stray xml end tag", "codec", "xml", "tag", name, "offset", d.in.Count())
		return false
	}
	for len(d.open)-1 > match {
		d.discard()
	}

	frame := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]
	text := string(d.text)
	d.text = d.text[:0]

	switch frame.elem {
	case elemLLSD:
		d.inLLSD = false
		return true
	case elemKey:
		d.key, d.haveKey = text, true
		return false
	case elemMap, elemArray:
		d.containers--
		d.haveKey = false
	default:
		*frame.slot = d.scalar(frame.elem, text)
	}
	d.count++
	return false
}

// discard drops the innermost open element and whatever it already holds.
func (d *xmlDecoder) discard() {
	frame := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]
	d.logger.Debug("llsd: dropping unclosed xml element", "codec", "xml", "tag", frame.name, "offset", d.in.Count())
	switch {
	case frame.elem == elemKey:
		d.haveKey = false
	case frame.elem.container():
		d.containers--
		d.haveKey = false
	}
	if frame.remove != nil {
		frame.remove()
	}
}

func (d *xmlDecoder) scalar(elem xmlElement, text string) SD {
	switch elem {
	case elemBoolean:
		t := strings.TrimSpace(text)
		return Boolean(t == "true" || t == "1")
	case elemInteger:
		if n, ok := leadingInteger(text); ok {
			return Integer(n)
		}
		return Integer(String(text).AsInteger())
	case elemReal:
		return Real(String(text).AsReal())
	case elemString:
		return String(text)
	case elemUUID:
		return UUID(parseUUID(text))
	case elemDate:
		t, _ := parseDate(text)
		return Date(t)
	case elemURI:
		return NewURI(URI(text))
	case elemBinary:
		clean := strings.Map(func(r rune) rune {
			if r < 0x80 && isSpace(byte(r)) {
				return -1
			}
			return r
		}, text)
		b, err := decodeBase64([]byte(clean), func() error { return errors.New("invalid base64") })
		if err != nil {
			d.logger.Debug("llsd: invalid base64 in xml binary", "codec", "xml", "offset", d.in.Count())
		}
		return Binary(b)
	}
	return SD{}
}

// leadingInteger reads an optionally signed run of digits at the start of s,
// after any blanks, and ignores what follows.
func leadingInteger(s string) (int32, bool) {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	var n int64
	for ; i < len(s) && isDigit(s[i]); i++ {
		n = min(n*10+int64(s[i]-'0'), 1<<32)
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return int32(clamp(n, -1<<31, 1<<31-1)), true
}

func attr(t xml.StartElement, name string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
