package llsd

import (
	"io"
	"strings"
)

// notationEscapes maps every byte to the text the notation formatter writes
// for it inside a single-quoted string.
var notationEscapes = func() (t [256]string) {
	const hex = "0123456789abcdef"
	for i := range t {
		c := byte(i)
		if c < 0x20 || c >= 0x7f {
			t[i] = `\x` + string([]byte{hex[c>>4], hex[c&0xf]})
		} else {
			t[i] = string(c)
		}
	}
	for c, esc := range map[byte]string{
		'\a': `\a`, '\b': `\b`, '\t': `\t`, '\n': `\n`, '\v': `\v`, '\f': `\f`, '\r': `\r`,
		'\'': `\'`, '\\': `\\`,
	} {
		t[c] = esc
	}
	return t
}()

// EscapeString returns s as it appears between single quotes in notation.
func EscapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	writeEscaped(&b, s)
	return b.String()
}

func writeEscaped(w io.StringWriter, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		esc := notationEscapes[s[i]]
		if len(esc) == 1 {
			continue
		}
		if start < i {
			_, _ = w.WriteString(s[start:i])
		}
		_, _ = w.WriteString(esc)
		start = i + 1
	}
	if start < len(s) {
		_, _ = w.WriteString(s[start:])
	}
}

// unescapes maps the letter after a backslash to the byte it stands for.
// Letters without an entry stand for themselves.
var unescapes = [256]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}
