package llsd

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// Format ties a wire format to its stream header and codec constructors.
type Format struct {
	Kind Kind
	// Header is the token written between "<? " and " ?>" on the first line
	// of a serialized stream. Lookups ignore case.
	Header       string
	NewParser    func(opts ...ParseOption) Parser
	NewFormatter func(flags FormatFlags) Formatter
}

var (
	formatsByHeader = xsync.NewMap[string, *Format]()
	formatsByKind   = xsync.NewMap[Kind, *Format]()
)

func init() {
	RegisterFormat(&Format{
		Kind:         KindBinary,
		Header:       "LLSD/Binary",
		NewParser:    func(opts ...ParseOption) Parser { return NewBinaryParser(opts...) },
		NewFormatter: func(FormatFlags) Formatter { return NewBinaryFormatter() },
	})
	RegisterFormat(&Format{
		Kind:         KindXML,
		Header:       "LLSD/XML",
		NewParser:    func(opts ...ParseOption) Parser { return NewXMLParser(opts...) },
		NewFormatter: func(flags FormatFlags) Formatter { return NewXMLFormatter(flags) },
	})
	RegisterFormat(&Format{
		Kind:         KindNotation,
		Header:       "llsd/notation",
		NewParser:    func(opts ...ParseOption) Parser { return NewNotationParser(opts...) },
		NewFormatter: func(flags FormatFlags) Formatter { return NewNotationFormatter(flags) },
	})
}

// RegisterFormat makes f available to Deserialize under its header and to
// Serialize under its kind, replacing any earlier registration of either.
// It is safe to call concurrently with parsing.
func RegisterFormat(f *Format) {
	formatsByHeader.Store(strings.ToLower(f.Header), f)
	formatsByKind.Store(f.Kind, f)
}

// LookupFormat finds the format registered under a header token.
func LookupFormat(header string) (*Format, bool) {
	return formatsByHeader.Load(strings.ToLower(strings.TrimSpace(header)))
}

func formatFor(kind Kind) (*Format, bool) {
	return formatsByKind.Load(kind)
}
