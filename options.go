package llsd

import "log/slog"

// ParseOption configures a parser.
type ParseOption func(*parseConfig)

type parseConfig struct {
	maxDepth int
	maxBytes int64
	logger   *slog.Logger
}

func newParseConfig(opts []ParseOption) parseConfig {
	cfg := parseConfig{
		maxDepth: Unlimited,
		maxBytes: Unlimited,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxDepth bounds how deeply maps and arrays may nest. A document that
// goes deeper fails with ErrDepthExceeded. Negative means unbounded.
func WithMaxDepth(depth int) ParseOption {
	return func(c *parseConfig) {
		if depth < 0 {
			depth = Unlimited
		}
		c.maxDepth = depth
	}
}

// WithMaxBytes bounds how many bytes a parse may consume. Reading past the
// budget fails with ErrByteBudgetExceeded. Negative means unbounded. It has no
// effect when the parser is handed a *Reader, which keeps its own budget.
func WithMaxBytes(n int64) ParseOption {
	return func(c *parseConfig) {
		if n < 0 {
			n = Unlimited
		}
		c.maxBytes = n
	}
}

// WithLogger sets the logger parse results are reported to.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// fail clears the destination, logs the failure and returns the failure pair.
func (c *parseConfig) fail(codec string, in *Reader, sd *SD, err error) (int, error) {
	sd.Clear()
	var offset int64
	if in != nil {
		offset = in.Count()
	}
	c.logger.Debug("llsd: parse failed", "codec", codec, "offset", offset, "error", err)
	return ParseFailure, err
}

func (c *parseConfig) done(codec string, in *Reader, count int) (int, error) {
	c.logger.Debug("llsd: parsed", "codec", codec, "values", count, "bytes", in.Count())
	return count, nil
}

// childDepth is the depth budget handed to the contents of a map or array.
func childDepth(depth int) int {
	if depth > 0 {
		return depth - 1
	}
	return depth
}

// FormatFlags select formatter output variants. They combine with |.
type FormatFlags uint32

const (
	FormatNone FormatFlags = 0
	// FormatPretty indents nested values four spaces per level and puts
	// each entry on its own line.
	FormatPretty FormatFlags = 1 << (iota - 1)
	// FormatPrettyBinary writes notation binary as b16"HEX" instead of the
	// raw counted form.
	FormatPrettyBinary
	// FormatBoolAlpha writes notation booleans as true/false instead of 1/0.
	FormatBoolAlpha
	// FormatXMLUniformIndent indents XML array elements like map values.
	// Without it arrays keep the historical one-level-shallower indentation.
	FormatXMLUniformIndent
)

func (f FormatFlags) Has(flag FormatFlags) bool { return f&flag != 0 }
