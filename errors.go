package llsd

import (
	"errors"
	"fmt"
	"io"
)

// ParseFailure is the count every parser returns when the input could not be
// parsed. It is the only negative value a parser ever reports.
const ParseFailure = -1

var (
	// ErrNilIO indicates that a parser or formatter was handed a nil io.Reader/io.Writer.
	ErrNilIO = errors.New("llsd: called with a nil io.Reader/io.Writer")

	// ErrMalformed indicates input that does not follow the grammar of the codec
	// reading it: an unrecognized tag, a mismatched quote or brace, a declared
	// count that disagrees with the data, or a stream that ended early.
	ErrMalformed = errors.New("llsd: malformed input")

	// ErrDepthExceeded indicates a document nested deeper than the configured maximum.
	ErrDepthExceeded = errors.New("llsd: maximum nesting depth exceeded")

	// ErrByteBudgetExceeded indicates that parsing needed more bytes than the
	// configured budget allowed.
	ErrByteBudgetExceeded = errors.New("llsd: byte budget exceeded")

	// ErrUnknownHeader indicates a stream header naming a format nobody registered.
	ErrUnknownHeader = errors.New("llsd: unrecognized stream header")

	// ErrUnknownFormat indicates a Kind without a registered parser or formatter.
	ErrUnknownFormat = errors.New("llsd: unknown serialization format")

	// ErrInvalidRead indicates that an io.Reader returned an invalid count from Read.
	ErrInvalidRead = errors.New("llsd: reader returned invalid count from Read")
)

// malformed wraps a grammar violation with the position it was found at.
func malformed(offset int64, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformed, offset, fmt.Sprintf(format, args...))
}

// streamError maps a failure reported by the Reader onto the parse error
// taxonomy: budget exhaustion stays distinct, anything else the stream did
// (including running dry) counts as malformed input.
func streamError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrByteBudgetExceeded), errors.Is(err, ErrMalformed), errors.Is(err, ErrDepthExceeded):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", ErrMalformed, io.ErrUnexpectedEOF)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
