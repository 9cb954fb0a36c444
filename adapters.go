package llsd

import (
	"bufio"
	"bytes"
	"strings"
)

type (
	bytesBufferWriterAdapter    struct{ *bytes.Buffer }
	stringsBuilderWriterAdapter struct{ *strings.Builder }
	bufioWriterAdapter          struct{ *bufio.Writer }
)

func (w *bytesBufferWriterAdapter) Flush() error    { return nil }
func (w *stringsBuilderWriterAdapter) Flush() error { return nil }
