package llsd

import (
	"bytes"
	"errors"
	"io"
	"log/slog"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// ZipResult reports how a decompression went.
type ZipResult int

const (
	ZipOK ZipResult = iota
	// ZipDataError means the compressed stream is corrupt.
	ZipDataError
	// ZipBufferError means the compressed stream ended early.
	ZipBufferError
	// ZipMemError means the inflated payload outgrew the allowed size.
	ZipMemError
	// ZipParseError means the payload inflated but is not a binary document.
	ZipParseError
	// ZipSizeError means there was nothing to decompress.
	ZipSizeError
)

func (r ZipResult) String() string {
	switch r {
	case ZipOK:
		return "ok"
	case ZipDataError:
		return "data error"
	case ZipBufferError:
		return "buffer error"
	case ZipMemError:
		return "memory error"
	case ZipParseError:
		return "parse error"
	case ZipSizeError:
		return "size error"
	}
	return "unknown"
}

// UnzipMaxDepth is the nesting limit applied to unzipped documents unless
// WithUnzipMaxDepth says otherwise.
const UnzipMaxDepth = 96

// deprecatedZipHeader may precede, or follow inflation of, payloads written
// by old peers.
const deprecatedZipHeader = "<? LLSD/Binary ?>"

type ZipOption func(*zipConfig)

type zipConfig struct {
	maxDepth    int
	maxInflated int64
	logger      *slog.Logger
}

func newZipConfig(opts []ZipOption) zipConfig {
	cfg := zipConfig{
		maxDepth:    UnzipMaxDepth,
		maxInflated: Unlimited,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithUnzipMaxDepth sets the nesting limit for the unzipped document.
func WithUnzipMaxDepth(depth int) ZipOption {
	return func(c *zipConfig) { c.maxDepth = depth }
}

// WithMaxInflatedSize caps the inflated payload; exceeding it reports
// ZipMemError. Negative means unbounded.
func WithMaxInflatedSize(n int64) ZipOption {
	return func(c *zipConfig) { c.maxInflated = n }
}

func WithZipLogger(logger *slog.Logger) ZipOption {
	return func(c *zipConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Zip serializes sd in the binary format and deflates it with zlib framing at
// best compression. It returns nil if anything fails, running out of memory
// included.
func Zip(sd SD, opts ...ZipOption) []byte {
	cfg := newZipConfig(opts)
	var out bytes.Buffer
	err := catchTooLarge(func() error {
		buf := bytesBufPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer bytesBufPool.Put(buf)

		if _, err := NewBinaryFormatter().Format(sd, buf); err != nil {
			return err
		}
		zw, err := zlib.NewWriterLevel(&out, flate.BestCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(buf.Bytes()); err != nil {
			return err
		}
		return zw.Close()
	})
	if err != nil {
		cfg.logger.Warn("llsd: zip failed", "error", err)
		return nil
	}
	return out.Bytes()
}

// Unzip inflates a zlib payload produced by Zip and parses the binary
// document inside it.
func Unzip(data []byte, opts ...ZipOption) (SD, ZipResult) {
	cfg := newZipConfig(opts)
	data = stripZipHeader(data)
	if len(data) == 0 {
		return SD{}, cfg.report(ZipSizeError, nil)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return SD{}, cfg.report(classifyInflateError(err), err)
	}
	defer zr.Close()

	raw, res, err := inflate(zr, cfg.maxInflated)
	if res != ZipOK {
		return SD{}, cfg.report(res, err)
	}
	raw = stripZipHeader(raw)

	var sd SD
	if _, err := NewBinaryParser(WithMaxDepth(cfg.maxDepth), WithLogger(cfg.logger)).Parse(NewBytesReader(raw), &sd); err != nil {
		return SD{}, cfg.report(ZipParseError, err)
	}
	return sd, ZipOK
}

// UnzipGzip inflates a gzip-framed payload and returns the raw bytes.
func UnzipGzip(data []byte, opts ...ZipOption) ([]byte, ZipResult) {
	cfg := newZipConfig(opts)
	if len(data) == 0 {
		return nil, cfg.report(ZipSizeError, nil)
	}
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, cfg.report(classifyInflateError(err), err)
	}
	defer gr.Close()

	raw, res, err := inflate(gr, cfg.maxInflated)
	if res != ZipOK {
		return nil, cfg.report(res, err)
	}
	return raw, ZipOK
}

// UnzipFrom reads exactly size compressed bytes from r and unzips them.
func UnzipFrom(r io.Reader, size int64, opts ...ZipOption) (SD, ZipResult) {
	if size <= 0 {
		cfg := newZipConfig(opts)
		return SD{}, cfg.report(ZipSizeError, nil)
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, size); err != nil {
		cfg := newZipConfig(opts)
		return SD{}, cfg.report(ZipBufferError, err)
	}
	return Unzip(buf.Bytes(), opts...)
}

func (c *zipConfig) report(res ZipResult, err error) ZipResult {
	c.logger.Warn("llsd: unzip failed", "result", res.String(), "error", err)
	return res
}

func stripZipHeader(data []byte) []byte {
	if rest, ok := bytes.CutPrefix(data, []byte(deprecatedZipHeader)); ok {
		rest, _ = bytes.CutPrefix(rest, []byte("\n"))
		return rest
	}
	return data
}

// inflate drains r in fixed-size chunks into a growing buffer.
func inflate(r io.Reader, limit int64) ([]byte, ZipResult, error) {
	var raw []byte
	res := ZipOK
	err := catchTooLarge(func() error {
		bufPtr := bufPool.Get().(*[]byte)
		defer bufPool.Put(bufPtr)
		chunk := *bufPtr

		var out bytes.Buffer
		for {
			n, rerr := r.Read(chunk)
			if n > 0 {
				if limit >= 0 && int64(out.Len()+n) > limit {
					res = ZipMemError
					return errors.New("inflated payload exceeds the size limit")
				}
				out.Write(chunk[:n])
			}
			if rerr == io.EOF {
				raw = out.Bytes()
				return nil
			}
			if rerr != nil {
				res = classifyInflateError(rerr)
				return rerr
			}
		}
	})
	if errors.Is(err, bytes.ErrTooLarge) {
		res = ZipMemError
	}
	if err != nil {
		return nil, res, err
	}
	return raw, ZipOK, nil
}

// catchTooLarge runs fn and reports a bytes.ErrTooLarge panic from a growing
// buffer as an error. Any other panic is re-raised.
func catchTooLarge(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if p != bytes.ErrTooLarge {
				panic(p)
			}
			err = bytes.ErrTooLarge
		}
	}()
	return fn()
}

// classifyInflateError maps a failed read of the compressed stream to a
// result: running dry is a buffer error, anything else a corrupt stream.
func classifyInflateError(err error) ZipResult {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ZipBufferError
	}
	return ZipDataError
}
