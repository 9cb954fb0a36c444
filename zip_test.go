package llsd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// bulky is large enough that its compressed form spans many deflate blocks.
func bulky() SD {
	sd := EmptyArray()
	r := newRand(3)
	for range 200 {
		sd.Append(randomSD(r, 3))
	}
	return sd
}

func TestZipRoundTrip(t *testing.T) {
	for i, sd := range randomTrees(17, 100) {
		data := Zip(sd)
		require.NotEmpty(t, data)

		back, res := Unzip(data)
		require.Equal(t, ZipOK, res, "tree %d", i)
		require.True(t, Equal(sd, back), "tree %d: %s", i, sd)
	}
}

func TestUnzipDeprecatedHeader(t *testing.T) {
	sd := MapOf(map[string]SD{"x": Integer(1)})

	t.Run("BeforeCompressedData", func(t *testing.T) {
		data := append([]byte("<? LLSD/Binary ?>\n"), Zip(sd)...)
		back, res := Unzip(data)
		require.Equal(t, ZipOK, res)
		assert.True(t, Equal(sd, back))
	})

	t.Run("InsideInflatedPayload", func(t *testing.T) {
		data := deflate(t, append([]byte("<? LLSD/Binary ?>\n"), ToBinary(sd)...))
		back, res := Unzip(data)
		require.Equal(t, ZipOK, res)
		assert.True(t, Equal(sd, back))
	})
}

func TestUnzipFailures(t *testing.T) {
	valid := Zip(bulky())
	require.Greater(t, len(valid), 256)

	corrupt := bytes.Clone(valid)
	corrupt[len(corrupt)-1] ^= 0xFF

	cases := []struct {
		name string
		data []byte
		opts []ZipOption
		want ZipResult
	}{
		{"Empty", nil, nil, ZipSizeError},
		{"OnlyHeader", []byte("<? LLSD/Binary ?>\n"), nil, ZipSizeError},
		{"NotZlib", []byte("not zlib data at all"), nil, ZipDataError},
		{"BadChecksum", corrupt, nil, ZipDataError},
		{"Truncated", valid[:len(valid)/2], nil, ZipBufferError},
		{"NotBinary", deflate(t, []byte("zzz")), nil, ZipParseError},
		{"TooLarge", valid, []ZipOption{WithMaxInflatedSize(64)}, ZipMemError},
		{"TooDeep", Zip(nested(UnzipMaxDepth + 1)), nil, ZipParseError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sd, res := Unzip(tc.data, tc.opts...)
			assert.Equal(t, tc.want, res, res.String())
			assert.True(t, sd.IsUndefined())
		})
	}
}

func TestUnzipDepthOption(t *testing.T) {
	deep := nested(UnzipMaxDepth + 1)
	back, res := Unzip(Zip(deep), WithUnzipMaxDepth(UnzipMaxDepth+1))
	require.Equal(t, ZipOK, res)
	assert.True(t, Equal(deep, back))

	_, res = Unzip(Zip(nested(3)), WithUnzipMaxDepth(2))
	assert.Equal(t, ZipParseError, res)
}

func TestUnzipGzip(t *testing.T) {
	payload := []byte(strings.Repeat("legacy payload ", 100))

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	raw, res := UnzipGzip(buf.Bytes())
	require.Equal(t, ZipOK, res)
	assert.Equal(t, payload, raw)

	_, res = UnzipGzip(nil)
	assert.Equal(t, ZipSizeError, res)

	_, res = UnzipGzip(Zip(Integer(1)))
	assert.Equal(t, ZipDataError, res, "zlib framing is not gzip framing")

	_, res = UnzipGzip(buf.Bytes(), WithMaxInflatedSize(10))
	assert.Equal(t, ZipMemError, res)
}

func TestUnzipFrom(t *testing.T) {
	sd := ArrayOf(String("streamed"), Real(0.5))
	data := Zip(sd)
	stream := bytes.NewReader(append(bytes.Clone(data), "trailer"...))

	back, res := UnzipFrom(stream, int64(len(data)))
	require.Equal(t, ZipOK, res)
	assert.True(t, Equal(sd, back))
	assert.Equal(t, len("trailer"), stream.Len(), "only the payload is consumed")

	_, res = UnzipFrom(stream, 0)
	assert.Equal(t, ZipSizeError, res)

	_, res = UnzipFrom(bytes.NewReader(data), int64(len(data)+10))
	assert.Equal(t, ZipBufferError, res)
}

func TestZipResultString(t *testing.T) {
	names := map[ZipResult]string{
		ZipOK:          "ok",
		ZipDataError:   "data error",
		ZipBufferError: "buffer error",
		ZipMemError:    "memory error",
		ZipParseError:  "parse error",
		ZipSizeError:   "size error",
		ZipResult(42):  "unknown",
	}
	for res, want := range names {
		assert.Equal(t, want, res.String())
	}
}

func TestZipLogsFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	_, res := Unzip([]byte("not zlib data at all"), WithZipLogger(logger))
	require.Equal(t, ZipDataError, res)
	assert.Contains(t, logs.String(), `result="data error"`)
}

// oversized stands in for a stream whose buffer cannot grow any further.
type oversized struct{}

func (oversized) Read([]byte) (int, error) { panic(bytes.ErrTooLarge) }

func TestOutOfMemory(t *testing.T) {
	err := catchTooLarge(func() error { panic(bytes.ErrTooLarge) })
	assert.ErrorIs(t, err, bytes.ErrTooLarge)

	assert.NoError(t, catchTooLarge(func() error { return nil }))
	assert.PanicsWithValue(t, "other", func() {
		_ = catchTooLarge(func() error { panic("other") })
	})

	raw, res, err := inflate(oversized{}, Unlimited)
	assert.Nil(t, raw)
	assert.Equal(t, ZipMemError, res)
	assert.ErrorIs(t, err, bytes.ErrTooLarge)
}

func TestClassifyInflateError(t *testing.T) {
	assert.Equal(t, ZipBufferError, classifyInflateError(io.ErrUnexpectedEOF))
	assert.Equal(t, ZipBufferError, classifyInflateError(fmt.Errorf("inflate: %w", io.EOF)))
	assert.Equal(t, ZipDataError, classifyInflateError(zlib.ErrChecksum))
	assert.Equal(t, ZipDataError, classifyInflateError(errors.New("anything else")))
}
