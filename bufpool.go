package llsd

import (
	"bytes"
	"sync"
)

// bytesBufPool reuses the intermediate buffers the compression helper
// serializes into before deflating.
var bytesBufPool = sync.Pool{
	New: func() any {
		// A 4KB default is chosen to avoid re-allocations for common payload sizes.
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

const CHUNK_SIZE = 32 * 1024

// bufPool holds the fixed-size chunks the inflate loop reads into.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, CHUNK_SIZE)
		return &b
	},
}
