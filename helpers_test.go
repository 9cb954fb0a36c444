package llsd

import (
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// textAlphabet mixes markup, quoting, line ends and multi-byte characters so
// generated text exercises every escaping path that survives all three codecs.
var textAlphabet = []rune("abcXYZ019 <>&'\"-_.,:;!?/\\{}[]()\r\néß日本")

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func randomText(r *rand.Rand, max int) string {
	out := make([]rune, r.IntN(max+1))
	for i := range out {
		out[i] = textAlphabet[r.IntN(len(textAlphabet))]
	}
	return string(out)
}

func randomScalar(r *rand.Rand) SD {
	switch r.IntN(10) {
	case 0:
		return SD{}
	case 1:
		return Boolean(r.IntN(2) == 1)
	case 2:
		return Integer(int32(r.Uint32()))
	case 3:
		return Real(r.NormFloat64() * 1e6)
	case 4:
		return String(randomText(r, 24))
	case 5:
		var id uuid.UUID
		binary.BigEndian.PutUint64(id[:8], r.Uint64())
		binary.BigEndian.PutUint64(id[8:], r.Uint64())
		return UUID(id)
	case 6:
		return Date(time.Unix(r.Int64N(4e9), 0))
	case 7:
		return NewURI(URI("http://example.com/" + randomText(r, 12)))
	case 8:
		b := make([]byte, r.IntN(48))
		for i := range b {
			b[i] = byte(r.Uint32())
		}
		return Binary(b)
	}
	return String("")
}

// randomSD builds a tree at most depth containers deep.
func randomSD(r *rand.Rand, depth int) SD {
	if depth == 0 || r.IntN(3) == 0 {
		return randomScalar(r)
	}
	n := r.IntN(5)
	if r.IntN(2) == 0 {
		sd := EmptyMap()
		for range n {
			sd.InsertKey(randomText(r, 8), randomSD(r, depth-1))
		}
		return sd
	}
	sd := EmptyArray()
	for range n {
		sd.Append(randomSD(r, depth-1))
	}
	return sd
}

func randomTrees(seed uint64, n int) []SD {
	r := newRand(seed)
	trees := make([]SD, n)
	for i := range trees {
		trees[i] = randomSD(r, 5)
	}
	return trees
}

// countValues is the number of values a codec reports for sd.
func countValues(sd SD) int {
	n := 1
	for _, e := range sd.entries() {
		n += countValues(*e)
	}
	for _, e := range sd.items() {
		n += countValues(*e)
	}
	return n
}

// nested returns depth arrays, each holding the next.
func nested(depth int) SD {
	var sd SD
	for range depth {
		sd = ArrayOf(sd)
	}
	return sd
}
