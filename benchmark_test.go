package llsd

import (
	"io"
	"testing"
)

func benchmarkTree() SD {
	sd := EmptyArray()
	for _, tree := range randomTrees(99, 64) {
		sd.Append(tree)
	}
	return sd
}

func BenchmarkBinaryFormat(b *testing.B) {
	sd := benchmarkTree()
	f := NewBinaryFormatter()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(sd, io.Discard)
	}
}

func BenchmarkBinaryParse(b *testing.B) {
	data := ToBinary(benchmarkTree())
	p := NewBinaryParser()
	var sd SD
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Parse(NewBytesReader(data), &sd)
	}
}

func BenchmarkNotationFormat(b *testing.B) {
	sd := benchmarkTree()
	f := NewNotationFormatter(FormatNone)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(sd, io.Discard)
	}
}

func BenchmarkNotationParse(b *testing.B) {
	data := []byte(ToNotation(benchmarkTree()))
	p := NewNotationParser()
	var sd SD
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Parse(NewBytesReader(data), &sd)
	}
}

func BenchmarkXMLFormat(b *testing.B) {
	sd := benchmarkTree()
	f := NewXMLFormatter(FormatNone)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(sd, io.Discard)
	}
}

func BenchmarkXMLParse(b *testing.B) {
	data := []byte(ToXML(benchmarkTree()))
	p := NewXMLParser()
	var sd SD
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Parse(NewBytesReader(data), &sd)
	}
}

func BenchmarkZip(b *testing.B) {
	sd := benchmarkTree()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Zip(sd)
	}
}

func BenchmarkUnzip(b *testing.B) {
	data := Zip(benchmarkTree())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Unzip(data)
	}
}

// Baseline: copying a tree only bumps a reference count.
func BenchmarkCopy(b *testing.B) {
	sd := benchmarkTree()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sd.Copy()
	}
}
