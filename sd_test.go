package llsd

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var (
	refTime = time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	refUUID = uuid.MustParse("6b4e3c4a-2fbc-4c5e-9f5e-3a1f2b7c9d01")
)

func TestConversions(t *testing.T) {
	t.Run("Boolean", func(t *testing.T) {
		assert.Equal(t, int32(1), Boolean(true).AsInteger())
		assert.Equal(t, 1.0, Boolean(true).AsReal())
		assert.Equal(t, "true", Boolean(true).AsString())
		assert.Equal(t, int32(0), Boolean(false).AsInteger())
		assert.Equal(t, "", Boolean(false).AsString())
	})

	t.Run("Integer", func(t *testing.T) {
		assert.True(t, Integer(42).AsBoolean())
		assert.False(t, Integer(0).AsBoolean())
		assert.Equal(t, 42.0, Integer(42).AsReal())
		assert.Equal(t, "-42", Integer(-42).AsString())

		assert.Equal(t, int32(math.MaxInt32), Integer(int64(1)<<40).AsInteger())
		assert.Equal(t, int32(math.MinInt32), Integer(-(int64(1) << 40)).AsInteger())
		assert.Equal(t, int32(math.MaxInt32), Integer(uint64(math.MaxUint64)).AsInteger())
	})

	t.Run("Real", func(t *testing.T) {
		assert.True(t, Real(2.5).AsBoolean())
		assert.False(t, Real(0.0).AsBoolean())
		assert.False(t, Real(math.NaN()).AsBoolean())
		assert.Equal(t, int32(2), Real(2.7).AsInteger())
		assert.Equal(t, int32(-2), Real(-2.7).AsInteger())
		assert.Equal(t, int32(0), Real(math.NaN()).AsInteger())
		assert.Equal(t, int32(math.MaxInt32), Real(1e300).AsInteger())
		assert.Equal(t, int32(math.MinInt32), Real(math.Inf(-1)).AsInteger())
		assert.Equal(t, 0.25, Real(float32(0.25)).AsReal())
	})

	t.Run("RealText", func(t *testing.T) {
		cases := map[float64]string{
			0:            "0",
			2.5:          "2.5",
			0.1:          "0.1",
			-3:           "-3",
			1e20:         "100000000000000000000",
			1e21:         "1e+21",
			1e-7:         "1e-07",
			math.Inf(1):  "inf",
			math.Inf(-1): "-inf",
		}
		for v, want := range cases {
			assert.Equal(t, want, Real(v).AsString(), "%v", v)
		}
		assert.Equal(t, "nan", Real(math.NaN()).AsString())
	})

	t.Run("String", func(t *testing.T) {
		assert.True(t, String("abc").AsBoolean())
		assert.False(t, String("").AsBoolean())
		assert.Equal(t, 12.75, String(" 12.75 ").AsReal())
		assert.Equal(t, int32(12), String("12.75").AsInteger())
		assert.Zero(t, String("12abc").AsReal())
		assert.Equal(t, refUUID, String(refUUID.String()).AsUUID())
		assert.Equal(t, uuid.Nil, String("nonsense").AsUUID())
		assert.Equal(t, refTime, String("2006-01-02T15:04:05Z").AsDate())
		assert.Equal(t, refTime, String("2006-01-02T15:04:05.75Z").AsDate())
		assert.Equal(t, epoch, String("yesterday").AsDate())
		assert.Equal(t, epoch, String("").AsDate())
		assert.Equal(t, URI("http://example.com/?a=b"), String("http://example.com/?a=b").AsURI())
	})

	t.Run("UUIDDateURI", func(t *testing.T) {
		assert.Equal(t, "6b4e3c4a-2fbc-4c5e-9f5e-3a1f2b7c9d01", UUID(refUUID).AsString())
		assert.Equal(t, "2006-01-02T15:04:05Z", Date(refTime).AsString())
		assert.Equal(t, 1136214245.0, Date(refTime).AsReal())
		assert.Equal(t, "x:y", NewURI("x:y").AsString())
	})

	t.Run("DatesAreWholeSecondsInUTC", func(t *testing.T) {
		zone := time.FixedZone("UTC-7", -7*3600)
		d := Date(time.Date(2006, 1, 2, 8, 4, 5, 999_000_000, zone))
		assert.Equal(t, refTime, d.AsDate())
		assert.Equal(t, time.UTC, d.AsDate().Location())
		assert.Equal(t, epoch, Date(time.Time{}).AsDate())
	})

	t.Run("BinaryHasNoScalarConversion", func(t *testing.T) {
		b := Binary([]byte{1, 2})
		assert.False(t, b.AsBoolean())
		assert.Zero(t, b.AsInteger())
		assert.Zero(t, b.AsReal())
		assert.Empty(t, b.AsString())

		raw := b.AsBinary()
		raw[0] = 9
		assert.Equal(t, []byte{1, 2}, b.AsBinary(), "AsBinary hands out a copy")
		assert.Equal(t, []byte{}, Binary(nil).AsBinary())
	})

	t.Run("UndefinedAndComposites", func(t *testing.T) {
		for _, sd := range []SD{{}, EmptyMap(), ArrayOf(Integer(1))} {
			assert.False(t, sd.AsBoolean())
			assert.Zero(t, sd.AsInteger())
			assert.Zero(t, sd.AsReal())
			assert.Empty(t, sd.AsString())
			assert.Equal(t, uuid.Nil, sd.AsUUID())
			assert.Equal(t, epoch, sd.AsDate())
			assert.Empty(t, sd.AsURI())
			assert.Nil(t, sd.AsBinary())
		}
	})
}

type ContainerTestSuite struct {
	suite.Suite
}

func (s *ContainerTestSuite) TestTypeTags() {
	cases := []struct {
		sd   SD
		want Type
	}{
		{SD{}, TypeUndefined},
		{Boolean(true), TypeBoolean},
		{Integer(1), TypeInteger},
		{Real(1.0), TypeReal},
		{String("s"), TypeString},
		{UUID(refUUID), TypeUUID},
		{Date(refTime), TypeDate},
		{NewURI("u"), TypeURI},
		{Binary(nil), TypeBinary},
		{EmptyMap(), TypeMap},
		{EmptyArray(), TypeArray},
	}
	for _, tc := range cases {
		s.Assert().Equal(tc.want, tc.sd.Type(), tc.want.String())
	}
	s.Assert().Equal("unknown", Type(200).String())
}

func (s *ContainerTestSuite) TestAssignReplaces() {
	sd := MapOf(map[string]SD{"a": Integer(1)})
	sd.SetInteger(3)
	s.Assert().True(sd.IsInteger())
	s.Assert().Zero(sd.Size())

	sd.SetString("x")
	s.Assert().True(sd.IsString())
	s.Assert().Equal("x", sd.AsString())

	sd.Clear()
	s.Assert().True(sd.IsUndefined())
	s.Assert().False(sd.IsDefined())
}

func (s *ContainerTestSuite) TestMap() {
	var sd SD
	sd.Key("a").SetInteger(1)
	s.Require().True(sd.IsMap(), "Key turns undefined into a map")
	s.Assert().Equal(1, sd.Size())
	s.Assert().True(sd.Has("a"))

	s.Assert().True(sd.Get("missing").IsUndefined())
	s.Assert().Equal(1, sd.Size(), "Get never inserts")

	s.Assert().True(sd.Key("b").IsUndefined())
	s.Assert().Equal(2, sd.Size(), "Key creates missing entries")

	sd.Erase("b")
	s.Assert().False(sd.Has("b"))
	sd.Erase("nothing")

	sd.InsertKey("a", String("over"))
	s.Assert().Equal("over", sd.Get("a").AsString())
	s.Assert().Equal(1, sd.Size())

	scalar := Integer(3)
	scalar.Key("x").SetBoolean(true)
	s.Assert().True(scalar.IsMap())
	s.Assert().True(scalar.Get("x").AsBoolean())
}

func (s *ContainerTestSuite) TestMapOrder() {
	sd := EmptyMap()
	for _, k := range []string{"c", "a", "b"} {
		sd.InsertKey(k, String(k))
	}
	s.Assert().Equal([]string{"a", "b", "c"}, sd.Keys())

	var seen []string
	for k, v := range sd.Map() {
		s.Assert().Equal(k, v.AsString())
		seen = append(seen, k)
		if k == "b" {
			break
		}
	}
	s.Assert().Equal([]string{"a", "b"}, seen)
	s.Assert().Nil(Integer(1).Keys())
}

func (s *ContainerTestSuite) TestArray() {
	var sd SD
	sd.Index(5).SetString("x")
	s.Require().True(sd.IsArray())
	s.Assert().Equal(6, sd.Size())
	s.Assert().True(sd.At(0).IsUndefined())
	s.Assert().Equal("x", sd.At(5).AsString())
	s.Assert().True(sd.At(6).IsUndefined())
	s.Assert().True(sd.At(-1).IsUndefined())

	sd.Index(-1).SetInteger(1)
	s.Assert().Equal(6, sd.Size(), "a negative index is detached")

	var set SD
	set.Set(2, Integer(7))
	s.Assert().Equal(3, set.Size())
	s.Assert().Equal(int32(7), set.At(2).AsInteger())
}

func (s *ContainerTestSuite) TestArrayInsertErase() {
	sd := ArrayOf(String("a"), String("b"), String("c"))
	sd.Insert(1, String("x"))
	s.Assert().Equal("['a','x','b','c']", sd.String())

	sd.Insert(6, String("y"))
	s.Assert().Equal(7, sd.Size())
	s.Assert().True(sd.At(4).IsUndefined())
	s.Assert().Equal("y", sd.At(6).AsString())

	sd.EraseAt(0)
	sd.EraseAt(100)
	s.Assert().Equal("x", sd.At(0).AsString())
	s.Assert().Equal(6, sd.Size())

	sd.Append(Integer(9))
	s.Assert().Equal(int32(9), sd.At(6).AsInteger())

	var idx []int
	for i, v := range sd.Array() {
		idx = append(idx, i)
		if v.IsUndefined() {
			break
		}
	}
	s.Assert().Equal([]int{0, 1, 2, 3}, idx)
}

func (s *ContainerTestSuite) TestCopyOnWrite() {
	a := ArrayOf(Integer(1))
	b := a.Copy()
	b.Append(Integer(2))
	s.Assert().Equal(1, a.Size())
	s.Assert().Equal(2, b.Size())

	b.Index(0).SetInteger(9)
	s.Assert().Equal(int32(1), a.At(0).AsInteger())

	outer := MapOf(map[string]SD{"inner": ArrayOf(Integer(1))})
	copied := outer.Copy()
	copied.Key("inner").Append(Integer(2))
	s.Assert().Equal(1, outer.Get("inner").Size())
	s.Assert().Equal(2, copied.Get("inner").Size())

	got := outer.Get("inner")
	got.Append(Integer(3))
	s.Assert().Equal(1, outer.Get("inner").Size(), "Get returns an independent copy")

	// Sole owners mutate in place.
	solo := EmptyArray()
	block := solo.v
	solo.Append(Integer(1))
	s.Assert().Same(block, solo.v)
}

func (s *ContainerTestSuite) TestDeepCopy() {
	src := MapOf(map[string]SD{
		"bin": Binary([]byte{1}),
		"arr": ArrayOf(Integer(1)),
	})
	dup := src.DeepCopy()
	s.Assert().True(Equal(src, dup))
	s.Assert().NotSame(src.v, dup.v)

	dup.Key("bin").rawBinary()[0] = 7
	s.Assert().Equal([]byte{1}, src.Get("bin").AsBinary())
}

func (s *ContainerTestSuite) TestEqual() {
	s.Assert().True(Equal(Real(math.NaN()), Real(math.NaN())))
	s.Assert().False(Equal(Real(0.0), Real(math.Copysign(0, -1))))
	s.Assert().False(Equal(Integer(1), Real(1.0)))
	s.Assert().True(Equal(SD{}, SD{}))
	s.Assert().True(Equal(Date(refTime), Date(refTime.In(time.FixedZone("x", 3600)))))

	a := MapOf(map[string]SD{"k": ArrayOf(String("v"), Binary([]byte{1}))})
	b := MapOf(map[string]SD{"k": ArrayOf(String("v"), Binary([]byte{1}))})
	s.Assert().True(Equal(a, b))
	b.Key("k").Index(1).SetBinary([]byte{2})
	s.Assert().False(Equal(a, b))
	b.Erase("k")
	s.Assert().False(Equal(a, b))
}

func TestContainer(t *testing.T) {
	suite.Run(t, new(ContainerTestSuite))
}

func TestStringer(t *testing.T) {
	require.Equal(t, "i5", Integer(5).String())
	require.Equal(t, "!", SD{}.String())
	require.Equal(t, "{'a':1}", MapOf(map[string]SD{"a": Boolean(true)}).String())
}
