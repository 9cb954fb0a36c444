package llsd

import (
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type identifies which variant an SD holds.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeBoolean
	TypeInteger
	TypeReal
	TypeString
	TypeUUID
	TypeDate
	TypeURI
	TypeBinary
	TypeMap
	TypeArray
)

var typeNames = [...]string{
	TypeUndefined: "undefined",
	TypeBoolean:   "boolean",
	TypeInteger:   "integer",
	TypeReal:      "real",
	TypeString:    "string",
	TypeUUID:      "uuid",
	TypeDate:      "date",
	TypeURI:       "uri",
	TypeBinary:    "binary",
	TypeMap:       "map",
	TypeArray:     "array",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// URI is an opaque resource identifier. It round-trips through its string form
// unchanged.
type URI string

// SD is a structured data value: exactly one of undefined, boolean, integer,
// real, string, uuid, date, uri, binary, map or array. The zero value is
// undefined.
//
// Maps and arrays are stored in reference-counted blocks. Copy shares the block
// and the first mutation through either value duplicates it, so copies behave
// independently. Plain assignment (b := a) aliases the block like a slice
// header does; use Copy when the two values must evolve separately. Values that
// share a block must not be mutated from different goroutines; DeepCopy first.
type SD struct {
	kind Type
	v    any
}

type mapBlock struct {
	refs    int32
	entries map[string]*SD
}

type arrayBlock struct {
	refs  int32
	items []*SD
}

func (sd SD) Type() Type { return sd.kind }

func (sd SD) IsUndefined() bool { return sd.kind == TypeUndefined }
func (sd SD) IsDefined() bool   { return sd.kind != TypeUndefined }
func (sd SD) IsBoolean() bool   { return sd.kind == TypeBoolean }
func (sd SD) IsInteger() bool   { return sd.kind == TypeInteger }
func (sd SD) IsReal() bool      { return sd.kind == TypeReal }
func (sd SD) IsString() bool    { return sd.kind == TypeString }
func (sd SD) IsUUID() bool      { return sd.kind == TypeUUID }
func (sd SD) IsDate() bool      { return sd.kind == TypeDate }
func (sd SD) IsURI() bool       { return sd.kind == TypeURI }
func (sd SD) IsBinary() bool    { return sd.kind == TypeBinary }
func (sd SD) IsMap() bool       { return sd.kind == TypeMap }
func (sd SD) IsArray() bool     { return sd.kind == TypeArray }

// Clear resets sd to undefined.
func (sd *SD) Clear() {
	sd.release()
	sd.kind, sd.v = TypeUndefined, nil
}

// Assign replaces sd with a copy of v.
func (sd *SD) Assign(v SD) {
	sd.replace(v.Copy())
}

// replace stores v, which the caller hands over, in place of sd.
func (sd *SD) replace(v SD) {
	sd.release()
	*sd = v
}

func (sd *SD) SetBoolean(v bool)   { sd.replace(Boolean(v)) }
func (sd *SD) SetInteger(v int32)  { sd.replace(Integer(v)) }
func (sd *SD) SetReal(v float64)   { sd.replace(Real(v)) }
func (sd *SD) SetString(v string)  { sd.replace(String(v)) }
func (sd *SD) SetUUID(v uuid.UUID) { sd.replace(UUID(v)) }
func (sd *SD) SetDate(v time.Time) { sd.replace(Date(v)) }
func (sd *SD) SetURI(v URI)        { sd.replace(NewURI(v)) }
func (sd *SD) SetBinary(v []byte)  { sd.replace(Binary(v)) }
func (sd *SD) SetEmptyMap()        { sd.replace(EmptyMap()) }
func (sd *SD) SetEmptyArray()      { sd.replace(EmptyArray()) }

// Copy returns a value with independent mutation semantics that shares
// composite storage with sd until one of them is written.
func (sd SD) Copy() SD {
	switch b := sd.v.(type) {
	case *mapBlock:
		b.refs++
	case *arrayBlock:
		b.refs++
	}
	return sd
}

// DeepCopy returns a value that shares no storage with sd.
func (sd SD) DeepCopy() SD {
	switch b := sd.v.(type) {
	case *mapBlock:
		nb := &mapBlock{refs: 1, entries: make(map[string]*SD, len(b.entries))}
		for k, e := range b.entries {
			c := e.DeepCopy()
			nb.entries[k] = &c
		}
		return SD{kind: TypeMap, v: nb}
	case *arrayBlock:
		nb := &arrayBlock{refs: 1, items: make([]*SD, len(b.items))}
		for i, e := range b.items {
			c := e.DeepCopy()
			nb.items[i] = &c
		}
		return SD{kind: TypeArray, v: nb}
	case []byte:
		return SD{kind: TypeBinary, v: slices.Clone(b)}
	}
	return sd
}

// release drops sd's claim on its composite block.
func (sd *SD) release() {
	switch b := sd.v.(type) {
	case *mapBlock:
		if b.refs > 0 {
			b.refs--
		}
	case *arrayBlock:
		if b.refs > 0 {
			b.refs--
		}
	}
}

// mutableMap turns sd into a map if it is not one and makes its block
// exclusively owned.
func (sd *SD) mutableMap() *mapBlock {
	b, ok := sd.v.(*mapBlock)
	if !ok {
		sd.release()
		b = &mapBlock{refs: 1, entries: make(map[string]*SD)}
		sd.kind, sd.v = TypeMap, b
		return b
	}
	if b.refs > 1 {
		b.refs--
		nb := &mapBlock{refs: 1, entries: make(map[string]*SD, len(b.entries))}
		for k, e := range b.entries {
			c := e.Copy()
			nb.entries[k] = &c
		}
		sd.v = nb
		return nb
	}
	return b
}

// mutableArray turns sd into an array if it is not one and makes its block
// exclusively owned.
func (sd *SD) mutableArray() *arrayBlock {
	b, ok := sd.v.(*arrayBlock)
	if !ok {
		sd.release()
		b = &arrayBlock{refs: 1}
		sd.kind, sd.v = TypeArray, b
		return b
	}
	if b.refs > 1 {
		b.refs--
		nb := &arrayBlock{refs: 1, items: make([]*SD, len(b.items))}
		for i, e := range b.items {
			c := e.Copy()
			nb.items[i] = &c
		}
		sd.v = nb
		return nb
	}
	return b
}

// Size is the number of entries of a map or array, 0 otherwise.
func (sd SD) Size() int {
	switch b := sd.v.(type) {
	case *mapBlock:
		return len(b.entries)
	case *arrayBlock:
		return len(b.items)
	}
	return 0
}

// --- Map ---

func (sd SD) Has(key string) bool {
	if b, ok := sd.v.(*mapBlock); ok {
		_, ok = b.entries[key]
		return ok
	}
	return false
}

// Get returns the entry under key, or undefined. It never inserts.
func (sd SD) Get(key string) SD {
	if b, ok := sd.v.(*mapBlock); ok {
		if e, ok := b.entries[key]; ok {
			return e.Copy()
		}
	}
	return SD{}
}

// Key returns the entry under key for in-place mutation. A value that is not a
// map becomes an empty one first and a missing entry is created undefined.
func (sd *SD) Key(key string) *SD {
	b := sd.mutableMap()
	e, ok := b.entries[key]
	if !ok {
		e = &SD{}
		b.entries[key] = e
	}
	return e
}

// InsertKey stores a copy of v under key, converting sd to a map if needed.
func (sd *SD) InsertKey(key string, v SD) {
	sd.Key(key).Assign(v)
}

func (sd *SD) Erase(key string) {
	if _, ok := sd.v.(*mapBlock); !ok {
		return
	}
	b := sd.mutableMap()
	if e, ok := b.entries[key]; ok {
		e.release()
		delete(b.entries, key)
	}
}

// Keys returns the map's keys in ascending order.
func (sd SD) Keys() []string {
	if b, ok := sd.v.(*mapBlock); ok {
		return slices.Sorted(maps.Keys(b.entries))
	}
	return nil
}

// Map iterates a map's entries in ascending key order. Each value is a Copy.
func (sd SD) Map() iter.Seq2[string, SD] {
	return func(yield func(string, SD) bool) {
		b, ok := sd.v.(*mapBlock)
		if !ok {
			return
		}
		for _, k := range slices.Sorted(maps.Keys(b.entries)) {
			if !yield(k, b.entries[k].Copy()) {
				return
			}
		}
	}
}

// --- Array ---

// At returns the element at i, or undefined when out of range.
func (sd SD) At(i int) SD {
	if b, ok := sd.v.(*arrayBlock); ok && i >= 0 && i < len(b.items) {
		return b.items[i].Copy()
	}
	return SD{}
}

// Index returns the element at i for in-place mutation. A value that is not an
// array becomes an empty one first and the array grows with undefined values
// to cover i. A negative index yields a detached value.
func (sd *SD) Index(i int) *SD {
	if i < 0 {
		return &SD{}
	}
	b := sd.mutableArray()
	for len(b.items) <= i {
		b.items = append(b.items, &SD{})
	}
	return b.items[i]
}

// Set stores a copy of v at i, padding the array with undefined values as needed.
func (sd *SD) Set(i int, v SD) {
	if i < 0 {
		return
	}
	sd.Index(i).Assign(v)
}

// Insert stores a copy of v at i and shifts the tail up by one. Inserting past
// the end pads with undefined values.
func (sd *SD) Insert(i int, v SD) {
	if i < 0 {
		return
	}
	b := sd.mutableArray()
	for len(b.items) < i {
		b.items = append(b.items, &SD{})
	}
	c := v.Copy()
	b.items = slices.Insert(b.items, i, &c)
}

// Append adds a copy of v to the end of the array.
func (sd *SD) Append(v SD) {
	b := sd.mutableArray()
	c := v.Copy()
	b.items = append(b.items, &c)
}

// EraseAt removes the element at i and shifts the tail down.
func (sd *SD) EraseAt(i int) {
	if b, ok := sd.v.(*arrayBlock); !ok || i < 0 || i >= len(b.items) {
		return
	}
	b := sd.mutableArray()
	b.items[i].release()
	b.items = slices.Delete(b.items, i, i+1)
}

// Array iterates an array's elements in order. Each value is a Copy.
func (sd SD) Array() iter.Seq2[int, SD] {
	return func(yield func(int, SD) bool) {
		b, ok := sd.v.(*arrayBlock)
		if !ok {
			return
		}
		for i, e := range b.items {
			if !yield(i, e.Copy()) {
				return
			}
		}
	}
}

// entries and items expose the blocks to the formatters without copying.
func (sd SD) entries() map[string]*SD {
	if b, ok := sd.v.(*mapBlock); ok {
		return b.entries
	}
	return nil
}

func (sd SD) items() []*SD {
	if b, ok := sd.v.(*arrayBlock); ok {
		return b.items
	}
	return nil
}

// adoptKey stores v under key without copying it. Parsers use it for values
// nothing else references.
func (sd *SD) adoptKey(key string, v SD) {
	sd.Key(key).replace(v)
}

// adoptAppend appends v without copying it.
func (sd *SD) adoptAppend(v SD) {
	b := sd.mutableArray()
	b.items = append(b.items, &v)
}
