package schema

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Schema
type Kind uint8

const (
	// Invalid is the zero Kind, carried by the zero Schema
	Invalid Kind = iota
	// Bool is a one-byte boolean
	Bool
	// Int8 is a signed 8-bit integer
	Int8
	// Int16 is a signed 16-bit integer
	Int16
	// Int32 is a signed 32-bit integer
	Int32
	// Int64 is a signed 64-bit integer
	Int64
	// Uint8 is an unsigned 8-bit integer
	Uint8
	// Uint16 is an unsigned 16-bit integer
	Uint16
	// Uint32 is an unsigned 32-bit integer
	Uint32
	// Uint64 is an unsigned 64-bit integer
	Uint64
	// Float32 is a 32-bit IEEE 754 float
	Float32
	// Float64 is a 64-bit IEEE 754 float
	Float64
	// Tuple is a fixed-size sequence of (possibly different) Schemas
	Tuple
	// Array is a fixed-length sequence of a single element Schema
	Array
)

var kindNames = map[Kind]string{
	Bool:    "bool",
	Int8:    "i8",
	Int16:   "i16",
	Int32:   "i32",
	Int64:   "i64",
	Uint8:   "u8",
	Uint16:  "u16",
	Uint32:  "u32",
	Uint64:  "u64",
	Float32: "f32",
	Float64: "f64",
	Tuple:   "tuple",
	Array:   "array",
}

var kindSizes = map[Kind]int{
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

// String returns the wire name of a Kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// IsScalar returns true iff this Kind is neither a Tuple nor an Array
func (k Kind) IsScalar() bool {
	return k != Invalid && k != Tuple && k != Array
}

// IsInteger returns true iff this Kind is a signed or unsigned integer
func (k Kind) IsInteger() bool {
	return k >= Int8 && k <= Uint64
}

// IsFloat returns true iff this Kind is a floating point number
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// Schema describes the fixed-size layout of the records flowing between operators.
// A Schema is immutable: every constructor returns a fresh value and no method
// modifies its receiver, so Schemas are always closed, finite nestings.
type Schema struct {
	kind   Kind
	fields []Schema
	elem   *Schema
	length int
}

// Of returns the Schema for a scalar Kind. It panics if kind is not scalar.
func Of(kind Kind) Schema {
	if !kind.IsScalar() {
		panic(fmt.Errorf("schema.Of requires a scalar kind, got %s", kind))
	}
	return Schema{kind: kind}
}

// BoolType returns the bool Schema
func BoolType() Schema { return Schema{kind: Bool} }

// Int8Type returns the i8 Schema
func Int8Type() Schema { return Schema{kind: Int8} }

// Int16Type returns the i16 Schema
func Int16Type() Schema { return Schema{kind: Int16} }

// Int32Type returns the i32 Schema
func Int32Type() Schema { return Schema{kind: Int32} }

// Int64Type returns the i64 Schema
func Int64Type() Schema { return Schema{kind: Int64} }

// Uint8Type returns the u8 Schema
func Uint8Type() Schema { return Schema{kind: Uint8} }

// Uint16Type returns the u16 Schema
func Uint16Type() Schema { return Schema{kind: Uint16} }

// Uint32Type returns the u32 Schema
func Uint32Type() Schema { return Schema{kind: Uint32} }

// Uint64Type returns the u64 Schema
func Uint64Type() Schema { return Schema{kind: Uint64} }

// Float32Type returns the f32 Schema
func Float32Type() Schema { return Schema{kind: Float32} }

// Float64Type returns the f64 Schema
func Float64Type() Schema { return Schema{kind: Float64} }

// TupleOf returns a Tuple Schema with the given fields, in order
func TupleOf(fields ...Schema) Schema {
	cp := make([]Schema, len(fields))
	copy(cp, fields)
	return Schema{kind: Tuple, fields: cp}
}

// ArrayOf returns an Array Schema of length elements
func ArrayOf(elem Schema, length int) Schema {
	if length < 0 {
		panic(fmt.Errorf("array length %d must not be negative", length))
	}
	e := elem
	return Schema{kind: Array, elem: &e, length: length}
}

// Kind returns the Kind of this Schema
func (s Schema) Kind() Kind {
	return s.kind
}

// IsValid returns false for the zero Schema
func (s Schema) IsValid() bool {
	return s.kind != Invalid
}

// IsTuple returns true iff this Schema is a Tuple
func (s Schema) IsTuple() bool {
	return s.kind == Tuple
}

// IsArray returns true iff this Schema is an Array
func (s Schema) IsArray() bool {
	return s.kind == Array
}

// NumFields returns the number of fields in a Tuple, or 0 otherwise
func (s Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the i'th field of a Tuple
func (s Schema) Field(i int) Schema {
	return s.fields[i]
}

// Fields returns a copy of the fields of a Tuple, or nil otherwise
func (s Schema) Fields() []Schema {
	if s.kind != Tuple {
		return nil
	}
	cp := make([]Schema, len(s.fields))
	copy(cp, s.fields)
	return cp
}

// Elem returns the element Schema of an Array. It panics for other kinds.
func (s Schema) Elem() Schema {
	if s.kind != Array {
		panic(fmt.Errorf("Elem called on non-array schema %s", s))
	}
	return *s.elem
}

// Len returns the number of elements of an Array, or 0 otherwise
func (s Schema) Len() int {
	return s.length
}

// Size returns the number of bytes a packed record of this Schema occupies
func (s Schema) Size() int {
	switch s.kind {
	case Tuple:
		size := 0
		for _, f := range s.fields {
			size += f.Size()
		}
		return size
	case Array:
		return s.elem.Size() * s.length
	default:
		return kindSizes[s.kind]
	}
}

// Equal returns true iff both Schemas describe the same layout
func (s Schema) Equal(other Schema) bool {
	if s.kind != other.kind {
		return false
	}
	switch s.kind {
	case Tuple:
		if len(s.fields) != len(other.fields) {
			return false
		}
		for i := range s.fields {
			if !s.fields[i].Equal(other.fields[i]) {
				return false
			}
		}
		return true
	case Array:
		return s.length == other.length && s.elem.Equal(*other.elem)
	default:
		return true
	}
}

// String returns a compact textual representation, e.g. (i64,[f64;3])
func (s Schema) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s Schema) write(b *strings.Builder) {
	switch s.kind {
	case Tuple:
		b.WriteByte('(')
		for i, f := range s.fields {
			if i > 0 {
				b.WriteByte(',')
			}
			f.write(b)
		}
		b.WriteByte(')')
	case Array:
		b.WriteByte('[')
		s.elem.write(b)
		fmt.Fprintf(b, ";%d]", s.length)
	default:
		b.WriteString(s.kind.String())
	}
}

// Normalize collapses nested single-field tuple wrappers, so that ((a,b)) and (a,b)
// are handed to UDF compilers identically. Arrays and multi-field tuples are
// normalized element-wise.
func (s Schema) Normalize() Schema {
	switch s.kind {
	case Tuple:
		if len(s.fields) == 1 && s.fields[0].kind == Tuple {
			return s.fields[0].Normalize()
		}
		fields := make([]Schema, len(s.fields))
		for i, f := range s.fields {
			fields[i] = f.Normalize()
		}
		return Schema{kind: Tuple, fields: fields}
	case Array:
		return ArrayOf(s.elem.Normalize(), s.length)
	default:
		return s
	}
}

// Columns returns the top-level fields of a Tuple, or the Schema itself as
// a single column otherwise
func (s Schema) Columns() []Schema {
	if s.kind == Tuple {
		return s.Fields()
	}
	return []Schema{s}
}
