package partition

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
)

func incompatible(s schema.Schema, format string, args ...interface{}) error {
	return errors.IncompatibleRowError{Schema: s.String(), Reason: fmt.Sprintf(format, args...)}
}

// putValue writes v into data, which must be exactly s.Size() bytes long
func putValue(s schema.Schema, data []byte, v interface{}) error {
	switch s.Kind() {
	case schema.Bool:
		b, ok := v.(bool)
		if !ok {
			return incompatible(s, "%T is not a bool", v)
		}
		if b {
			data[0] = 1
		} else {
			data[0] = 0
		}
	case schema.Int8, schema.Int16, schema.Int32, schema.Int64:
		i, err := toInt64(v)
		if err != nil {
			return incompatible(s, err.Error())
		}
		bits := uint(s.Size() * 8)
		if bits < 64 && (i < -1<<(bits-1) || i > 1<<(bits-1)-1) {
			return incompatible(s, "%d overflows %s", i, s)
		}
		putUint(s.Kind(), data, uint64(i))
	case schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint64:
		u, err := toUint64(v)
		if err != nil {
			return incompatible(s, err.Error())
		}
		bits := uint(s.Size() * 8)
		if bits < 64 && u > 1<<bits-1 {
			return incompatible(s, "%d overflows %s", u, s)
		}
		putUint(s.Kind(), data, u)
	case schema.Float32:
		f, err := toFloat64(v)
		if err != nil {
			return incompatible(s, err.Error())
		}
		binary.LittleEndian.PutUint32(data, math.Float32bits(float32(f)))
	case schema.Float64:
		f, err := toFloat64(v)
		if err != nil {
			return incompatible(s, err.Error())
		}
		binary.LittleEndian.PutUint64(data, math.Float64bits(f))
	case schema.Tuple:
		vals, ok := v.([]interface{})
		if !ok {
			return incompatible(s, "%T is not a tuple", v)
		}
		if len(vals) != s.NumFields() {
			return incompatible(s, "tuple has %d fields, expected %d", len(vals), s.NumFields())
		}
		offset := 0
		for i, val := range vals {
			f := s.Field(i)
			if err := putValue(f, data[offset:offset+f.Size()], val); err != nil {
				return err
			}
			offset += f.Size()
		}
	case schema.Array:
		vals, ok := v.([]interface{})
		if !ok {
			return incompatible(s, "%T is not an array", v)
		}
		if len(vals) != s.Len() {
			return incompatible(s, "array has %d elements, expected %d", len(vals), s.Len())
		}
		elem := s.Elem()
		width := elem.Size()
		for i, val := range vals {
			if err := putValue(elem, data[i*width:(i+1)*width], val); err != nil {
				return err
			}
		}
	default:
		return incompatible(s, "invalid schema")
	}
	return nil
}

func putUint(kind schema.Kind, data []byte, u uint64) {
	switch kind {
	case schema.Int8, schema.Uint8:
		data[0] = byte(u)
	case schema.Int16, schema.Uint16:
		binary.LittleEndian.PutUint16(data, uint16(u))
	case schema.Int32, schema.Uint32:
		binary.LittleEndian.PutUint32(data, uint32(u))
	default:
		binary.LittleEndian.PutUint64(data, u)
	}
}

// getValue reads a value of Schema s from data
func getValue(s schema.Schema, data []byte) interface{} {
	switch s.Kind() {
	case schema.Bool:
		return data[0] != 0
	case schema.Int8:
		return int8(data[0])
	case schema.Int16:
		return int16(binary.LittleEndian.Uint16(data))
	case schema.Int32:
		return int32(binary.LittleEndian.Uint32(data))
	case schema.Int64:
		return int64(binary.LittleEndian.Uint64(data))
	case schema.Uint8:
		return data[0]
	case schema.Uint16:
		return binary.LittleEndian.Uint16(data)
	case schema.Uint32:
		return binary.LittleEndian.Uint32(data)
	case schema.Uint64:
		return binary.LittleEndian.Uint64(data)
	case schema.Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(data))
	case schema.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data))
	case schema.Tuple:
		vals := make([]interface{}, s.NumFields())
		offset := 0
		for i := range vals {
			f := s.Field(i)
			vals[i] = getValue(f, data[offset:offset+f.Size()])
			offset += f.Size()
		}
		return vals
	case schema.Array:
		elem := s.Elem()
		width := elem.Size()
		vals := make([]interface{}, s.Len())
		for i := range vals {
			vals[i] = getValue(elem, data[i*width:(i+1)*width])
		}
		return vals
	default:
		return nil
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64, uint:
		u, _ := toUint64(v)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows i64", u)
		}
		return int64(u), nil
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%d is negative", i)
	}
	return uint64(i), nil
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%T is not a number", v)
		}
		return float64(i), nil
	}
}

// Coerce converts v into the canonical Go representation of Schema s, the same
// representation Decode produces. UDF results are coerced before they flow into
// the next operator, so that functions may return e.g. an int for an i64 column.
func Coerce(s schema.Schema, v interface{}) (interface{}, error) {
	buf := make([]byte, s.Size())
	if err := putValue(s, buf, v); err != nil {
		return nil, err
	}
	return getValue(s, buf), nil
}
