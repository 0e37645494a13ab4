package partition

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
	"github.com/stretchr/testify/require"
)

func TestGetUint64(t *testing.T) {
	s := schema.Uint64Type()
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.MaxUint64)
	p, err := FromBytes(data, 1, s)
	require.Nil(t, err)
	v, err := p.GetRow(0)
	require.Nil(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)
}

func TestGetSetUint8(t *testing.T) {
	p := CreatePartition(schema.Uint8Type(), 256)
	for i := 0; i < 255; i++ {
		require.Nil(t, p.AppendRow(uint8(i)))
	}
	for i := 0; i < 255; i++ {
		v, err := p.GetRow(i)
		require.Nil(t, err)
		require.Equal(t, uint8(i), v)
	}
}

func TestEncodeDecodeNested(t *testing.T) {
	s := schema.TupleOf(schema.Int64Type(), schema.ArrayOf(schema.Float32Type(), 2), schema.TupleOf(schema.BoolType(), schema.Int16Type()))
	rows := []interface{}{
		[]interface{}{int64(-1), []interface{}{float32(1.5), float32(2.5)}, []interface{}{true, int16(-7)}},
		[]interface{}{int64(7), []interface{}{float32(0), float32(-3)}, []interface{}{false, int16(300)}},
	}
	data, err := Encode(s, rows)
	require.Nil(t, err)
	require.Len(t, data, 2*s.Size())
	decoded, err := Decode(s, data, 2)
	require.Nil(t, err)
	require.Equal(t, rows, decoded)
}

func TestEncodeCoercesIntegers(t *testing.T) {
	s := schema.TupleOf(schema.Int64Type(), schema.Float64Type())
	data, err := Encode(s, []interface{}{[]interface{}{3, 4}})
	require.Nil(t, err)
	decoded, err := Decode(s, data, 1)
	require.Nil(t, err)
	require.Equal(t, []interface{}{[]interface{}{int64(3), float64(4)}}, decoded)
}

func TestAppendRowRejectsMismatch(t *testing.T) {
	p := CreatePartition(schema.TupleOf(schema.Int64Type(), schema.Int64Type()), 1)
	require.NotNil(t, p.AppendRow([]interface{}{int64(1)}))
	require.NotNil(t, p.AppendRow("nope"))
	require.Equal(t, 0, p.GetNumRows())
	require.Len(t, p.Bytes(), 0)
}

func TestFromBytesTooShort(t *testing.T) {
	_, err := FromBytes(make([]byte, 7), 1, schema.Int64Type())
	require.NotNil(t, err)
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(schema.ArrayOf(schema.Int32Type(), 2), []interface{}{1, int64(2)})
	require.Nil(t, err)
	require.Equal(t, []interface{}{int32(1), int32(2)}, v)

	v, err = Coerce(schema.Int8Type(), -128)
	require.Nil(t, err)
	require.Equal(t, int8(-128), v)
	v, err = Coerce(schema.Uint32Type(), int64(math.MaxUint32))
	require.Nil(t, err)
	require.Equal(t, uint32(math.MaxUint32), v)
	v, err = Coerce(schema.Uint64Type(), uint64(math.MaxUint64))
	require.Nil(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)
	v, err = Coerce(schema.Int64Type(), uint64(math.MaxInt64))
	require.Nil(t, err)
	require.Equal(t, int64(math.MaxInt64), v)
}

func TestCoerceRejectsOverflow(t *testing.T) {
	cases := []struct {
		s schema.Schema
		v interface{}
	}{
		{schema.Int8Type(), 300},
		{schema.Int8Type(), -129},
		{schema.Int16Type(), int64(math.MaxInt16 + 1)},
		{schema.Int32Type(), int64(math.MinInt32 - 1)},
		{schema.Int64Type(), uint64(1 << 63)},
		{schema.Uint8Type(), 256},
		{schema.Uint32Type(), -1},
		{schema.Uint64Type(), int64(-1)},
		{schema.TupleOf(schema.Int64Type(), schema.Uint16Type()), []interface{}{1, 70000}},
	}
	for _, c := range cases {
		_, err := Coerce(c.s, c.v)
		require.NotNil(t, err, "%s <- %v", c.s, c.v)
		var rerr errors.IncompatibleRowError
		require.True(t, errors.As(err, &rerr))
	}
	_, err := Encode(schema.Int8Type(), []interface{}{1, 2, 1000})
	require.NotNil(t, err)
}
