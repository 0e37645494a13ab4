package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/schema"
)

func collectionStream(op *planOp) (stream, error) {
	var inSchema schema.Schema
	if err := inSchema.UnmarshalJSON([]byte(op.raw.Get("input_type").Raw)); err != nil {
		return nil, fmt.Errorf("operator %d: %w", op.id, err)
	}
	input := int(op.raw.Get("input").Int())
	addIndex := op.raw.Get("add_index").Bool()
	return func(inputs []native.Buffer, emit emitFn) error {
		if input < 0 || input >= len(inputs) {
			return fmt.Errorf("operator %d reads input %d, but %d inputs were given", op.id, input, len(inputs))
		}
		part, err := partition.FromBytes(inputs[input].Data, inputs[input].Len, inSchema)
		if err != nil {
			return err
		}
		var i int64
		return part.ForEachRow(func(row interface{}) error {
			if addIndex {
				row = append([]interface{}{i}, columns(inSchema, row)...)
			}
			i++
			return emit(row)
		})
	}, nil
}

func rangeStream(op *planOp) (stream, error) {
	from := op.raw.Get("from").Int()
	to := op.raw.Get("to").Int()
	step := op.raw.Get("step").Int()
	if step == 0 {
		return nil, fmt.Errorf("operator %d has a zero step", op.id)
	}
	return func(inputs []native.Buffer, emit emitFn) error {
		if (step > 0 && from >= to) || (step < 0 && from <= to) {
			return nil
		}
		// distances are compared unsigned so that stepping never overflows past to
		for v := from; ; v += step {
			if err := emit(v); err != nil {
				return err
			}
			if step > 0 && uint64(to-v) <= uint64(step) {
				return nil
			}
			if step < 0 && uint64(v-to) <= uint64(-step) {
				return nil
			}
		}
	}, nil
}

func generatorStream(op *planOp) (stream, error) {
	if op.fn == nil {
		return nil, fmt.Errorf("operator %d has no func", op.id)
	}
	args := []schema.Schema{schema.Int64Type()}
	return func(inputs []native.Buffer, emit emitFn) error {
		for i := int64(0); ; i++ {
			out, err := op.fn.call(op.op, args, i)
			if err != nil {
				return err
			}
			if out == nil {
				return nil
			}
			if out, err = partition.Coerce(op.output, denormalizeValue(op.output, out)); err != nil {
				return err
			}
			if err := emit(out); err != nil {
				return err
			}
		}
	}, nil
}

func csvStream(op *planOp) (stream, error) {
	path := op.raw.Get("path").String()
	cols := op.output.Columns()
	filters := []int{}
	for _, f := range op.raw.Get("filters").Array() {
		filters = append(filters, int(f.Int()))
	}
	if len(filters) == 0 {
		for i := range cols {
			filters = append(filters, i)
		}
	}
	if len(filters) != len(cols) {
		return nil, fmt.Errorf("operator %d selects %d columns for %d fields", op.id, len(filters), len(cols))
	}
	headerLines := int(op.raw.Get("header_lines").Int())
	delimiter := firstRune(op.raw.Get("delimiter").String(), ',')
	comment := firstRune(op.raw.Get("comment").String(), 0)
	return func(inputs []native.Buffer, emit emitFn) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		reader := csv.NewReader(f)
		reader.Comma = delimiter
		reader.Comment = comment
		reader.FieldsPerRecord = -1
		reader.ReuseRecord = true
		for i := 0; i < headerLines; i++ {
			if _, err := reader.Read(); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
		for line := headerLines + 1; ; line++ {
			record, err := reader.Read()
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			vals := make([]interface{}, len(cols))
			for i, idx := range filters {
				if idx >= len(record) {
					return fmt.Errorf("%s:%d: record has %d columns, column %d was requested", path, line, len(record), idx)
				}
				if vals[i], err = parseField(cols[i], record[idx]); err != nil {
					return fmt.Errorf("%s:%d: column %d: %w", path, line, idx, err)
				}
			}
			var row interface{} = vals
			if !op.output.IsTuple() {
				row = vals[0]
			}
			if row, err = partition.Coerce(op.output, row); err != nil {
				return err
			}
			if err := emit(row); err != nil {
				return err
			}
		}
	}, nil
}

func parseField(s schema.Schema, field string) (interface{}, error) {
	switch {
	case s.Kind() == schema.Bool:
		return strconv.ParseBool(field)
	case s.Kind().IsFloat():
		return strconv.ParseFloat(field, s.Size()*8)
	case s.Kind() >= schema.Uint8 && s.Kind() <= schema.Uint64:
		return strconv.ParseUint(field, 10, s.Size()*8)
	case s.Kind().IsInteger():
		return strconv.ParseInt(field, 10, s.Size()*8)
	}
	return nil, fmt.Errorf("cannot parse %s from csv", s)
}

func firstRune(s string, def rune) rune {
	if s == "" {
		return def
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
