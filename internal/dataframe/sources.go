package dataframe

import (
	"fmt"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// CreateCollectionDataFrame is a factory for DataFrames reading length packed records
// of Schema s from data. If addIndex is true, each row is prefixed by its i64 index.
func CreateCollectionDataFrame(compiler udf.Compiler, data []byte, length int, s schema.Schema, addIndex bool) (fuse.DataFrame, error) {
	op := string(fuse.CollectionSourceOpType)
	if !s.IsValid() {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Detail: "collection schema is invalid"}
	}
	if length < 0 {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Detail: fmt.Sprintf("collection length %d must not be negative", length)}
	}
	if need := length * s.Size(); len(data) < need {
		return nil, errors.SchemaError{
			Code:   errors.InvalidSource,
			Op:     op,
			Found:  s.String(),
			Detail: fmt.Sprintf("buffer of %d bytes cannot hold %d records of %d bytes", len(data), length, s.Size()),
		}
	}
	out := s
	if addIndex {
		out = schema.TupleOf(append([]schema.Schema{schema.Int64Type()}, s.Columns()...)...)
	}
	df := newNode(fuse.CollectionSourceOpType, compiler, out)
	df.source = &sourceParams{
		data:      data[:length*s.Size()],
		length:    length,
		rowSchema: s,
		addIndex:  addIndex,
	}
	return df, nil
}

// CreateRangeDataFrame is a factory for DataFrames producing the i64 values
// from, from+step, ... up to (but excluding) to
func CreateRangeDataFrame(compiler udf.Compiler, from, to, step int64) (fuse.DataFrame, error) {
	if step == 0 {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: string(fuse.RangeSourceOpType), Detail: "range step must not be zero"}
	}
	df := newNode(fuse.RangeSourceOpType, compiler, schema.Int64Type())
	df.source = &sourceParams{from: from, to: to, step: step}
	return df, nil
}

// CreateGeneratorDataFrame is a factory for DataFrames producing rows from a UDF,
// which is called with the row index 0, 1, 2, ... until it returns nil
func CreateGeneratorDataFrame(compiler udf.Compiler, fn udf.Ref) (fuse.DataFrame, error) {
	frag, ret, err := compile(compiler, fn, schema.Int64Type())
	if err != nil {
		return nil, err
	}
	df := newNode(fuse.GeneratorSourceOpType, compiler, ret)
	df.fn = fn
	df.fragment = frag
	df.source = &sourceParams{}
	return df, nil
}

// CsvOptions configures the parsing of a CSV file
type CsvOptions struct {
	HeaderLines int  // The number of lines to ignore from the beginning of the file
	Delimiter   rune // The delimiter separating columns in the file. Defaults to ,
	Comment     rune // Lines beginning with the comment character are ignored. Defaults to no comment character.
}

// CreateCsvDataFrame is a factory for DataFrames reading rows from a CSV file.
// filters lists the indices of the columns to keep (all columns if empty), and
// s describes the kept columns. Only scalar columns are supported.
func CreateCsvDataFrame(compiler udf.Compiler, path string, s schema.Schema, filters []int, opts CsvOptions) (fuse.DataFrame, error) {
	op := string(fuse.CsvSourceOpType)
	if path == "" {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Detail: "csv path must not be empty"}
	}
	cols := s.Columns()
	for i, c := range cols {
		if !c.Kind().IsScalar() {
			return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Found: c.String(), Detail: fmt.Sprintf("csv column %d must be a scalar", i)}
		}
	}
	if len(filters) > 0 && len(filters) != len(cols) {
		return nil, errors.SchemaError{
			Code:   errors.InvalidSource,
			Op:     op,
			Found:  s.String(),
			Detail: fmt.Sprintf("%d columns selected but schema has %d", len(filters), len(cols)),
		}
	}
	for _, idx := range filters {
		if idx < 0 {
			return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Detail: fmt.Sprintf("column index %d must not be negative", idx)}
		}
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.HeaderLines < 0 || opts.Comment == opts.Delimiter {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: op, Detail: "invalid csv options"}
	}
	df := newNode(fuse.CsvSourceOpType, compiler, s)
	df.source = &sourceParams{path: path, filters: append([]int(nil), filters...), csv: opts}
	return df, nil
}
