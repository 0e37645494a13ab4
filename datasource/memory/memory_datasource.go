// Package memory provides DataFrames over in-memory collections. Rows are packed
// into a single buffer when the DataFrame is created, and the buffer is handed
// to compiled units as-is.
package memory

import (
	"fmt"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// CreateDataFrame is a factory for DataFrames over rows, each of which must be a
// value of Schema s. Tuples and arrays are given as []interface{}.
func CreateDataFrame(compiler udf.Compiler, rows []interface{}, s schema.Schema) (fuse.DataFrame, error) {
	return create(compiler, rows, s, false)
}

// CreateIndexedDataFrame is CreateDataFrame, but each row is prefixed with its
// i64 position in rows
func CreateIndexedDataFrame(compiler udf.Compiler, rows []interface{}, s schema.Schema) (fuse.DataFrame, error) {
	return create(compiler, rows, s, true)
}

// FromBytes is a factory for DataFrames over length packed rows of Schema s.
// data is not copied, and must not be modified afterwards.
func FromBytes(compiler udf.Compiler, data []byte, length int, s schema.Schema, addIndex bool) (fuse.DataFrame, error) {
	return dataframe.CreateCollectionDataFrame(compiler, data, length, s, addIndex)
}

func create(compiler udf.Compiler, rows []interface{}, s schema.Schema, addIndex bool) (fuse.DataFrame, error) {
	if !s.IsValid() {
		return nil, errors.SchemaError{Code: errors.InvalidSource, Op: string(fuse.CollectionSourceOpType), Detail: "collection schema is invalid"}
	}
	data, err := partition.Encode(s, rows)
	if err != nil {
		return nil, errors.SchemaError{
			Code:   errors.InvalidSource,
			Op:     string(fuse.CollectionSourceOpType),
			Found:  s.String(),
			Detail: fmt.Sprintf("cannot pack collection: %s", err),
		}
	}
	return dataframe.CreateCollectionDataFrame(compiler, data, len(rows), s, addIndex)
}
