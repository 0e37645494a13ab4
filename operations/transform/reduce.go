package transform

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// Reduce folds all rows into one with fn, which is called with (accumulator, row)
// and must return a value of the row Schema
func Reduce(fn udf.Ref) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.ReduceOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.Reduce(d, fn)
		},
	}
}

// ReduceByKey folds together rows sharing their leading field. Rows must be tuples
// of at least two fields; fn is called with two payloads (the remaining fields, or
// the second field alone) and must return a payload.
func ReduceByKey(fn udf.Ref) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.ReduceByKeyOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.ReduceByKey(d, fn)
		},
	}
}
