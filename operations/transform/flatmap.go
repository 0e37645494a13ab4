package transform

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// FlatMap replaces each row with the elements of the array fn returns for it
func FlatMap(fn udf.Ref) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.FlatMapOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.FlatMap(d, fn)
		},
	}
}

// Flatten replaces each row, which must be an array, with its elements
func Flatten() *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.FlattenOpType,
		Do:     dataframe.Flatten,
	}
}
