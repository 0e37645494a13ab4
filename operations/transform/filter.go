package transform

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// Filter keeps the rows for which fn returns true. fn must return a bool.
func Filter(fn udf.Ref) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.FilterOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.Filter(d, fn)
		},
	}
}
