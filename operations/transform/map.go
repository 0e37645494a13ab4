package transform

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// Map transforms each row with fn. The output Schema is fn's return type.
func Map(fn udf.Ref) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.MapOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.Map(d, fn)
		},
	}
}
