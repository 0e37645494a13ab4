// Package generator provides DataFrames whose rows are produced by a UDF
package generator

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// CreateDataFrame is a factory for DataFrames producing rows from fn, which is
// typed against a single i64 argument. fn is called with 0, 1, 2, ... and the
// DataFrame ends at the first call returning nil.
func CreateDataFrame(compiler udf.Compiler, fn udf.Ref) (fuse.DataFrame, error) {
	return dataframe.CreateGeneratorDataFrame(compiler, fn)
}
