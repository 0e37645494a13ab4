// Package rangesrc provides DataFrames over integer ranges
package rangesrc

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/udf"
)

// CreateDataFrame is a factory for DataFrames producing the i64 values
// from, from+step, ... up to but excluding to. step may be negative, but not zero.
func CreateDataFrame(compiler udf.Compiler, from, to, step int64) (fuse.DataFrame, error) {
	return dataframe.CreateRangeDataFrame(compiler, from, to, step)
}

// Until is CreateDataFrame(compiler, 0, n, 1)
func Until(compiler udf.Compiler, n int64) (fuse.DataFrame, error) {
	return dataframe.CreateRangeDataFrame(compiler, 0, n, 1)
}
