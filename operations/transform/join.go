package transform

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
)

// Join equi-joins the current DataFrame (the left side) with right on their leading
// fields, producing (key, left payload..., right payload...). The right side is
// loaded into the hash table.
func Join(right fuse.DataFrame) *fuse.DataFrameOperation {
	return join(right, true)
}

// JoinHashLeft is Join, but loads the left side into the hash table instead.
// Prefer it when the left side is the smaller of the two.
func JoinHashLeft(right fuse.DataFrame) *fuse.DataFrameOperation {
	return join(right, false)
}

func join(right fuse.DataFrame, hashRight bool) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.JoinOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.Join(d, right, hashRight)
		},
	}
}

// Cartesian pairs every row of the current DataFrame with every row of right,
// producing (left columns..., right columns...)
func Cartesian(right fuse.DataFrame) *fuse.DataFrameOperation {
	return &fuse.DataFrameOperation{
		OpType: fuse.CartesianOpType,
		Do: func(d fuse.DataFrame) (fuse.DataFrame, error) {
			return dataframe.Cartesian(d, right)
		},
	}
}
