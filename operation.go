package fuse

// DataFrameOperation is a lazy transformation of a DataFrame, applied via DataFrame.To.
// Do must not execute anything: it only builds the next operator.
type DataFrameOperation struct {
	OpType OpType
	Do     func(d DataFrame) (DataFrame, error)
}
