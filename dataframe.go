package fuse

import "github.com/go-sif/fuse/schema"

// A DataFrame is a tool for constructing a lazy chain of operators applied to
// fixed-size records. DataFrames are immutable: To returns a new DataFrame.
type DataFrame interface {
	GetSchema() schema.Schema                         // GetSchema returns the Schema of the rows this DataFrame produces
	GetOpType() OpType                                // GetOpType returns the type of the operator this DataFrame represents
	To(ops ...*DataFrameOperation) (DataFrame, error) // To is a "functional operations" factory method for DataFrames, chaining operations onto the current one.
}
