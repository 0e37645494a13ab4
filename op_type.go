package fuse

// OpType describes the type of an operator, and is used as the "op" tag of serialized plans
type OpType string

const (
	// CollectionSourceOpType indicates that this operator reads a packed in-memory collection
	CollectionSourceOpType OpType = "collection_source"
	// RangeSourceOpType indicates that this operator produces an integer range
	RangeSourceOpType OpType = "range_source"
	// GeneratorSourceOpType indicates that this operator produces rows from a UDF
	GeneratorSourceOpType OpType = "generator_source"
	// CsvSourceOpType indicates that this operator reads a CSV file
	CsvSourceOpType OpType = "csv_source"
	// MapOpType indicates that this operator transforms each row
	MapOpType OpType = "map"
	// FilterOpType indicates that this operator drops rows failing a predicate
	FilterOpType OpType = "filter"
	// FlatMapOpType indicates that this operator turns each row into an array of rows
	FlatMapOpType OpType = "flat_map"
	// FlattenOpType indicates that this operator turns each array row into its elements
	FlattenOpType OpType = "flatten"
	// JoinOpType indicates that this operator equi-joins two inputs on their leading field
	JoinOpType OpType = "join"
	// CartesianOpType indicates that this operator produces the cross product of two inputs
	CartesianOpType OpType = "cartesian"
	// ReduceOpType indicates that this operator folds all rows into one
	ReduceOpType OpType = "reduce"
	// ReduceByKeyOpType indicates that this operator folds rows sharing a leading key
	ReduceByKeyOpType OpType = "reduce_by_key"
)

// IsSource returns true iff operators of this type have no parents
func (t OpType) IsSource() bool {
	switch t {
	case CollectionSourceOpType, RangeSourceOpType, GeneratorSourceOpType, CsvSourceOpType:
		return true
	}
	return false
}

// IsBreaker returns true iff operators of this type require materializing or
// regrouping all of their input rows, and therefore cannot be fused into a pipeline
func (t OpType) IsBreaker() bool {
	switch t {
	case JoinOpType, CartesianOpType, ReduceOpType, ReduceByKeyOpType:
		return true
	}
	return false
}

// NumParents returns the fixed number of parents an operator of this type has
func (t OpType) NumParents() int {
	switch {
	case t.IsSource():
		return 0
	case t == JoinOpType || t == CartesianOpType:
		return 2
	default:
		return 1
	}
}

// Action is a terminal action which triggers execution of a DataFrame
type Action string

const (
	// CollectAction materializes all rows
	CollectAction Action = "collect"
	// CountAction counts rows
	CountAction Action = "count"
	// ReduceAction folds all rows into a single value
	ReduceAction Action = "reduce"
)
