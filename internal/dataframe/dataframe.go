package dataframe

import (
	"fmt"
	"sync/atomic"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// nextNodeID hands out process-unique ids, used as keys of per-pass side tables
var nextNodeID int64

// A dataFrameImpl is one operator node of the operator graph. It is immutable once
// constructed: its schema is computed by the constructor, and every per-pass
// attribute (fingerprints, stage membership) lives in side tables keyed by id.
type dataFrameImpl struct {
	id        int64
	opType    fuse.OpType
	parents   []*dataFrameImpl // fixed length, determined by opType
	schema    schema.Schema    // the schema of the rows this operator produces
	compiler  udf.Compiler     // the compiler used to type UDFs of this and subsequent operators
	fn        udf.Ref          // the UDF of map, filter, flat_map, generator, reduce and reduce_by_key operators
	fragment  udf.Fragment     // the compiled UDF
	source    *sourceParams    // the literal parameters of source operators
	hashRight bool             // for joins, whether the hash table is built from the right input
}

// sourceParams holds the literal parameters of a source operator
type sourceParams struct {
	data      []byte        // collection: packed records
	length    int           // collection: number of records in data
	rowSchema schema.Schema // collection: schema of the records in data
	addIndex  bool          // collection: whether rows are prefixed by their index
	from      int64         // range
	to        int64         // range
	step      int64         // range
	path      string        // csv
	filters   []int         // csv: projected column indices, all columns if empty
	csv       CsvOptions    // csv
}

func newNode(opType fuse.OpType, compiler udf.Compiler, s schema.Schema, parents ...*dataFrameImpl) *dataFrameImpl {
	return &dataFrameImpl{
		id:       atomic.AddInt64(&nextNodeID, 1),
		opType:   opType,
		parents:  parents,
		schema:   s,
		compiler: compiler,
	}
}

// GetSchema returns the Schema of the rows this DataFrame produces
func (df *dataFrameImpl) GetSchema() schema.Schema {
	return df.schema
}

// GetOpType returns the type of the operator this DataFrame represents
func (df *dataFrameImpl) GetOpType() fuse.OpType {
	return df.opType
}

// To is a "functional operations" factory method for DataFrames,
// chaining operations onto the current one.
func (df *dataFrameImpl) To(ops ...*fuse.DataFrameOperation) (fuse.DataFrame, error) {
	var next fuse.DataFrame = df
	// See https://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis for details of approach
	for _, op := range ops {
		result, err := op.Do(next)
		if err != nil {
			return nil, err
		}
		next = result
	}
	return next, nil
}

// String returns a short description of this operator
func (df *dataFrameImpl) String() string {
	if df.fn.Name != "" {
		return fmt.Sprintf("%s#%d(%s) -> %s", df.opType, df.id, df.fn.Name, df.schema)
	}
	return fmt.Sprintf("%s#%d -> %s", df.opType, df.id, df.schema)
}

// asImpl recovers the internal representation of a DataFrame built by this package
func asImpl(d fuse.DataFrame) (*dataFrameImpl, error) {
	impl, ok := d.(*dataFrameImpl)
	if !ok || impl == nil {
		return nil, fmt.Errorf("DataFrame of type %T was not built by fuse", d)
	}
	return impl, nil
}
