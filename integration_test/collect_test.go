package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/datasource/file"
	"github.com/go-sif/fuse/datasource/generator"
	"github.com/go-sif/fuse/datasource/memory"
	"github.com/go-sif/fuse/datasource/parser/jsonl"
	"github.com/go-sif/fuse/datasource/rangesrc"
	"github.com/go-sif/fuse/engine"
	ops "github.com/go-sif/fuse/operations/transform"
	"github.com/go-sif/fuse/schema"
	fusetest "github.com/go-sif/fuse/testing"
	"github.com/go-sif/fuse/udf"
	"github.com/stretchr/testify/require"
)

func sortByKey(rows []interface{}) {
	sort.Slice(rows, func(a, b int) bool {
		return rows[a].([]interface{})[0].(int64) < rows[b].([]interface{})[0].(int64)
	})
}

func TestFusedPipelineMatchesSequentialEvaluation(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	src, err := rangesrc.CreateDataFrame(reg, 0, 20, 1)
	require.Nil(t, err)
	frame, err := src.To(
		ops.Map(fns["inc"]),
		ops.Filter(fns["isEven"]),
		ops.Map(fns["half"]),
	)
	require.Nil(t, err)

	expected := []interface{}{}
	for x := int64(0); x < 20; x++ {
		if y := x + 1; y%2 == 0 {
			expected = append(expected, y/2)
		}
	}
	require.Equal(t, expected, fusetest.Collect(t, e, frame))

	explain, err := e.Explain(frame, fuse.CollectAction)
	require.Nil(t, err)
	require.Contains(t, explain, "1 stages")
}

func TestJoin(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	left, err := rangesrc.CreateDataFrame(reg, 0, 10, 1)
	require.Nil(t, err)
	left, err = left.To(ops.Map(fns["pair"]))
	require.Nil(t, err)
	right, err := rangesrc.CreateDataFrame(reg, 5, 15, 1)
	require.Nil(t, err)
	right, err = right.To(ops.Map(fns["triple"]))
	require.Nil(t, err)

	expected := []interface{}{}
	for r := int64(5); r < 10; r++ {
		expected = append(expected, []interface{}{r, r * 10, r * 13, r + 100})
	}
	for _, join := range []func(fuse.DataFrame) *fuse.DataFrameOperation{ops.Join, ops.JoinHashLeft} {
		joined, err := left.To(join(right))
		require.Nil(t, err)
		require.True(t, joined.GetSchema().Equal(schema.TupleOf(
			schema.Int64Type(), schema.Int64Type(), schema.Int64Type(), schema.Int64Type())))
		rows := fusetest.Collect(t, e, joined)
		sortByKey(rows)
		require.Equal(t, expected, rows)
	}
}

func TestReduceByKey(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	i64 := schema.Int64Type()
	pairs, err := memory.CreateDataFrame(reg, []interface{}{
		[]interface{}{0, 1}, []interface{}{1, 1}, []interface{}{1, 1}, []interface{}{0, 1}, []interface{}{1, 1},
	}, schema.TupleOf(i64, i64))
	require.Nil(t, err)
	reduced, err := pairs.To(ops.ReduceByKey(fns["add"]))
	require.Nil(t, err)
	rows := fusetest.Collect(t, e, reduced)
	sortByKey(rows)
	require.Equal(t, []interface{}{
		[]interface{}{int64(0), int64(2)},
		[]interface{}{int64(1), int64(3)},
	}, rows)

	// the same grouping, keyed by a map over a range
	src, err := rangesrc.Until(reg, 5)
	require.Nil(t, err)
	reduced, err = src.To(ops.Map(fns["modKey"]), ops.ReduceByKey(fns["add"]))
	require.Nil(t, err)
	rows = fusetest.Collect(t, e, reduced)
	sortByKey(rows)
	require.Equal(t, []interface{}{
		[]interface{}{int64(0), int64(3)},
		[]interface{}{int64(1), int64(2)},
	}, rows)
}

func TestCartesianCount(t *testing.T) {
	reg, _ := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	a, err := rangesrc.Until(reg, 4)
	require.Nil(t, err)
	b, err := rangesrc.Until(reg, 5)
	require.Nil(t, err)
	product, err := a.To(ops.Cartesian(b))
	require.Nil(t, err)
	n, err := e.Count(context.Background(), product)
	require.Nil(t, err)
	require.EqualValues(t, 20, n)
}

func TestReduceAction(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	src, err := rangesrc.CreateDataFrame(reg, 1, 11, 1)
	require.Nil(t, err)
	sum, ok, err := e.Reduce(context.Background(), src, fns["add"])
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, int64(55), sum)

	empty, err := rangesrc.CreateDataFrame(reg, 10, 0, 1)
	require.Nil(t, err)
	_, ok, err = e.Reduce(context.Background(), empty, fns["add"])
	require.Nil(t, err)
	require.False(t, ok)
}

func TestFlatMapAndFlatten(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	src, err := rangesrc.Until(reg, 2)
	require.Nil(t, err)
	flat, err := src.To(ops.FlatMap(fns["upTo"]), ops.Map(fns["double"]))
	require.Nil(t, err)
	require.Equal(t, []interface{}{int64(0), int64(2), int64(4), int64(2), int64(4), int64(6)}, fusetest.Collect(t, e, flat))

	flattened, err := src.To(ops.Map(fns["upTo"]), ops.Flatten())
	require.Nil(t, err)
	require.Equal(t, []interface{}{int64(0), int64(1), int64(2), int64(1), int64(2), int64(3)}, fusetest.Collect(t, e, flattened))
}

func TestGeneratorSource(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	squares := reg.Define("squares", "func(i int64) *int64 { if i < 4 { return i * i }; return nil }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
		if i := args[0].(int64); i < 4 {
			return i * i, nil
		}
		return nil, nil
	})
	gen, err := generator.CreateDataFrame(reg, squares)
	require.Nil(t, err)
	gen, err = gen.To(ops.Map(fns["inc"]))
	require.Nil(t, err)
	require.Equal(t, []interface{}{int64(1), int64(2), int64(5), int64(10)}, fusetest.Collect(t, e, gen))
}

func TestFileSources(t *testing.T) {
	reg, fns := registry()
	e, _ := fusetest.NewEngine(t, reg, engine.Config{})
	path := filepath.Join(t.TempDir(), "values.csv")
	require.Nil(t, os.WriteFile(path, []byte("name,value\nx,3\ny,4\n"), 0o644))
	csv, err := file.CreateDataFrame(reg, path, schema.Int64Type(), &file.ParserConf{HeaderLines: 1, Columns: []int{1}})
	require.Nil(t, err)
	doubled, err := csv.To(ops.Map(fns["double"]))
	require.Nil(t, err)
	require.Equal(t, []interface{}{int64(6), int64(8)}, fusetest.Collect(t, e, doubled))

	lines := "{\"v\": 1}\n{\"v\": 2}\n"
	df, err := jsonl.CreateParser(nil).CreateDataFrame(reg, strings.NewReader(lines), schema.Int64Type(), []string{"v"})
	require.Nil(t, err)
	df, err = df.To(ops.Map(fns["toFloat"]))
	require.Nil(t, err)
	require.Equal(t, []interface{}{float64(1), float64(2)}, fusetest.Collect(t, e, df))
}
