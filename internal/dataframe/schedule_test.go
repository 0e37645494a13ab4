package dataframe

import (
	"testing"
	"testing/quick"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func fusedChain(t *testing.T, f *testFuncs) fuse.DataFrame {
	d, err := rangeOf(t, f, 0, 10).To(
		op(func(d fuse.DataFrame) (fuse.DataFrame, error) { return Map(d, f.double) }),
		op(func(d fuse.DataFrame) (fuse.DataFrame, error) { return Filter(d, f.isEven) }),
		op(func(d fuse.DataFrame) (fuse.DataFrame, error) { return Map(d, f.double) }),
	)
	require.Nil(t, err)
	return d
}

func TestPipeOperatorsFuseIntoOneStage(t *testing.T) {
	f := newTestFuncs()
	g, err := Schedule(fusedChain(t, f))
	require.Nil(t, err)
	require.Equal(t, 1, g.Size())
	st := g.Terminal()
	require.Equal(t, PipelineStage, st.Kind())
	require.NotNil(t, st.source)
	require.Len(t, st.program, 3)
	require.Equal(t, opAssign, st.program[0].code)
	require.Equal(t, opContinueUnless, st.program[1].code)
	require.Equal(t, opAssign, st.program[2].code)
}

func TestFlatMapOpensNestingLevel(t *testing.T) {
	f := newTestFuncs()
	d, err := FlatMap(rangeOf(t, f, 0, 10), f.repeat)
	require.Nil(t, err)
	d, err = Map(d, f.double)
	require.Nil(t, err)
	plan, err := Plan(d, fuse.CollectAction)
	require.Nil(t, err)
	dag := gjson.GetBytes(plan.JSON, "dag")
	require.Equal(t, int64(0), dag.Get("1.depth").Int())
	require.Equal(t, "map", dag.Get("2.op").String())
	require.Equal(t, int64(1), dag.Get("2.depth").Int())
}

func TestJoinSplitsStages(t *testing.T) {
	f := newTestFuncs()
	i64 := schema.Int64Type()
	l := collectionOf(t, f, schema.TupleOf(i64, i64), []interface{}{[]interface{}{1, 10}}, false)
	r := collectionOf(t, f, schema.TupleOf(i64, i64), []interface{}{[]interface{}{1, 13}}, false)
	j, err := Join(l, r, true)
	require.Nil(t, err)
	d, err := Filter(j, udfTrue(f))
	require.Nil(t, err)

	g, err := Schedule(d)
	require.Nil(t, err)
	// filter pipeline <- join breaker <- two source pipelines
	require.Equal(t, 4, g.Size())
	require.Equal(t, PipelineStage, g.Terminal().Kind())
	breaker := g.Terminal().sourceStages[0]
	require.Equal(t, BreakerStage, breaker.Kind())
	require.True(t, breaker.hashRight)
	require.Len(t, breaker.sourceStages, 2)
	require.Equal(t, l.(*dataFrameImpl), breaker.sourceStages[0].source)
	require.Equal(t, r.(*dataFrameImpl), breaker.sourceStages[1].source)

	plan, err := g.Serialize(fuse.CollectAction)
	require.Nil(t, err)
	require.Len(t, plan.Inputs, 2)
	dag := gjson.GetBytes(plan.JSON, "dag")
	require.Equal(t, "join", dag.Get("2.op").String())
	require.Equal(t, "right", dag.Get("2.hash_side").String())
	require.Equal(t, `[0,1]`, dag.Get("2.predecessors").Raw)
	require.Equal(t, int64(1), dag.Get("1.input").Int())
}

func udfTrue(f *testFuncs) udf.Ref {
	return f.reg.Define("always", "func(x) { return true }", udf.Returns(schema.BoolType()), nil)
}

func TestAdjacentBreakersGetEmptyStage(t *testing.T) {
	f := newTestFuncs()
	i64 := schema.Int64Type()
	pairs := collectionOf(t, f, schema.TupleOf(i64, i64), []interface{}{[]interface{}{0, 1}, []interface{}{1, 1}}, false)
	grouped, err := ReduceByKey(pairs, f.add)
	require.Nil(t, err)
	c, err := Cartesian(grouped, pairs)
	require.Nil(t, err)

	g, err := Schedule(c)
	require.Nil(t, err)
	terminal := g.Terminal()
	require.Equal(t, BreakerStage, terminal.Kind())
	require.True(t, terminal.sourceStages[0].IsEmpty())
	require.Equal(t, BreakerStage, terminal.sourceStages[0].sourceStages[0].Kind())
	require.Equal(t, PipelineStage, terminal.sourceStages[1].Kind())

	plan, err := g.Serialize(fuse.CountAction)
	require.Nil(t, err)
	// empty stages are elided: reduce_by_key feeds cartesian directly
	dag := gjson.GetBytes(plan.JSON, "dag")
	require.Len(t, dag.Array(), 4)
	require.Equal(t, "reduce_by_key", dag.Get("1.op").String())
	require.Equal(t, `[1,2]`, dag.Get("3.predecessors").Raw)
	require.Equal(t, 4, plan.NumStages)
}

func TestMissingBreakerAncestor(t *testing.T) {
	f := newTestFuncs()
	orphan := newNode(fuse.ReduceOpType, f.reg, schema.Int64Type())
	_, err := Schedule(orphan)
	require.True(t, errors.Is(err, errors.SchedulerError{Code: errors.MissingBreakerAncestor}))
}

func TestSerializeIsDeterministic(t *testing.T) {
	f := newTestFuncs()
	d := fusedChain(t, f)
	first, err := Plan(d, fuse.CollectAction)
	require.Nil(t, err)
	second, err := Plan(d, fuse.CollectAction)
	require.Nil(t, err)
	require.Equal(t, first.JSON, second.JSON)
	require.Equal(t, first.Fingerprint, second.Fingerprint)

	// a structurally identical graph built separately serializes identically
	rebuilt, err := Plan(fusedChain(t, f), fuse.CollectAction)
	require.Nil(t, err)
	require.Equal(t, first.JSON, rebuilt.JSON)
	require.Equal(t, first.Fingerprint, rebuilt.Fingerprint)

	counted, err := Plan(d, fuse.CountAction)
	require.Nil(t, err)
	require.NotEqual(t, first.Fingerprint, counted.Fingerprint)
}

func TestRangeBoundsChangeFingerprint(t *testing.T) {
	f := newTestFuncs()
	a, err := Fingerprint(rangeOf(t, f, 0, 10))
	require.Nil(t, err)
	b, err := Fingerprint(rangeOf(t, f, 0, 20))
	require.Nil(t, err)
	require.NotEqual(t, a, b)
}

func TestFingerprintIsStructural(t *testing.T) {
	f := newTestFuncs()
	// equal parameters always produce equal fingerprints
	same := func(from, to int64, step int8) bool {
		if step == 0 {
			step = 1
		}
		a, err := CreateRangeDataFrame(f.reg, from, to, int64(step))
		require.Nil(t, err)
		b, err := CreateRangeDataFrame(f.reg, from, to, int64(step))
		require.Nil(t, err)
		fa, _ := Fingerprint(a)
		fb, _ := Fingerprint(b)
		return fa == fb
	}
	require.Nil(t, quick.Check(same, nil))

	// different parameters practically never collide
	distinct := func(from, to, otherTo int64) bool {
		if to == otherTo {
			return true
		}
		a, err := CreateRangeDataFrame(f.reg, from, to, 1)
		require.Nil(t, err)
		b, err := CreateRangeDataFrame(f.reg, from, otherTo, 1)
		require.Nil(t, err)
		fa, _ := Fingerprint(a)
		fb, _ := Fingerprint(b)
		return fa != fb
	}
	require.Nil(t, quick.Check(distinct, nil))

	// the udf source text is part of the fingerprint
	src := rangeOf(t, f, 0, 10)
	m1, err := Map(src, f.double)
	require.Nil(t, err)
	redefined := f.reg.Define("double", "func(x) { return x + x }", udf.SameAsArg(0), nil)
	m2, err := Map(src, redefined)
	require.Nil(t, err)
	fa, _ := Fingerprint(m1)
	fb, _ := Fingerprint(m2)
	require.NotEqual(t, fa, fb)
}
