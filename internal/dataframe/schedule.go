package dataframe

import (
	"strings"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
)

// A StageGraph is the result of one scheduling pass: a DAG of stages with a single terminal stage
type StageGraph struct {
	root     *dataFrameImpl
	stages   []*stageImpl // in creation order
	terminal *stageImpl
}

// Size returns the number of stages in this StageGraph, including empty stages
func (g *StageGraph) Size() int {
	return len(g.stages)
}

// Terminal returns the stage producing the final rows
func (g *StageGraph) Terminal() *stageImpl {
	return g.terminal
}

// String returns a multi-line description of this StageGraph, one stage per line
func (g *StageGraph) String() string {
	lines := make([]string, len(g.stages))
	for i, s := range g.stages {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}

// scheduler holds the state of one scheduling pass
type scheduler struct {
	stages []*stageImpl
}

// Schedule splits the operator graph rooted at d into stages: every shuffle
// operator gets a breaker stage, and every maximal run of pipe operators is
// fused into one pipeline stage, headed by its source if it reaches one.
// The graph is assumed to have passed Validate.
func Schedule(d fuse.DataFrame) (*StageGraph, error) {
	root, err := asImpl(d)
	if err != nil {
		return nil, err
	}
	s := &scheduler{stages: []*stageImpl{}}
	if err := s.visit(nil, root); err != nil {
		return nil, err
	}
	// the first stage created is always the one connected to the root
	return &StageGraph{root: root, stages: s.stages, terminal: s.stages[0]}, nil
}

func (s *scheduler) newStage(kind StageKind) *stageImpl {
	st := createStage(len(s.stages), kind)
	s.stages = append(s.stages, st)
	return st
}

// link connects child as the next source of sink
func link(child, sink *stageImpl) {
	child.sink = sink
	if sink != nil {
		sink.sourceStages = append(sink.sourceStages, child)
	}
}

// visit schedules the operators ending at n into stages feeding sink
func (s *scheduler) visit(sink *stageImpl, n *dataFrameImpl) error {
	if n.opType.IsBreaker() {
		return s.visitBreaker(sink, n)
	}
	st := s.newStage(PipelineStage)
	link(st, sink)
	// walk up the run of pipe operators until a source or a breaker
	run := []*dataFrameImpl{}
	cur := n
	for !cur.opType.IsSource() && !cur.opType.IsBreaker() {
		if len(cur.parents) != 1 {
			return errors.SchedulerError{Code: errors.UnknownOperator, Stage: st.id, Op: cur.String()}
		}
		run = append(run, cur)
		cur = cur.parents[0]
	}
	for i, j := 0, len(run)-1; i < j; i, j = i+1, j-1 {
		run[i], run[j] = run[j], run[i]
	}
	program, err := lowerPipeline(st.id, run)
	if err != nil {
		return err
	}
	st.pipe = run
	st.program = program
	if cur.opType.IsSource() {
		st.source = cur
		return nil
	}
	return s.visitBreaker(st, cur)
}

// visitBreaker creates the breaker stage of n and schedules its parents into it.
// A parent which is itself a breaker is separated from n by an empty stage.
func (s *scheduler) visitBreaker(sink *stageImpl, n *dataFrameImpl) error {
	st := s.newStage(BreakerStage)
	link(st, sink)
	st.breaker = n
	st.hashRight = n.hashRight
	if len(n.parents) == 0 {
		return errors.SchedulerError{Code: errors.MissingBreakerAncestor, Stage: st.id, Op: n.String()}
	}
	for _, p := range n.parents {
		if p.opType.IsBreaker() {
			empty := s.newStage(EmptyStage)
			link(empty, st)
			if err := s.visitBreaker(empty, p); err != nil {
				return err
			}
			continue
		}
		if err := s.visit(st, p); err != nil {
			return err
		}
	}
	return nil
}
