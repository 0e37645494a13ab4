package dataframe

import (
	"fmt"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/hashicorp/go-multierror"
)

const (
	unvisited = iota
	onPath
	done
)

// Validate checks that the graph rooted at d is a DAG in which every operator has
// the number of parents its type requires. All problems found are reported together.
func Validate(d fuse.DataFrame) error {
	df, err := asImpl(d)
	if err != nil {
		return err
	}
	state := make(map[int64]int)
	var result *multierror.Error
	var walk func(n *dataFrameImpl)
	walk = func(n *dataFrameImpl) {
		switch state[n.id] {
		case onPath:
			result = multierror.Append(result, errors.SchedulerError{Code: errors.CycleDetected, Stage: -1, Op: n.String()})
			return
		case done:
			return
		}
		state[n.id] = onPath
		if want := n.opType.NumParents(); len(n.parents) != want {
			result = multierror.Append(result, errors.SchemaError{
				Code:   errors.WrongParentCount,
				Op:     n.String(),
				Detail: fmt.Sprintf("expected %d parents, found %d", want, len(n.parents)),
			})
		}
		for i, p := range n.parents {
			if p == nil {
				result = multierror.Append(result, errors.SchemaError{
					Code:   errors.WrongParentCount,
					Op:     n.String(),
					Detail: fmt.Sprintf("parent %d is nil", i),
				})
				continue
			}
			walk(p)
		}
		state[n.id] = done
	}
	walk(df)
	return result.ErrorOrNil()
}
