package fuse

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/schema"
)

type viewState struct {
	data     []byte
	size     int
	schema   schema.Schema
	release  func()
	once     sync.Once
	released int32
}

func (s *viewState) doRelease() {
	s.once.Do(func() {
		atomic.StoreInt32(&s.released, 1)
		if s.release != nil {
			s.release()
		}
	})
}

// ResultView is a typed, read-only view over a buffer of packed records owned by
// a compiled unit. Copies of a ResultView share the same underlying buffer, and the
// buffer's release callback runs exactly once: on the first call to Release by any
// copy, or when the last copy is garbage collected.
type ResultView struct {
	state *viewState
}

// NewResultView wraps size packed records of Schema s, without copying data.
// release is invoked exactly once, when the view is released.
func NewResultView(data []byte, size int, s schema.Schema, release func()) ResultView {
	st := &viewState{
		data:    data,
		size:    size,
		schema:  s,
		release: release,
	}
	runtime.SetFinalizer(st, func(st *viewState) {
		st.doRelease()
	})
	return ResultView{state: st}
}

// Len returns the number of rows in this view
func (v ResultView) Len() int {
	if v.state == nil || v.Released() {
		return 0
	}
	return v.state.size
}

// Schema returns the Schema of the rows in this view
func (v ResultView) Schema() schema.Schema {
	if v.state == nil {
		return schema.Schema{}
	}
	return v.state.schema
}

// Released returns true iff this view (or a copy of it) has been released
func (v ResultView) Released() bool {
	return v.state == nil || atomic.LoadInt32(&v.state.released) == 1
}

// Bytes returns the packed row data backing this view. The slice is only valid
// until the view is released.
func (v ResultView) Bytes() ([]byte, error) {
	if v.Released() {
		return nil, errors.ErrResultReleased
	}
	return v.state.data, nil
}

func (v ResultView) partition() (*partition.Partition, error) {
	if v.Released() {
		return nil, errors.ErrResultReleased
	}
	return partition.FromBytes(v.state.data, v.state.size, v.state.schema)
}

// Row decodes the i'th row of this view
func (v ResultView) Row(i int) (interface{}, error) {
	p, err := v.partition()
	if err != nil {
		return nil, err
	}
	return p.GetRow(i)
}

// Rows decodes every row of this view, in order
func (v ResultView) Rows() ([]interface{}, error) {
	p, err := v.partition()
	if err != nil {
		return nil, err
	}
	rows := make([]interface{}, 0, p.GetNumRows())
	err = p.ForEachRow(func(row interface{}) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// Release returns the backing buffer to its owner. It is safe to call more than
// once, and from any copy of the view.
func (v ResultView) Release() {
	if v.state == nil {
		return
	}
	v.state.doRelease()
	runtime.SetFinalizer(v.state, nil)
}
