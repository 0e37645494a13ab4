package dataframe

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
)

// fingerprinter computes structural fingerprints, memoized by node id for the
// duration of one pass
type fingerprinter struct {
	memo map[int64]uint64
}

func newFingerprinter() *fingerprinter {
	return &fingerprinter{memo: make(map[int64]uint64)}
}

// Fingerprint computes the structural fingerprint of the operator graph rooted at d.
// Two graphs with the same operators, parameters and UDF definitions share a fingerprint,
// regardless of the process they were built in.
func Fingerprint(d fuse.DataFrame) (uint64, error) {
	df, err := asImpl(d)
	if err != nil {
		return 0, err
	}
	return newFingerprinter().of(df), nil
}

// PlanFingerprint combines the fingerprint of a graph with the terminal action run on it
func PlanFingerprint(d fuse.DataFrame, action fuse.Action) (uint64, error) {
	fp, err := Fingerprint(d)
	if err != nil {
		return 0, err
	}
	return combine(string(action), fp), nil
}

func combine(action string, fp uint64) uint64 {
	h := xxhash.New()
	h.WriteString(action)
	writeUint64(h, fp)
	return h.Sum64()
}

func (f *fingerprinter) of(df *dataFrameImpl) uint64 {
	if fp, ok := f.memo[df.id]; ok {
		return fp
	}
	h := xxhash.New()
	writeString(h, string(df.opType))
	for _, p := range df.parents {
		writeUint64(h, f.of(p))
	}
	writeUint64(h, selfFingerprint(df))
	fp := h.Sum64()
	f.memo[df.id] = fp
	return fp
}

// selfFingerprint hashes the attributes of an operator which are not derived from its parents
func selfFingerprint(df *dataFrameImpl) uint64 {
	h := xxhash.New()
	writeString(h, df.schema.String())
	switch df.opType {
	case fuse.CollectionSourceOpType:
		writeString(h, df.source.rowSchema.String())
		writeBool(h, df.source.addIndex)
	case fuse.RangeSourceOpType:
		writeUint64(h, uint64(df.source.from))
		writeUint64(h, uint64(df.source.to))
		writeUint64(h, uint64(df.source.step))
	case fuse.CsvSourceOpType:
		writeString(h, df.source.path)
		writeUint64(h, uint64(len(df.source.filters)))
		for _, idx := range df.source.filters {
			writeUint64(h, uint64(idx))
		}
		writeUint64(h, uint64(df.source.csv.HeaderLines))
		writeUint64(h, uint64(df.source.csv.Delimiter))
		writeUint64(h, uint64(df.source.csv.Comment))
	case fuse.JoinOpType:
		writeBool(h, df.hashRight)
	case fuse.GeneratorSourceOpType, fuse.MapOpType, fuse.FilterOpType, fuse.FlatMapOpType,
		fuse.ReduceOpType, fuse.ReduceByKeyOpType:
		writeString(h, df.fn.Name)
		writeString(h, df.fn.Source)
		writeUint64(h, df.fn.Generation)
	case fuse.FlattenOpType, fuse.CartesianOpType:
	default:
		panic(errors.SchedulerError{Code: errors.UnknownOperator, Stage: -1, Op: string(df.opType)})
	}
	return h.Sum64()
}

// strings are length-prefixed so that adjacent fields cannot run together
func writeString(h *xxhash.Digest, s string) {
	writeUint64(h, uint64(len(s)))
	h.WriteString(s)
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeBool(h *xxhash.Digest, b bool) {
	if b {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}
