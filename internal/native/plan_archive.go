package native

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4"
)

// ArchivePlan writes an lz4-compressed copy of a serialized plan to w
func ArchivePlan(w io.Writer, plan []byte) error {
	compressor := lz4.NewWriter(w)
	if _, err := compressor.Write(plan); err != nil {
		return fmt.Errorf("unable to compress plan: %w", err)
	}
	return compressor.Close()
}

// ReadArchivedPlan decompresses a plan written by ArchivePlan
func ReadArchivedPlan(r io.Reader) ([]byte, error) {
	decompressor := lz4.NewReader(r)
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(decompressor); err != nil {
		return nil, fmt.Errorf("unable to decompress plan: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadArchivedPlanFile decompresses the plan archived at path
func ReadArchivedPlanFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArchivedPlan(f)
}
