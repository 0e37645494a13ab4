package partition

import (
	"fmt"

	"github.com/go-sif/fuse/schema"
)

// A Partition is a packed array of fixed-size records, all sharing one Schema.
// This is the byte layout exchanged with compiled units, both for inputs and results.
type Partition struct {
	schema  schema.Schema
	data    []byte
	numRows int
}

// CreatePartition returns an empty Partition with room for capacity rows before reallocating
func CreatePartition(s schema.Schema, capacity int) *Partition {
	return &Partition{
		schema: s,
		data:   make([]byte, 0, capacity*s.Size()),
	}
}

// FromBytes wraps packed record data without copying it
func FromBytes(data []byte, numRows int, s schema.Schema) (*Partition, error) {
	if numRows < 0 {
		return nil, fmt.Errorf("row count %d must not be negative", numRows)
	}
	if need := numRows * s.Size(); len(data) < need {
		return nil, fmt.Errorf("buffer of %d bytes cannot hold %d rows of %s (%d bytes)", len(data), numRows, s, need)
	}
	return &Partition{schema: s, data: data[:numRows*s.Size()], numRows: numRows}, nil
}

// Schema returns the Schema of the rows in this Partition
func (p *Partition) Schema() schema.Schema {
	return p.schema
}

// GetNumRows returns the number of rows in this Partition
func (p *Partition) GetNumRows() int {
	return p.numRows
}

// Bytes returns the packed row data of this Partition
func (p *Partition) Bytes() []byte {
	return p.data
}

// AppendRow packs v onto the end of this Partition
func (p *Partition) AppendRow(v interface{}) error {
	width := p.schema.Size()
	start := len(p.data)
	p.data = append(p.data, make([]byte, width)...)
	if err := putValue(p.schema, p.data[start:start+width], v); err != nil {
		p.data = p.data[:start]
		return err
	}
	p.numRows++
	return nil
}

// GetRow decodes the rowNum'th row of this Partition
func (p *Partition) GetRow(rowNum int) (interface{}, error) {
	if rowNum < 0 || rowNum >= p.numRows {
		return nil, fmt.Errorf("row %d out of range [0, %d)", rowNum, p.numRows)
	}
	width := p.schema.Size()
	return getValue(p.schema, p.data[rowNum*width:(rowNum+1)*width]), nil
}

// ForEachRow decodes every row of this Partition, in order
func (p *Partition) ForEachRow(fn func(row interface{}) error) error {
	width := p.schema.Size()
	for i := 0; i < p.numRows; i++ {
		if err := fn(getValue(p.schema, p.data[i*width:(i+1)*width])); err != nil {
			return err
		}
	}
	return nil
}

// Encode packs rows into a fresh buffer
func Encode(s schema.Schema, rows []interface{}) ([]byte, error) {
	p := CreatePartition(s, len(rows))
	for i, row := range rows {
		if err := p.AppendRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return p.Bytes(), nil
}

// Decode unpacks numRows rows from data
func Decode(s schema.Schema, data []byte, numRows int) ([]interface{}, error) {
	p, err := FromBytes(data, numRows, s)
	if err != nil {
		return nil, err
	}
	rows := make([]interface{}, 0, numRows)
	err = p.ForEachRow(func(row interface{}) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}
