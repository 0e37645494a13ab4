package file

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// ParserConf configures how a file is parsed
type ParserConf struct {
	HeaderLines int   // The number of lines to ignore from the beginning of the file. Defaults to 0.
	Delimiter   rune  // The delimiter separating columns in the file. Defaults to ,
	Comment     rune  // Lines beginning with the comment character are ignored. Cannot be equal to the Delimiter. Defaults to no comment character.
	Columns     []int // The indices of the file columns to read, in Schema order. Defaults to the first len(Schema) columns.
}

// CreateDataFrame is a factory for DataFrames over the file at path. Each column
// of Schema s (the fields of a tuple, or s itself) must be a scalar.
func CreateDataFrame(compiler udf.Compiler, path string, s schema.Schema, conf *ParserConf) (fuse.DataFrame, error) {
	if conf == nil {
		conf = &ParserConf{}
	}
	delimiter := conf.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}
	return dataframe.CreateCsvDataFrame(compiler, path, s, conf.Columns, dataframe.CsvOptions{
		HeaderLines: conf.HeaderLines,
		Delimiter:   delimiter,
		Comment:     conf.Comment,
	})
}
