package jsonl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/datasource/memory"
	"github.com/go-sif/fuse/internal/util"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

// ParserConf configures a JSONL Parser, suitable for JSON lines data
type ParserConf struct {
	HeaderLines   int  // The number of lines to ignore from the beginning of the input. Defaults to 0.
	Comment       rune // Lines beginning with the comment character are ignored. Defaults to no comment character.
	MaxBufferSize int  // Maximum size in bytes of the buffer used to read lines from the input
	SkipInvalid   bool // Drop lines which cannot be parsed instead of failing. Defaults to false.
}

// Parser produces rows from JSONL data
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new JSONL Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &Parser{conf: conf}
}

// Parse reads every line of r, extracting one value per column of s from the gjson
// path at the same position in paths. Values within the JSON which do not correspond
// to a path are ignored.
func (p *Parser) Parse(r io.Reader, s schema.Schema, paths []string) ([]interface{}, error) {
	cols := s.Columns()
	if len(paths) != len(cols) {
		return nil, fmt.Errorf("%d paths given for %d columns", len(paths), len(cols))
	}
	for i, c := range cols {
		if !c.Kind().IsScalar() {
			return nil, fmt.Errorf("column %d (%s) is not a scalar", i, c)
		}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), p.conf.MaxBufferSize)
	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		if !scanner.Scan() {
			break
		}
	}
	var rows []interface{}
	var errs *multierror.Error
	for line := p.conf.HeaderLines + 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || (p.conf.Comment != 0 && strings.HasPrefix(text, string(p.conf.Comment))) {
			continue
		}
		row, err := parseLine(text, s, cols, paths)
		if err != nil {
			if !p.conf.SkipInvalid {
				errs = multierror.Append(errs, fmt.Errorf("line %d: %w", line, err))
			}
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		errs.ErrorFormat = util.FormatMultiError
	}
	return rows, errs.ErrorOrNil()
}

// CreateDataFrame parses r and returns an in-memory DataFrame over the result
func (p *Parser) CreateDataFrame(compiler udf.Compiler, r io.Reader, s schema.Schema, paths []string) (fuse.DataFrame, error) {
	rows, err := p.Parse(r, s, paths)
	if err != nil {
		return nil, err
	}
	return memory.CreateDataFrame(compiler, rows, s)
}

func parseLine(text string, s schema.Schema, cols []schema.Schema, paths []string) (interface{}, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("invalid json")
	}
	vals := gjson.GetMany(text, paths...)
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		v, err := parseValue(vals[i], c)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", paths[i], err)
		}
		row[i] = v
	}
	if !s.IsTuple() {
		return row[0], nil
	}
	return row, nil
}

func parseValue(val gjson.Result, colType schema.Schema) (interface{}, error) {
	if !val.Exists() {
		return nil, fmt.Errorf("value is missing")
	}
	switch {
	case colType.Kind() == schema.Bool:
		if val.Type != gjson.True && val.Type != gjson.False {
			return nil, fmt.Errorf("was not a boolean. Was: %s", val.Raw)
		}
		return val.Bool(), nil
	case val.Type != gjson.Number:
		return nil, fmt.Errorf("was not a number. Was: %s", val.Raw)
	case colType.Kind().IsFloat():
		return val.Float(), nil
	case colType.Kind() >= schema.Uint8 && colType.Kind() <= schema.Uint64:
		return val.Uint(), nil
	default:
		return val.Int(), nil
	}
}
