package schema

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type tupleJSON struct {
	Tuple []Schema `json:"tuple"`
}

type arrayJSON struct {
	Array *Schema `json:"array"`
	Len   int     `json:"len"`
}

// MarshalJSON encodes scalars as their kind name ("i64"), tuples as {"tuple":[...]}
// and arrays as {"array":<elem>,"len":n}
func (s Schema) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case Invalid:
		return nil, fmt.Errorf("cannot marshal invalid schema")
	case Tuple:
		fields := s.fields
		if fields == nil {
			fields = []Schema{}
		}
		return json.Marshal(tupleJSON{Tuple: fields})
	case Array:
		return json.Marshal(arrayJSON{Array: s.elem, Len: s.length})
	default:
		return json.Marshal(s.kind.String())
	}
}

// UnmarshalJSON decodes the representation produced by MarshalJSON
func (s *Schema) UnmarshalJSON(data []byte) error {
	iter := json.BorrowIterator(data)
	defer json.ReturnIterator(iter)
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		name := iter.ReadString()
		for k, n := range kindNames {
			if n == name && k.IsScalar() {
				*s = Schema{kind: k}
				return nil
			}
		}
		return fmt.Errorf("unknown schema kind %q", name)
	case jsoniter.ObjectValue:
		var raw map[string]jsoniter.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if t, ok := raw["tuple"]; ok {
			var fields []Schema
			if err := json.Unmarshal(t, &fields); err != nil {
				return err
			}
			*s = TupleOf(fields...)
			return nil
		}
		if a, ok := raw["array"]; ok {
			var elem Schema
			if err := json.Unmarshal(a, &elem); err != nil {
				return err
			}
			var length int
			if l, ok := raw["len"]; ok {
				if err := json.Unmarshal(l, &length); err != nil {
					return err
				}
			}
			*s = ArrayOf(elem, length)
			return nil
		}
		return fmt.Errorf("schema object must contain \"tuple\" or \"array\"")
	default:
		return fmt.Errorf("invalid schema encoding %s", string(data))
	}
}
