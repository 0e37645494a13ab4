package schema

// JoinKey returns the key of a join input: the first field of a Tuple, or the
// Schema itself for a scalar input.
func JoinKey(s Schema) Schema {
	if s.kind == Tuple && len(s.fields) > 0 {
		return s.fields[0]
	}
	return s
}

// JoinPayload returns the non-key fields of a join input with nested tuples
// flattened. A scalar input contributes no payload.
func JoinPayload(s Schema) []Schema {
	if s.kind != Tuple || len(s.fields) < 2 {
		return nil
	}
	return FlattenFields(s.fields[1:])
}

// FlattenFields recursively replaces every Tuple in fields by its own fields
func FlattenFields(fields []Schema) []Schema {
	out := make([]Schema, 0, len(fields))
	for _, f := range fields {
		if f.kind == Tuple {
			out = append(out, FlattenFields(f.fields)...)
		} else {
			out = append(out, f)
		}
	}
	return out
}

// JoinOutput derives the output Schema of an equi-join: (key) ++ left payload ++ right payload.
// When neither side carries a payload the output is the bare key. ok is false when the
// two keys have different Schemas.
func JoinOutput(left, right Schema) (out Schema, ok bool) {
	lk, rk := JoinKey(left), JoinKey(right)
	if !lk.Equal(rk) {
		return Schema{}, false
	}
	lp, rp := JoinPayload(left), JoinPayload(right)
	if len(lp) == 0 && len(rp) == 0 {
		return lk, true
	}
	fields := make([]Schema, 0, 1+len(lp)+len(rp))
	fields = append(fields, lk)
	fields = append(fields, lp...)
	fields = append(fields, rp...)
	return TupleOf(fields...), true
}

// CartesianOutput derives the output Schema of a cross product: left columns ++ right columns
func CartesianOutput(left, right Schema) Schema {
	fields := append(left.Columns(), right.Columns()...)
	return TupleOf(fields...)
}
