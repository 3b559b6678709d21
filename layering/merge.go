// Package layering provides the low level primitives used to compose sparse
// settings layers: deep copies, strongest-to-weakest merging and the source
// identifiers persisted layers are stored under.
package layering

// Merge composes sparse layers ordered strongest to weakest. A key takes
// the value of the strongest layer that sets it; nested maps (TOML tables)
// are merged key by key. The result shares no maps or slices with the
// inputs and is never nil.
func Merge(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		overlay(out, layers[i])
	}
	return out
}

// overlay copies src onto dst, descending into tables both sides hold.
func overlay(dst, src map[string]any) {
	for key, value := range src {
		table, isTable := value.(map[string]any)
		existing, hasTable := dst[key].(map[string]any)
		if isTable && hasTable {
			overlay(existing, table)
			continue
		}
		dst[key] = Copy(value)
	}
}

// CopyValues returns a deep copy of values. A nil map stays nil.
func CopyValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = Copy(value)
	}
	return out
}

// Copy deep-copies the container types a layer value can hold: tables and
// the slice shapes TOML, JSON and SQLite decoding produce. Scalars are
// returned as they are.
func Copy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CopyValues(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Copy(item)
		}
		return out
	case []string:
		return cloneSlice(v)
	case []int:
		return cloneSlice(v)
	case []int64:
		return cloneSlice(v)
	case []float64:
		return cloneSlice(v)
	case []bool:
		return cloneSlice(v)
	default:
		return value
	}
}

func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(S(make([]E, 0, len(s))), s...)
}
