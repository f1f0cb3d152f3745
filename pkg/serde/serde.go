// Package serde converts operation results into the wire format. Types that
// plain JSON cannot carry ([]byte, time.Time) become `__type__` tagged
// objects so the caller can reconstruct them.
package serde

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// Marshal serializes a result value, applying the tagged encoding first.
func Marshal(value any) ([]byte, error) {
	return json.Marshal(Sanitize(value))
}

// Sanitize walks a result tree and replaces non-JSON values with their
// tagged representation. Maps and slices are rebuilt; everything else is
// passed through for encoding/json to handle.
func Sanitize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return map[string]string{
			types.AttrType: types.TypeBytes,
			types.AttrData: base64.StdEncoding.EncodeToString(v),
		}
	case time.Time:
		return map[string]string{
			types.AttrType: types.TypeDatetime,
			types.AttrData: v.Format(time.RFC3339Nano),
		}
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Sanitize(item)
		}
		return out
	}

	// Driver results occasionally surface as concrete slice or map types
	// ([][]any rows, map[string]string headers); rebuild those generically.
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Sanitize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			out[fmt.Sprint(key.Interface())] = Sanitize(rv.MapIndex(key).Interface())
		}
		return out
	}
	return value
}

// RowValue normalizes a single database cell for a JSON row set: times
// become RFC 3339 strings and raw text bytes become strings. Used by cursor
// implementations before rows enter a result payload.
func RowValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return v
	}
}

// Rows applies RowValue across a fetched row set.
func Rows(rows [][]any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		encoded := make([]any, len(row))
		for j, cell := range row {
			encoded[j] = RowValue(cell)
		}
		out[i] = encoded
	}
	return out
}
