// Package normalize flattens an arbitrary JSON response into a table by
// locating its array of objects.
package normalize

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/unit"
	"github.com/rotisserie/eris"
)

// KnownKeys are the conventional wrapper keys, in preference order.
var KnownKeys = []string{"items", "rows", "data", "result", "notes", "records"}

// Rule looks for the array of objects in a decoded JSON value.
type Rule func(v any) ([]map[string]any, bool)

// Rules are tried in order; the first hit wins.
var Rules = []Rule{RootArray, KnownKey, AnyArrayValue}

// Decode reads one JSON value, keeping numbers as json.Number so they
// render exactly as sent.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "decode json"), apperr.KindDecode, "normalize", "invalid JSON", "")
	}
	return v, nil
}

// Normalize projects the discovered objects onto the sorted union of their
// keys. Missing keys become empty strings.
func Normalize(v any) (*unit.Table, error) {
	objects, ok := discover(v)
	if !ok {
		return nil, apperr.NoTableFound("normalize", "")
	}

	seen := map[string]bool{}
	for _, obj := range objects {
		for k := range obj {
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([]map[string]string, len(objects))
	for i, obj := range objects {
		row := make(map[string]string, len(columns))
		for _, c := range columns {
			row[c] = Stringify(obj[c])
		}
		rows[i] = row
	}
	return &unit.Table{Columns: columns, Rows: rows}, nil
}

func discover(v any) ([]map[string]any, bool) {
	for _, rule := range Rules {
		if objs, ok := rule(v); ok {
			return objs, true
		}
	}
	return nil, false
}

// RootArray matches a root value that is itself an array of objects.
func RootArray(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return objectsOf(arr)
}

// KnownKey matches the first conventional key holding an array of objects.
func KnownKey(v any) ([]map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range KnownKeys {
		if arr, ok := obj[k].([]any); ok {
			if objs, ok := objectsOf(arr); ok {
				return objs, true
			}
		}
	}
	return nil, false
}

// AnyArrayValue scans the object's values in key order for an array of
// objects.
func AnyArrayValue(v any) ([]map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if arr, ok := obj[k].([]any); ok {
			if objs, ok := objectsOf(arr); ok {
				return objs, true
			}
		}
	}
	return nil, false
}

// objectsOf keeps the object elements of arr, failing when there are none.
func objectsOf(arr []any) ([]map[string]any, bool) {
	var objs []map[string]any
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			objs = append(objs, m)
		}
	}
	return objs, len(objs) > 0
}

// Stringify renders one JSON value as a table cell.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case json.Number:
		return x.String()
	case float64:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return ""
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	}
}
