package normalize

import (
	"strings"
	"testing"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/unit"
)

func normalizeJSON(t *testing.T, src string) (*unit.Table, error) {
	t.Helper()
	v, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decode %s: %v", src, err)
	}
	return Normalize(v)
}

func TestNormalize_PadsMissingKeys(t *testing.T) {
	table, err := normalizeJSON(t, `[{"a":"1","b":"2"},{"a":"3"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(table.Columns, ",") != "a,b" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0]["a"] != "1" || table.Rows[0]["b"] != "2" {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	if table.Rows[1]["a"] != "3" || table.Rows[1]["b"] != "" {
		t.Errorf("row 1 = %v", table.Rows[1])
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			t.Errorf("row %d has %d keys; want %d", i, len(row), len(table.Columns))
		}
	}
}

func TestNormalize_DiscoveryOrder(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // value of column "k" in the first row
	}{
		{"root array drops scalars", `[1, "x", {"k":"root"}]`, "root"},
		{"known key preference", `{"data":[{"k":"data"}],"items":[{"k":"items"}]}`, "items"},
		{"known key skips scalar arrays", `{"items":[1,2],"rows":[{"k":"rows"}]}`, "rows"},
		{"any array sorted keys", `{"zeta":[{"k":"zeta"}],"alpha":[{"k":"alpha"}]}`, "alpha"},
		{"known key before scan", `{"aaa":[{"k":"scan"}],"records":[{"k":"records"}]}`, "records"},
		{"root array with no objects", `{"x":[[]],"y":[{"k":"y"}]}`, "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := normalizeJSON(t, tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := table.Rows[0]["k"]; got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_NoTable(t *testing.T) {
	for _, src := range []string{`[1,2]`, `{"a":1,"b":[1]}`, `"text"`, `null`, `[]`} {
		_, err := normalizeJSON(t, src)
		if !apperr.Is(err, apperr.KindNoTableFound) {
			t.Errorf("%s: expected no-table error, got %v", src, err)
		}
	}
}

func TestNormalize_Stringify(t *testing.T) {
	table, err := normalizeJSON(t, `[{"n":null,"t":true,"f":false,"i":42,"d":1.50,"e":1e3,"s":"a<b","o":{"z":1,"a":[1,"<"]}}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"n": "",
		"t": "true",
		"f": "false",
		"i": "42",
		"d": "1.50",
		"e": "1e3",
		"s": "a<b",
		"o": `{"a":[1,"<"],"z":1}`,
	}
	for k, w := range want {
		if got := table.Rows[0][k]; got != w {
			t.Errorf("%s = %q; want %q", k, got, w)
		}
	}
	if strings.Join(table.Columns, ",") != "d,e,f,i,n,o,s,t" {
		t.Errorf("columns = %v", table.Columns)
	}
}

func TestRules_Individually(t *testing.T) {
	obj := map[string]any{"items": []any{map[string]any{"a": "1"}}}
	if _, ok := RootArray(obj); ok {
		t.Error("RootArray should not match an object")
	}
	if objs, ok := KnownKey(obj); !ok || len(objs) != 1 {
		t.Errorf("KnownKey = %v, %v", objs, ok)
	}
	if _, ok := KnownKey([]any{}); ok {
		t.Error("KnownKey should not match an array")
	}
	if objs, ok := AnyArrayValue(obj); !ok || len(objs) != 1 {
		t.Errorf("AnyArrayValue = %v, %v", objs, ok)
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("{nope"))
	if !apperr.Is(err, apperr.KindDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
