package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type result struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type tabled []result

func (t tabled) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{r.Name})
	}
	return []string{"NAME", "COUNT"}, rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"table", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) error should wrap ErrUnknownFormat", tt.in)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	data := result{Name: "gen", Count: 2}

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatYAML, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if buf.String() != "name: gen\ncount: 2\n" {
			t.Errorf("unexpected yaml:\n%s", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatJSON, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if buf.String() != "{\n  \"name\": \"gen\",\n  \"count\": 2\n}\n" {
			t.Errorf("unexpected json:\n%s", buf.String())
		}
	})

	t.Run("table falls back to yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatTable, data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "name: gen") {
			t.Errorf("expected yaml fallback, got:\n%s", buf.String())
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, FormatTable, tabled{{Name: "gen"}, {Name: "exo"}}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"NAME", "COUNT", "gen", "exo"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := Write(&bytes.Buffer{}, Format("xml"), data); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("Write() error = %v, want ErrUnknownFormat", err)
		}
	})
}

func TestRenderTableNoColumns(t *testing.T) {
	if got := RenderTable(nil, [][]string{{"x"}}); got != "" {
		t.Errorf("RenderTable() = %q, want empty", got)
	}
}
