package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yndnr/memkv/pkg/resp"
)

// ============================================================
// Formatter Tests
// ============================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json: wrong formatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("yaml: wrong formatter")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("unknown format does not fall back to table")
	}
}

// ============================================================
// Reply Rendering Tests
// ============================================================

func sampleReply() resp.Message {
	return resp.ArrayValue(
		resp.BulkStringValue("alpha"),
		resp.IntegerValue(7),
		resp.NullValue(),
		resp.ErrorValue("ERR nope"),
		resp.ArrayValue(resp.SimpleStringValue("OK")),
	)
}

func TestWriteReply(t *testing.T) {
	tests := []struct {
		name string
		in   resp.Message
		want string
	}{
		{"simple", resp.SimpleStringValue("PONG"), "PONG\n"},
		{"bulk", resp.BulkStringValue("a \"b\"\n"), "\"a \\\"b\\\"\\n\"\n"},
		{"integer", resp.IntegerValue(-2), "(integer) -2\n"},
		{"null", resp.NullValue(), "(nil)\n"},
		{"null array", resp.NullArrayValue(), "(nil)\n"},
		{"error", resp.ErrorValue("ERR syntax error"), "(error) ERR syntax error\n"},
		{"empty array", resp.ArrayValue(), "(empty array)\n"},
		{
			"nested",
			sampleReply(),
			"1) \"alpha\"\n2) (integer) 7\n3) (nil)\n4) (error) ERR nope\n5) 1) OK\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReply(&buf, tt.in); err != nil {
				t.Fatalf("WriteReply() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteReply() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteReply_AlignsWideArrays(t *testing.T) {
	items := make([]resp.Message, 10)
	for i := range items {
		items[i] = resp.ArrayValue(resp.IntegerValue(int64(i)), resp.IntegerValue(0))
	}

	var buf bytes.Buffer
	if err := WriteReply(&buf, resp.ArrayValue(items...)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if lines[0] != " 1) 1) (integer) 0" || lines[1] != "    2) (integer) 0" {
		t.Errorf("first item = %q / %q", lines[0], lines[1])
	}
	if lines[18] != "10) 1) (integer) 9" {
		t.Errorf("last item = %q", lines[18])
	}
}

func TestReplyValue(t *testing.T) {
	got := ReplyValue(sampleReply())
	items, ok := got.([]any)
	if !ok || len(items) != 5 {
		t.Fatalf("ReplyValue() = %#v", got)
	}
	if items[0] != "alpha" || items[1] != int64(7) || items[2] != nil {
		t.Errorf("scalars = %#v", items[:3])
	}
	if e, ok := items[3].(map[string]string); !ok || e["error"] != "ERR nope" {
		t.Errorf("error item = %#v", items[3])
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, sampleReply()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := `[
  "alpha",
  7,
  null,
  {
    "error": "ERR nope"
  },
  [
    "OK"
  ]
]
`
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Keys int    `yaml:"keys"`
		Name string `yaml:"name"`
	}{Keys: 3, Name: "memkv"}

	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.String() != "keys: 3\nname: memkv\n" {
		t.Errorf("Format() = %q", buf.String())
	}

	buf.Reset()
	if err := (&YAMLFormatter{}).Format(&buf, resp.ArrayValue(resp.BulkStringValue("a"), resp.IntegerValue(1))); err != nil {
		t.Fatalf("Format(reply) error = %v", err)
	}
	if buf.String() != "- a\n- 1\n" {
		t.Errorf("Format(reply) = %q", buf.String())
	}
}
