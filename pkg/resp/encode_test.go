package resp

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"null", NullValue(), "$-1\r\n"},
		{"null array", NullArrayValue(), "*-1\r\n"},
		{"integer", IntegerValue(42), ":42\r\n"},
		{"negative integer", IntegerValue(-1), ":-1\r\n"},
		{"simple string", SimpleStringValue("OK"), "+OK\r\n"},
		{"error", ErrorValue("unknown command"), "-unknown command\r\n"},
		{"bulk string", BulkStringValue("bar"), "$3\r\nbar\r\n"},
		{"empty bulk string", BulkStringValue(""), "$0\r\n\r\n"},
		{"nil bulk bytes", BulkBytesValue(nil), "$0\r\n\r\n"},
		{"empty array", ArrayValue(), "*0\r\n"},
		{"zero value array", Message{Kind: KindArray}, "*0\r\n"},
		{
			"keys reply",
			ArrayValue(BulkStringValue("a"), BulkStringValue("bc")),
			"*2\r\n$1\r\na\r\n$2\r\nbc\r\n",
		},
		{
			"nested array keeps order",
			ArrayValue(
				ArrayValue(IntegerValue(1), IntegerValue(2)),
				SimpleStringValue("x"),
				ArrayValue(NullValue()),
			),
			"*3\r\n*2\r\n:1\r\n:2\r\n+x\r\n*1\r\n$-1\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Encode(tt.msg))
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_SingleLineSanitized(t *testing.T) {
	got := string(Encode(ErrorValue("bad\r\nthing")))
	if got != "-bad  thing\r\n" {
		t.Errorf("Encode() = %q, want CR/LF replaced", got)
	}

	// The sanitized output must still frame as exactly one message.
	_, n, err := Decode([]byte(got))
	if err != nil || n != len(got) {
		t.Errorf("Decode(sanitized) = (%d, %v), want (%d, nil)", n, err, len(got))
	}
}

func TestAppendEncode_Appends(t *testing.T) {
	dst := []byte("prefix:")
	dst = AppendEncode(dst, SimpleStringValue("OK"))
	if string(dst) != "prefix:+OK\r\n" {
		t.Errorf("AppendEncode() = %q", dst)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, IntegerValue(7)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != ":7\r\n" {
		t.Errorf("Write() wrote %q", buf.String())
	}

	if err := Write(failingWriter{}, IntegerValue(7)); err == nil {
		t.Error("Write() to failing writer should return error")
	}
}
