package resp

import (
	"errors"
	"testing"
)

func TestMessage_Command(t *testing.T) {
	name, args, err := CommandValue("set", "k", "v").Command()
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if name != "set" {
		t.Errorf("name = %q, want %q", name, "set")
	}
	if len(args) != 2 || args[0].Text() != "k" || args[1].Text() != "v" {
		t.Errorf("args = %v, want [k v]", args)
	}
}

func TestMessage_Command_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"not an array", BulkStringValue("PING")},
		{"empty array", ArrayValue()},
		{"null array", NullArrayValue()},
		{"integer head", ArrayValue(IntegerValue(1))},
		{"simple string head", ArrayValue(SimpleStringValue("PING"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.msg.Command()
			if !errors.Is(err, ErrNotCommand) {
				t.Errorf("Command() error = %v, want ErrNotCommand", err)
			}
		})
	}
}

func TestMessage_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Message
		want bool
	}{
		{"same integer", IntegerValue(1), IntegerValue(1), true},
		{"different integer", IntegerValue(1), IntegerValue(2), false},
		{"bulk vs simple", BulkStringValue("x"), SimpleStringValue("x"), false},
		{"null vs null array", NullValue(), NullArrayValue(), false},
		{"empty vs nil bulk", BulkStringValue(""), BulkBytesValue(nil), true},
		{"nested equal", ArrayValue(ArrayValue(IntegerValue(1))), ArrayValue(ArrayValue(IntegerValue(1))), true},
		{"nested differ", ArrayValue(ArrayValue(IntegerValue(1))), ArrayValue(ArrayValue(IntegerValue(2))), false},
		{"length differ", ArrayValue(IntegerValue(1)), ArrayValue(IntegerValue(1), IntegerValue(1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_String(t *testing.T) {
	msg := ArrayValue(BulkStringValue("a"), IntegerValue(2), NullValue(), ErrorValue("ERR x"))
	want := `["a", (integer) 2, (nil), (error) ERR x]`
	if got := msg.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKind_String(t *testing.T) {
	if KindBulkString.String() != "bulk-string" {
		t.Errorf("KindBulkString.String() = %q", KindBulkString.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}
