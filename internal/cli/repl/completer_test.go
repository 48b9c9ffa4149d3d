package repl

import (
	"reflect"
	"testing"
)

func TestCompleter(t *testing.T) {
	c := NewCompleter("GET", "SET", "EXPIRE", "EXISTS", "exit")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"ex", []string{"exists", "exit", "expire"}},
		{"G", []string{"get"}},
		{"zz", nil},
		{"", []string{"exists", "exit", "expire", "get", "set"}},
	}
	for _, tt := range tests {
		if got := c.Complete(tt.prefix); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
	if len(c.Commands()) != 5 {
		t.Errorf("Commands() = %q", c.Commands())
	}
}
