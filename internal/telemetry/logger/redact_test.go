package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactSensitive_KeyNames(t *testing.T) {
	tests := []struct {
		key      string
		redacted bool
	}{
		{"password", true},
		{"tls_secret", true},
		{"auth_header", true},
		{"Value", true},
		{"payload", true},
		{"key", false},
		{"command", false},
		{"remote", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := redactSensitive(slog.String(tt.key, "data"))
			if (got.Value.String() == redactedValue) != tt.redacted {
				t.Errorf("redactSensitive(%s) = %q, redacted want %v", tt.key, got.Value.String(), tt.redacted)
			}
		})
	}
}

func TestRedactSensitive_EmptyValueKept(t *testing.T) {
	got := redactSensitive(slog.String("password", ""))
	if got.Value.String() != "" {
		t.Errorf("empty sensitive value should stay empty, got %q", got.Value.String())
	}
}

func TestRedactSensitive_Truncation(t *testing.T) {
	long := strings.Repeat("k", MaxStringLen+100)

	got := redactSensitive(slog.String("key", long)).Value.String()
	want := strings.Repeat("k", MaxStringLen) + "...(356 bytes)"
	if got != want {
		t.Errorf("truncated = %q, want %q", got, want)
	}

	short := redactSensitive(slog.String("key", "abc")).Value.String()
	if short != "abc" {
		t.Errorf("short value changed: %q", short)
	}
}

func TestRedactSensitive_Bytes(t *testing.T) {
	got := redactSensitive(slog.Any("value", []byte("raw")))
	if got.Value.String() != redactedValue {
		t.Errorf("byte payload not redacted: %q", got.Value.String())
	}

	got = redactSensitive(slog.Any("key", []byte("name")))
	if got.Value.String() != "name" {
		t.Errorf("byte key = %q, want name", got.Value.String())
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	group := slog.Group("cmd", slog.String("name", "SET"), slog.String("value", "hidden"))
	got := redactSensitive(group)

	attrs := got.Value.Group()
	if len(attrs) != 2 {
		t.Fatalf("group has %d attrs, want 2", len(attrs))
	}
	if attrs[0].Value.String() != "SET" {
		t.Errorf("name = %q, want SET", attrs[0].Value.String())
	}
	if attrs[1].Value.String() != redactedValue {
		t.Errorf("value = %q, want redacted", attrs[1].Value.String())
	}
}

func TestRedact_EndToEnd(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("command", "key", "user:1", "value", "top-secret")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["key"] != "user:1" {
		t.Errorf("key = %v, want user:1", entry["key"])
	}
	if entry["value"] != redactedValue {
		t.Errorf("value = %v, want redacted", entry["value"])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 2, "he...(5 bytes)"},
		{"hello", -1, "hello"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
