package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// MaxStringLen is the longest string attribute written as is. Longer values
// are cut and annotated with their original size.
const MaxStringLen = 256

// Attribute names whose values are never logged. "value" and "payload"
// cover stored data; the rest cover credentials.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"value",
	"payload",
}

const redactedValue = "***REDACTED***"

// redactSensitive is installed as the handler's ReplaceAttr.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if len(s) > MaxStringLen {
			return slog.String(a.Key, Truncate(s, MaxStringLen))
		}
	case slog.KindAny:
		if b, ok := a.Value.Any().([]byte); ok {
			if IsSensitiveKey(a.Key) {
				return slog.String(a.Key, redactedValue)
			}
			return slog.String(a.Key, Truncate(string(b), MaxStringLen))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// Truncate shortens s to at most n bytes followed by a size note.
func Truncate(s string, n int) string {
	if n < 0 || len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}

// IsSensitiveKey reports whether an attribute name suggests content that
// must not be logged.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
