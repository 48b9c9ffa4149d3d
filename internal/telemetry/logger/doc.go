// Package logger provides structured logging for memkv.
//
//   - logger.go: Logger interface over log/slog, level control, package defaults
//   - context.go: context propagation of the logger, connection IDs and request IDs
//   - redact.go: attribute redaction and truncation applied to every record
//
// Stored values never reach the log: attributes named like payloads or
// credentials are redacted, and long strings are truncated.
package logger
