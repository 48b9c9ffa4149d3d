// Package resp implements the RESP2 wire protocol used by memkv.
//
// The package is split into:
//
//   - message.go: the Message tagged variant and its constructors
//   - decode.go: buffer-prefix decoder with protocol limits
//   - encode.go: serializer, the exact inverse of the decoder
//   - reader.go: stream reader that keeps the undecoded remainder between reads
//
// Decoding works on an append-only byte buffer. Decode returns the first
// complete top-level message and the number of bytes it occupied, or
// ErrIncomplete when the buffer ends inside a message. Callers keep the
// remainder and drain every complete message before reading more bytes,
// which is what Reader does for pipelined requests.
//
// Usage:
//
//	r := resp.NewReader(conn, resp.DefaultLimits())
//	msg, err := r.ReadMessage()
//	...
//	_ = resp.Write(conn, resp.SimpleStringValue("OK"))
package resp
