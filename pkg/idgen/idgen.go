// Package idgen generates sortable, prefixed identifiers for connections
// and requests.
//
// Identifiers are ULIDs rendered in lowercase Crockford base32 behind a
// short prefix, e.g. "conn_01hx6v1y7k3m9q0w8e2r4t6y8u".
package idgen

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Well-known prefixes.
const (
	PrefixConn    = "conn_"
	PrefixRequest = "req_"
)

// New returns prefix followed by a fresh ULID.
func New(prefix string) string {
	return prefix + strings.ToLower(newULID(time.Now()).String())
}

// Parse splits id into its prefix and timestamp.
// ok is false if id does not end in a valid ULID.
func Parse(id string) (prefix string, ts time.Time, ok bool) {
	if len(id) < ulid.EncodedSize {
		return "", time.Time{}, false
	}
	cut := len(id) - ulid.EncodedSize
	u, err := ulid.ParseStrict(strings.ToUpper(id[cut:]))
	if err != nil {
		return "", time.Time{}, false
	}
	return id[:cut], ulid.Time(u.Time()), true
}

func newULID(t time.Time) ulid.ULID {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy)
}
