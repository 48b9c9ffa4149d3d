// Package tlsroots loads TLS material for memkv.
//
// Pool builds client trust stores from the system roots plus extra CA
// files, used by memkv-cli for tls:// targets. KeyPair holds the server
// certificate behind tls.Config.GetCertificate and reloads it when the
// files on disk change, so certificates can be rotated without a restart.
package tlsroots
