package tlsroots

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after a file event before reloading.
const DefaultDebounce = 500 * time.Millisecond

// KeyPair is a server certificate that can be swapped while serving.
type KeyPair struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
}

// LoadKeyPair reads the certificate and key files.
func LoadKeyPair(certFile, keyFile string) (*KeyPair, error) {
	kp := &KeyPair{certFile: certFile, keyFile: keyFile}
	if err := kp.Reload(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Reload re-reads both files. On failure the previous certificate stays
// in use.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
	}

	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()
	return nil
}

// Certificate returns the current certificate.
func (kp *KeyPair) Certificate() *tls.Certificate {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert
}

// NotAfter returns the expiry of the current leaf, or the zero time if
// it could not be parsed.
func (kp *KeyPair) NotAfter() time.Time {
	if c := kp.Certificate(); c != nil && c.Leaf != nil {
		return c.Leaf.NotAfter
	}
	return time.Time{}
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return kp.Certificate(), nil
}

// ServerConfig returns a server TLS config serving the current certificate.
func (kp *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	logger   *slog.Logger
	debounce time.Duration
}

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		o.logger = logger
	}
}

// WithDebounce sets the quiet period before reloading.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// Watch reloads the key pair whenever either file is written, created or
// renamed over. The parent directories are watched so that editors and
// cert managers that replace files atomically are seen. Watch blocks until
// ctx is cancelled.
func (kp *KeyPair) Watch(ctx context.Context, opts ...WatchOption) error {
	o := watchOptions{logger: slog.Default(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer fw.Close()

	watched := map[string]struct{}{
		filepath.Clean(kp.certFile): {},
		filepath.Clean(kp.keyFile):  {},
	}
	dirs := map[string]struct{}{}
	for f := range watched {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	o.logger.Info("certificate watcher started", "cert_file", kp.certFile, "not_after", kp.NotAfter())

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if _, ok := watched[filepath.Clean(event.Name)]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(o.debounce)

		case <-timer.C:
			if err := kp.Reload(); err != nil {
				o.logger.Error("certificate reload failed", "cert_file", kp.certFile, "error", err)
				continue
			}
			o.logger.Info("certificate reloaded", "cert_file", kp.certFile, "not_after", kp.NotAfter())

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			o.logger.Error("certificate watcher error", "error", err)

		case <-ctx.Done():
			o.logger.Info("certificate watcher stopped", "cert_file", kp.certFile)
			return nil
		}
	}
}
