package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "MEMKV_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values that take precedence over every other source,
// keyed by dotted path. Used for command-line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configuration file path, or "" if none is set.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads file, environment and overrides, in that order, and unmarshals
// the result into target. target should already hold default values; keys
// absent from every source keep them.
func (l *Loader) Load(target any) error {
	l.k = koanf.New(".")

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}

	known, err := knownKeys(target)
	if err != nil {
		return err
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", l.envKey(known)), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.k.Load(confmap.Provider(l.overrides, "."), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// knownKeys lists the dotted paths of every leaf koanf field in target.
func knownKeys(target any) ([]string, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(target, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("read config keys: %w", err)
	}
	return k.Keys(), nil
}

// envKey returns the koanf env transformer. MEMKV_SERVER_REDIS_ADDR becomes
// server.redis.addr. Names matching no known key are skipped, so variables
// meant for other tools sharing the prefix (MEMKV_SERVER for the CLI) do not
// clobber whole sections.
func (l *Loader) envKey(known []string) func(string) string {
	byEnv := make(map[string]string, len(known))
	for _, k := range known {
		byEnv[strings.ReplaceAll(k, ".", "_")] = k
	}
	return func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return byEnv[s]
	}
}

// Get returns a loaded value by dotted key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// Keys returns all loaded keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}
