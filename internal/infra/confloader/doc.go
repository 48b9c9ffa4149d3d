// Package confloader loads configuration with koanf and watches the config
// file for changes.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (MEMKV_ prefix)
//  3. Configuration file (YAML)
//  4. Defaults already present in the target struct
//
// Environment names are resolved against the koanf tags of the target, so
// MEMKV_SERVER_REDIS_READ_TIMEOUT maps to server.redis.read_timeout even
// though the key itself contains an underscore.
package confloader
