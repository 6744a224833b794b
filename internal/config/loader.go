package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix namespaces the environment variables phased reads.
const envPrefix = "PHASED_"

// boolDefaults seeds the fields whose default is true. These must be loaded
// as a koanf layer, not patched in applyDefaults, so an explicit false in the
// file or environment survives unmarshaling.
const boolDefaults = `
memory:
  compress: true
hook:
  enabled: true
  auto_save: true
`

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PHASED_MEMORY_COLLECTION, PHASED_LOGGING_LEVEL, ...)
//  2. YAML config file (conventionally .phased/config.yaml)
//  3. Defaults
//
// A missing file is not an error; the defaults plus environment apply.
//
// Environment variables are mapped by stripping the PHASED_ prefix,
// lowercasing, and splitting on the first underscore:
//
//	PHASED_LOGGING_LEVEL        -> logging.level
//	PHASED_EMBEDDINGS_BASE_URL  -> embeddings.base_url
//	PHASED_MEMORY_EMBED_TIMEOUT -> memory.embed_timeout
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(boolDefaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	// Environment variables use underscore separator and are uppercased.
	// Split on first underscore only (section.field_name pattern).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFile reads and parses one YAML config layer. A nonexistent file is
// skipped; any other failure is an error.
func loadFile(k *koanf.Koanf, path string) error {
	// Open once and stat the descriptor to avoid a TOCTOU race between the
	// size check and the read.
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
