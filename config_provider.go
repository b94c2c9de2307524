package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads Config from path, picking YAML or TOML decoding by
// file extension (the same two formats the teacher's config layer
// supports), then applies any KERNEL_-prefixed environment variable
// overrides before validating. Returns the zero Config and the
// decode/validation error on failure.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kernel: read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("kernel: parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("kernel: parse toml config %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("kernel: unsupported config extension %q", ext)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides layers KERNEL_* environment variables on top of a
// decoded Config, using golobby/cast to coerce the string environment
// values into the struct's numeric and bool fields (KERNEL_RANDOM_SEED
// is parsed with strconv). ProgressInterval has no environment override.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("KERNEL_LOOKAHEAD"); ok {
		n, err := cast.ToInt64(v)
		if err != nil {
			return fmt.Errorf("kernel: KERNEL_LOOKAHEAD: %w", err)
		}
		cfg.Lookahead = n
	}
	if v, ok := os.LookupEnv("KERNEL_STOP_TIME"); ok {
		n, err := cast.ToInt64(v)
		if err != nil {
			return fmt.Errorf("kernel: KERNEL_STOP_TIME: %w", err)
		}
		cfg.StopTime = n
	}
	if v, ok := os.LookupEnv("KERNEL_FORMALISM"); ok {
		cfg.Formalism = Formalism(v)
	}
	if v, ok := os.LookupEnv("KERNEL_QM_IP"); ok {
		cfg.QMIP = v
	}
	if v, ok := os.LookupEnv("KERNEL_QM_PORT"); ok {
		n, err := cast.ToInt(v)
		if err != nil {
			return fmt.Errorf("kernel: KERNEL_QM_PORT: %w", err)
		}
		cfg.QMPort = n
	}
	if v, ok := os.LookupEnv("KERNEL_SHOW_PROGRESS"); ok {
		b, err := cast.ToBool(v)
		if err != nil {
			return fmt.Errorf("kernel: KERNEL_SHOW_PROGRESS: %w", err)
		}
		cfg.ShowProgress = b
	}
	if v, ok := os.LookupEnv("KERNEL_RANDOM_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("kernel: KERNEL_RANDOM_SEED: %w", err)
		}
		cfg.RandomSeed = n
	}
	return nil
}

// WatchConfig wires internal/configwatch onto path, delivering future
// non-structural reloads (ShowProgress, ProgressInterval) while
// rejecting any change to Lookahead, Formalism or the quantum-manager
// endpoint. The returned channels mirror configwatch.Watcher's; callers
// typically select on Changes to update a running Timeline's progress
// reporting and log Rejected entries as warnings.
func WatchConfig(path string, current Config) (changes <-chan Config, rejected <-chan error, stop func() error, err error) {
	decode := func(p string) (Config, error) {
		return LoadConfig(p)
	}
	structural := func(oldCfg, newCfg Config) bool {
		return !structuralEqual(oldCfg, newCfg)
	}
	w, err := newConfigWatcher(path, current, decode, structural)
	if err != nil {
		return nil, nil, nil, err
	}
	go func() { _ = w.run() }()
	return w.changesCh(), w.rejectedCh(), w.stop, nil
}
