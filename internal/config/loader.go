package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "sqlsense.yaml"
	ConfigFileNameAlt = "sqlsense.yml"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SQLSENSE_CONNECTION__DRIVER sets connection.driver.
const EnvPrefix = "SQLSENSE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// LoadOptions controls Load.
type LoadOptions struct {
	// File is an explicit config file. When empty, sqlsense.yaml is searched
	// upward from Dir.
	File string
	// Dir is where the search starts. Empty means the working directory.
	Dir string

	// Flags overlays explicitly set flags. Flag names map to config keys
	// through FlagKeys, or by replacing dashes with underscores.
	Flags    *pflag.FlagSet
	FlagKeys map[string]string
}

// Load builds the configuration from defaults, the config file, the
// environment and flags, in increasing precedence. It returns the config
// and the path of the file that was read, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	k := koanf.New(".")

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cfgFile := opts.File
	if cfgFile == "" {
		cfgFile = FindConfigFile(dir)
	}
	projectRoot := dir
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags. Paths given on the command line are relative to the
	// working directory, not the project root.
	fromFlags := make(map[string]bool)
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := opts.FlagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			fromFlags[key] = true
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	expandConnectionEnvVars(&cfg.Connection)
	if cfg.Connection.DSN != "" {
		parsed, err := ParseDSN(cfg.Connection.DSN)
		if err != nil {
			return nil, "", fmt.Errorf("invalid connection.dsn: %w", err)
		}
		mergeConnection(&cfg.Connection.ConnectionConfig, parsed)
	}

	cwd, _ := os.Getwd()
	base := func(key string) string {
		if fromFlags[key] && cwd != "" {
			return cwd
		}
		return projectRoot
	}
	cfg.Schema.SnapshotPath = resolvePathRelativeTo(cfg.Schema.SnapshotPath, base("schema.snapshot_path"))
	cfg.Schema.Fixture = resolvePathRelativeTo(cfg.Schema.Fixture, base("schema.fixture"))
	for i, d := range cfg.Schema.Watch.Dirs {
		cfg.Schema.Watch.Dirs[i] = resolvePathRelativeTo(d, base("schema.watch.dirs"))
	}
	if p := cfg.Connection.Path; p != ":memory:" {
		pathBase := base("connection.path")
		if fromFlags["connection.dsn"] {
			pathBase = base("connection.dsn")
		}
		cfg.Connection.Path = resolvePathRelativeTo(p, pathBase)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, cfgFile, nil
}

func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	})
}

// envKey maps SQLSENSE_SCHEMA__FETCH_CONCURRENCY to schema.fetch_concurrency.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// FindConfigFile searches startDir and its parents for sqlsense.yaml or
// sqlsense.yml. It returns "" when none is found.
func FindConfigFile(startDir string) string {
	if root := FindProjectRoot(startDir); root != "" {
		return configIn(root)
	}
	return ""
}

// FindProjectRoot returns the closest directory at or above startDir that
// holds a config file, or "" if there is none within reach.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if configIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func configIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value. Unset variables
// are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandConnectionEnvVars expands the fields likely to hold secrets.
func expandConnectionEnvVars(c *ConnectionConfig) {
	c.DSN = expandEnvVars(c.DSN)
	c.Host = expandEnvVars(c.Host)
	c.User = expandEnvVars(c.User)
	c.Password = expandEnvVars(c.Password)
	c.Database = expandEnvVars(c.Database)
	c.Path = expandEnvVars(c.Path)
}
