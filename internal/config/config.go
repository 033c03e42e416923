package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/typicalmohit/tinku-ji/internal/crypto"
)

const (
	defaultDatabaseName      = "tinkuji.db"
	defaultMaxDocumentSizeMB = 5
	defaultOrphanGracePeriod = 24 * time.Hour
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
	defaultLogMaxSizeMB      = 10
	defaultLogMaxFiles       = 5
	maxDocumentSizeMBLimit   = 100
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Files   FilesConfig   `toml:"files"`
	Auth    AuthConfig    `toml:"auth"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

type StorageConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabaseName string `toml:"database_name"`
}

type FilesConfig struct {
	MaxDocumentSizeMB int           `toml:"max_document_size_mb"`
	OrphanGracePeriod time.Duration `toml:"orphan_grace_period"`
}

type AuthConfig struct {
	Argon2MemoryKiB   uint32 `toml:"argon2_memory_kib"`
	Argon2Iterations  uint32 `toml:"argon2_iterations"`
	Argon2Parallelism uint8  `toml:"argon2_parallelism"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type LoadOptions struct {
	ConfigPath string
	// EnvFile is a dotenv file consulted after the process environment.
	EnvFile string
	Env     map[string]string
	Flags   FlagOverrides
}

type FlagOverrides struct {
	DataDir        *string
	LogLevel       *string
	MetricsEnabled *bool
}

func DefaultConfig() Config {
	argon := crypto.DefaultArgon2Params()
	return Config{
		Storage: StorageConfig{
			DatabaseName: defaultDatabaseName,
		},
		Files: FilesConfig{
			MaxDocumentSizeMB: defaultMaxDocumentSizeMB,
			OrphanGracePeriod: defaultOrphanGracePeriod,
		},
		Auth: AuthConfig{
			Argon2MemoryKiB:   argon.Memory,
			Argon2Iterations:  argon.Iterations,
			Argon2Parallelism: argon.Parallelism,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load resolves the configuration: defaults, TOML file, dotenv file, process
// environment, flags. Later sources win.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	env, err := newEnvSource(opts)
	if err != nil {
		return Config{}, err
	}

	configPath, err := resolveConfigPath(env, opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, env); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Storage.DataDir == "" {
		dir, err := defaultDataDir(env)
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.Storage.DataDir = dir
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DatabaseName)
}

func (c Config) MaxDocumentBytes() int64 {
	return int64(c.Files.MaxDocumentSizeMB) * 1024 * 1024
}

func (c Config) Argon2Params() crypto.Argon2Params {
	params := crypto.DefaultArgon2Params()
	params.Memory = c.Auth.Argon2MemoryKiB
	params.Iterations = c.Auth.Argon2Iterations
	params.Parallelism = c.Auth.Argon2Parallelism
	return params
}

type rawConfig struct {
	Storage *rawStorage `toml:"storage"`
	Files   *rawFiles   `toml:"files"`
	Auth    *rawAuth    `toml:"auth"`
	Logging *rawLogging `toml:"logging"`
	Metrics *rawMetrics `toml:"metrics"`
}

type rawStorage struct {
	DataDir      *string `toml:"data_dir"`
	DatabaseName *string `toml:"database_name"`
}

type rawFiles struct {
	MaxDocumentSizeMB *int    `toml:"max_document_size_mb"`
	OrphanGracePeriod *string `toml:"orphan_grace_period"`
}

type rawAuth struct {
	Argon2MemoryKiB   *int `toml:"argon2_memory_kib"`
	Argon2Iterations  *int `toml:"argon2_iterations"`
	Argon2Parallelism *int `toml:"argon2_parallelism"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	Format    *string `toml:"format"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

type rawMetrics struct {
	Enabled *bool `toml:"enabled"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Storage != nil {
		setString(raw.Storage.DataDir, &cfg.Storage.DataDir)
		setString(raw.Storage.DatabaseName, &cfg.Storage.DatabaseName)
	}

	if raw.Files != nil {
		setInt(raw.Files.MaxDocumentSizeMB, &cfg.Files.MaxDocumentSizeMB)
		if err := setDuration("files.orphan_grace_period", raw.Files.OrphanGracePeriod, &cfg.Files.OrphanGracePeriod); err != nil {
			return err
		}
	}

	if raw.Auth != nil {
		if err := setUint32("auth.argon2_memory_kib", raw.Auth.Argon2MemoryKiB, &cfg.Auth.Argon2MemoryKiB); err != nil {
			return err
		}
		if err := setUint32("auth.argon2_iterations", raw.Auth.Argon2Iterations, &cfg.Auth.Argon2Iterations); err != nil {
			return err
		}
		if raw.Auth.Argon2Parallelism != nil {
			p, err := toUint8("auth.argon2_parallelism", *raw.Auth.Argon2Parallelism)
			if err != nil {
				return err
			}
			cfg.Auth.Argon2Parallelism = p
		}
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.Format, &cfg.Logging.Format)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}

	if raw.Metrics != nil && raw.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *raw.Metrics.Enabled
	}
	return nil
}

func applyEnvOverrides(cfg *Config, env envSource) error {
	if value, ok := env.lookup("TINKUJI_DATA_DIR"); ok {
		cfg.Storage.DataDir = value
	}
	if value, ok := env.lookup("TINKUJI_DATABASE_NAME"); ok {
		cfg.Storage.DatabaseName = value
	}

	if value, ok := env.lookup("TINKUJI_MAX_DOCUMENT_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_MAX_DOCUMENT_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Files.MaxDocumentSizeMB = parsed
	}
	if value, ok := env.lookup("TINKUJI_ORPHAN_GRACE_PERIOD"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_ORPHAN_GRACE_PERIOD: %v", ErrInvalidConfig, err)
		}
		cfg.Files.OrphanGracePeriod = d
	}

	if value, ok := env.lookup("TINKUJI_ARGON2_MEMORY_KIB"); ok {
		parsed, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_ARGON2_MEMORY_KIB: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.Argon2MemoryKiB = uint32(parsed)
	}
	if value, ok := env.lookup("TINKUJI_ARGON2_ITERATIONS"); ok {
		parsed, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_ARGON2_ITERATIONS: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.Argon2Iterations = uint32(parsed)
	}
	if value, ok := env.lookup("TINKUJI_ARGON2_PARALLELISM"); ok {
		parsed, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_ARGON2_PARALLELISM: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.Argon2Parallelism = uint8(parsed)
	}

	if value, ok := env.lookup("TINKUJI_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := env.lookup("TINKUJI_LOG_FORMAT"); ok {
		cfg.Logging.Format = value
	}
	if value, ok := env.lookup("TINKUJI_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := env.lookup("TINKUJI_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := env.lookup("TINKUJI_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}

	if value, ok := env.lookup("TINKUJI_METRICS_ENABLED"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: parse TINKUJI_METRICS_ENABLED: %v", ErrInvalidConfig, err)
		}
		cfg.Metrics.Enabled = parsed
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.DataDir != nil && *flags.DataDir != "" {
		cfg.Storage.DataDir = *flags.DataDir
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *flags.MetricsEnabled
	}
}

func validate(cfg Config) error {
	name := cfg.Storage.DatabaseName
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: storage.database_name must be a plain file name", ErrInvalidConfig)
	}
	if cfg.Files.MaxDocumentSizeMB <= 0 || cfg.Files.MaxDocumentSizeMB > maxDocumentSizeMBLimit {
		return fmt.Errorf("%w: files.max_document_size_mb must be > 0 and <= %d", ErrInvalidConfig, maxDocumentSizeMBLimit)
	}
	if cfg.Files.OrphanGracePeriod < 0 {
		return fmt.Errorf("%w: files.orphan_grace_period must not be negative", ErrInvalidConfig)
	}
	if err := cfg.Argon2Params().Validate(); err != nil {
		return fmt.Errorf("%w: auth: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json", ErrInvalidConfig)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw != nil {
		*target = *raw
	}
}

func setInt(raw *int, target *int) {
	if raw != nil {
		*target = *raw
	}
}

func setUint32(field string, raw *int, target *uint32) error {
	if raw == nil {
		return nil
	}
	if *raw < 0 || int64(*raw) > int64(^uint32(0)) {
		return fmt.Errorf("%w: %s out of range", ErrInvalidConfig, field)
	}
	*target = uint32(*raw)
	return nil
}

func toUint8(field string, v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidConfig, field)
	}
	return uint8(v), nil
}

// envSource looks keys up in explicit overrides, then the process
// environment, then the dotenv file.
type envSource struct {
	explicit map[string]string
	dotenv   map[string]string
}

func newEnvSource(opts LoadOptions) (envSource, error) {
	src := envSource{explicit: opts.Env, dotenv: map[string]string{}}

	path := opts.EnvFile
	if path == "" {
		if value, ok := src.lookup("TINKUJI_ENV_FILE"); ok {
			path = value
		}
	}
	if path == "" {
		return src, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return src, nil
		}
		return envSource{}, fmt.Errorf("%w: read env file %q: %v", ErrInvalidConfig, path, err)
	}
	src.dotenv = values
	return src, nil
}

func (e envSource) lookup(key string) (string, bool) {
	if e.explicit != nil {
		if value, ok := e.explicit[key]; ok {
			return value, true
		}
	}
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := e.dotenv[key]
	return value, ok
}

func resolveConfigPath(env envSource, opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := env.lookup("TINKUJI_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(env)
}

func defaultDataDir(env envSource) (string, error) {
	if value, ok := env.lookup("TINKUJI_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "tinkuji"), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := env.lookup("XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, "tinkuji"), nil
}

func defaultConfigPath(env envSource) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "tinkuji", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := env.lookup("XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "tinkuji", "config.toml"), nil
}

// ResolveConfigPath returns the config file Load would read for opts.
func ResolveConfigPath(opts LoadOptions) (string, error) {
	env, err := newEnvSource(opts)
	if err != nil {
		return "", err
	}
	return resolveConfigPath(env, opts)
}
