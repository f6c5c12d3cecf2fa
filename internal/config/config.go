package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Phonemizer PhonemizerConfig `mapstructure:"phonemizer"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
}

type PathsConfig struct {
	DataDir          string `mapstructure:"data_dir"`
	InventoryDir     string `mapstructure:"inventory_dir"`
	VoicesManifest   string `mapstructure:"voices_manifest"`
	DiacritizerModel string `mapstructure:"diacritizer_model"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type PhonemizerConfig struct {
	Backend    string `mapstructure:"backend"`
	Voice      string `mapstructure:"voice"`
	CLIPath    string `mapstructure:"cli_path"`
	Diacritize bool   `mapstructure:"diacritize"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type ServerConfig struct {
	ListenAddr      string  `mapstructure:"listen_addr"`
	Workers         int     `mapstructure:"workers"`
	MaxTextBytes    int     `mapstructure:"max_text_bytes"`
	RequestTimeout  int     `mapstructure:"request_timeout"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Queue   string `mapstructure:"queue"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			DataDir:          "",
			InventoryDir:     "inventories",
			VoicesManifest:   "voices/manifest.json",
			DiacritizerModel: "models/libtashkeel_model.ort",
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTVersion:     "",
			ORTAPIVersion:  23,
		},
		Phonemizer: PhonemizerConfig{
			Backend:    BackendNative,
			Voice:      "en-us",
			CLIPath:    "",
			Diacritize: true,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    16384,
			RequestTimeout:  30,
			ShutdownTimeout: 30,
			RateLimit:       0,
			RateBurst:       10,
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "phonemize.requests",
			Queue:   "phonemize",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-data-dir", defaults.Paths.DataDir, "Linguistic engine data directory (espeak-ng-data)")
	fs.String("paths-inventory-dir", defaults.Paths.InventoryDir, "Directory holding per-voice phoneme inventories")
	fs.String("paths-voices-manifest", defaults.Paths.VoicesManifest, "Optional voices manifest overriding the built-in catalog")
	fs.String("paths-diacritizer-model", defaults.Paths.DiacritizerModel, "Default diacritization model path")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("phonemizer-backend", defaults.Phonemizer.Backend, "Linguistic engine backend (native|cli)")
	fs.String("phonemizer-voice", defaults.Phonemizer.Voice, "Default voice id")
	fs.String("phonemizer-cli-path", defaults.Phonemizer.CLIPath, "Path to espeak-ng executable (cli backend)")
	fs.Bool("phonemizer-diacritize", defaults.Phonemizer.Diacritize, "Restore diacritics for voices that need them")
	fs.Int("batch-workers", defaults.Batch.Workers, "Concurrent items in batch mode")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent phonemize requests")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Max request text size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Float64("server-rate-limit", defaults.Server.RateLimit, "Requests per second (0 disables rate limiting)")
	fs.Int("server-rate-burst", defaults.Server.RateBurst, "Rate limiter burst size")
	fs.String("nats-url", defaults.NATS.URL, "NATS server URL")
	fs.String("nats-subject", defaults.NATS.Subject, "NATS request subject")
	fs.String("nats-queue", defaults.NATS.Queue, "NATS queue group")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (json|text)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("PHONEMIZE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	// Aliases resolve to the flag keys, so extra env names bind there.
	if err := v.BindEnv("runtime-ort-library-path", "PHONEMIZE_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	if err := v.BindEnv("nats-url", "PHONEMIZE_NATS_URL", "NATS_URL"); err != nil {
		return Config{}, fmt.Errorf("bind nats env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		path, err := homedir.Expand(opts.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("phonemize")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := expandPaths(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// configDirs lists the directories searched for phonemize.{yaml,toml,json},
// working directory first.
func configDirs() []string {
	dirs := []string{"."}

	scope := gap.NewScope(gap.User, "phonemize")
	if user, err := scope.ConfigDirs(); err == nil {
		dirs = append(dirs, user...)
	}

	return dirs
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{
		&cfg.Paths.DataDir,
		&cfg.Paths.InventoryDir,
		&cfg.Paths.VoicesManifest,
		&cfg.Paths.DiacritizerModel,
		&cfg.Runtime.ORTLibraryPath,
		&cfg.Phonemizer.CLIPath,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.data_dir", c.Paths.DataDir)
	v.SetDefault("paths.inventory_dir", c.Paths.InventoryDir)
	v.SetDefault("paths.voices_manifest", c.Paths.VoicesManifest)
	v.SetDefault("paths.diacritizer_model", c.Paths.DiacritizerModel)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("phonemizer.backend", c.Phonemizer.Backend)
	v.SetDefault("phonemizer.voice", c.Phonemizer.Voice)
	v.SetDefault("phonemizer.cli_path", c.Phonemizer.CLIPath)
	v.SetDefault("phonemizer.diacritize", c.Phonemizer.Diacritize)
	v.SetDefault("batch.workers", c.Batch.Workers)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", c.Server.RateLimit)
	v.SetDefault("server.rate_burst", c.Server.RateBurst)
	v.SetDefault("nats.url", c.NATS.URL)
	v.SetDefault("nats.subject", c.NATS.Subject)
	v.SetDefault("nats.queue", c.NATS.Queue)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.data_dir", "paths-data-dir")
	v.RegisterAlias("paths.inventory_dir", "paths-inventory-dir")
	v.RegisterAlias("paths.voices_manifest", "paths-voices-manifest")
	v.RegisterAlias("paths.diacritizer_model", "paths-diacritizer-model")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_version", "runtime-ort-version")
	v.RegisterAlias("runtime.ort_api_version", "runtime-ort-api-version")
	v.RegisterAlias("phonemizer.backend", "phonemizer-backend")
	v.RegisterAlias("phonemizer.voice", "phonemizer-voice")
	v.RegisterAlias("phonemizer.cli_path", "phonemizer-cli-path")
	v.RegisterAlias("phonemizer.diacritize", "phonemizer-diacritize")
	v.RegisterAlias("batch.workers", "batch-workers")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.max_text_bytes", "server-max-text-bytes")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("server.rate_limit", "server-rate-limit")
	v.RegisterAlias("server.rate_burst", "server-rate-burst")
	v.RegisterAlias("nats.url", "nats-url")
	v.RegisterAlias("nats.subject", "nats-subject")
	v.RegisterAlias("nats.queue", "nats-queue")
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("log_format", "log-format")
}
