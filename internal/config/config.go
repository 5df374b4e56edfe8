// Package config layers the YAML config file, BOARDTRANS_* environment
// variables and command-line flags with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/oukeidos/boardtrans/internal/providers"
	"github.com/oukeidos/boardtrans/internal/translation"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "BOARDTRANS"
	FileName  = ".boardtrans"

	KeyProvider          = "provider"
	KeyModel             = "model"
	KeyMaxAttempts       = "retry.max_attempts"
	KeyInitialDelay      = "retry.initial_delay"
	KeyBackoffMultiplier = "retry.backoff_multiplier"
	KeyConcurrency       = "batch.concurrency"
	KeyQPS               = "batch.qps"
	KeyHistoryPath       = "history.path"
	KeyAllowEnv          = "allow_env"
)

const (
	DefaultConcurrency = 2
	DefaultQPS         = 1.0
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"provider":           KeyProvider,
	"model":              KeyModel,
	"max-attempts":       KeyMaxAttempts,
	"initial-delay":      KeyInitialDelay,
	"backoff-multiplier": KeyBackoffMultiplier,
	"concurrency":        KeyConcurrency,
	"qps":                KeyQPS,
	"history-file":       KeyHistoryPath,
	"allow-env":          KeyAllowEnv,
}

type Config struct {
	Provider    string
	Model       string
	Retry       translation.RetryPolicy
	Concurrency int
	QPS         float64
	HistoryPath string
	AllowEnv    bool
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyProvider, providers.Default)
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyMaxAttempts, translation.DefaultRetryPolicy.MaxAttempts)
	v.SetDefault(KeyInitialDelay, translation.DefaultRetryPolicy.InitialDelay)
	v.SetDefault(KeyBackoffMultiplier, translation.DefaultRetryPolicy.BackoffMultiplier)
	v.SetDefault(KeyConcurrency, DefaultConcurrency)
	v.SetDefault(KeyQPS, DefaultQPS)
	v.SetDefault(KeyHistoryPath, "")
	v.SetDefault(KeyAllowEnv, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads cfgFile, or searches $HOME and the working directory for
// .boardtrans.yaml when cfgFile is empty. A missing default file is not an
// error. It returns the path of the file used, if any.
func ReadFile(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// BindFlags binds the known flags present in fs. Flags that are not set on
// the command line fall back to env and file values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Decode builds and validates a Config from v.
func Decode(v *viper.Viper) (Config, error) {
	cfg := Config{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString(KeyProvider))),
		Model:    strings.TrimSpace(v.GetString(KeyModel)),
		Retry: translation.RetryPolicy{
			MaxAttempts:       v.GetInt(KeyMaxAttempts),
			InitialDelay:      v.GetDuration(KeyInitialDelay),
			BackoffMultiplier: v.GetFloat64(KeyBackoffMultiplier),
		},
		Concurrency: v.GetInt(KeyConcurrency),
		QPS:         v.GetFloat64(KeyQPS),
		HistoryPath: strings.TrimSpace(v.GetString(KeyHistoryPath)),
		AllowEnv:    v.GetBool(KeyAllowEnv),
	}

	if !slices.Contains(providers.Names(), cfg.Provider) {
		return Config{}, fmt.Errorf("%s: unknown provider %q (expected one of: %s)", KeyProvider, cfg.Provider, strings.Join(providers.Names(), ", "))
	}
	if err := cfg.Retry.Validate(); err != nil {
		return Config{}, fmt.Errorf("retry: %w", err)
	}
	if cfg.Concurrency < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1, got %d", KeyConcurrency, cfg.Concurrency)
	}
	if cfg.QPS < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %v", KeyQPS, cfg.QPS)
	}
	if cfg.HistoryPath == "" {
		path, err := DefaultHistoryPath()
		if err != nil {
			return Config{}, err
		}
		cfg.HistoryPath = path
	}
	return cfg, nil
}

// Load is ReadFile followed by BindFlags and Decode.
func Load(cfgFile string, fs *pflag.FlagSet) (Config, string, error) {
	v := New()
	used, err := ReadFile(v, cfgFile)
	if err != nil {
		return Config{}, "", err
	}
	if fs != nil {
		if err := BindFlags(v, fs); err != nil {
			return Config{}, "", err
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, used, nil
}

// DefaultHistoryPath is <user config dir>/boardtrans/history.jsonl.
func DefaultHistoryPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "boardtrans", "history.jsonl"), nil
}

// RegisterRetryFlags adds the retry policy flags with their defaults.
func RegisterRetryFlags(fs *pflag.FlagSet) {
	def := translation.DefaultRetryPolicy
	fs.Int("max-attempts", def.MaxAttempts, "Maximum provider attempts per request (>= 1)")
	fs.Duration("initial-delay", def.InitialDelay, "Delay before the second attempt")
	fs.Float64("backoff-multiplier", def.BackoffMultiplier, "Factor applied to the delay after each attempt (> 1)")
}

// RegisterBatchFlags adds the batch admission flags with their defaults.
func RegisterBatchFlags(fs *pflag.FlagSet) {
	fs.Int("concurrency", DefaultConcurrency, "Documents translated in parallel")
	fs.Float64("qps", DefaultQPS, "Maximum requests started per second (0 = unlimited)")
}

// DescribeRetry renders the delay schedule of p, e.g. "4 attempts, waits 2s, 4s, 8s".
func DescribeRetry(p translation.RetryPolicy) string {
	if p.MaxAttempts <= 1 {
		return "1 attempt, no retries"
	}
	waits := make([]string, 0, p.MaxAttempts-1)
	for k := 2; k <= p.MaxAttempts; k++ {
		waits = append(waits, p.Delay(k).Round(time.Millisecond).String())
	}
	return fmt.Sprintf("%d attempts, waits %s", p.MaxAttempts, strings.Join(waits, ", "))
}
