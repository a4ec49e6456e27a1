package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/grindstone/internal/store"
	"github.com/sadopc/grindstone/internal/timer"
)

const (
	EnvPrefix = "GRINDSTONE"
	appDir    = "grindstone"
)

// Keys shared by the config file, the environment and the settings table.
const (
	KeyWork           = "timer.work"
	KeyShortBreak     = "timer.short_break"
	KeyLongBreak      = "timer.long_break"
	KeyLongBreakEvery = "timer.long_break_every"
	KeyAutoAdvance    = "timer.auto_advance"
	KeyWriteTimeout   = "timer.write_timeout"
	KeyStorePath      = "store.path"
	KeySeedCategories = "store.seed_categories"
	KeyWeekStart      = "stats.week_start"
	KeyTimezone       = "stats.timezone"
	KeyLogLevel       = "log.level"
	KeyLogFile        = "log.file"
)

// Keys lists every key in display order.
var Keys = []string{
	KeyWork, KeyShortBreak, KeyLongBreak, KeyLongBreakEvery, KeyAutoAdvance, KeyWriteTimeout,
	KeyStorePath, KeySeedCategories, KeyWeekStart, KeyTimezone, KeyLogLevel, KeyLogFile,
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

type Config struct {
	Timer TimerConfig `mapstructure:"timer" yaml:"timer"`
	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Stats StatsConfig `mapstructure:"stats" yaml:"stats"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

type TimerConfig struct {
	Work           time.Duration `mapstructure:"work"`
	ShortBreak     time.Duration `mapstructure:"short_break"`
	LongBreak      time.Duration `mapstructure:"long_break"`
	LongBreakEvery int           `mapstructure:"long_break_every"`
	AutoAdvance    bool          `mapstructure:"auto_advance"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type StoreConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	SeedCategories bool   `mapstructure:"seed_categories" yaml:"seed_categories"`
}

type StatsConfig struct {
	WeekStart string `mapstructure:"week_start" yaml:"week_start"`
	// Timezone is an IANA name; empty means the system zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Dir returns ~/.config/grindstone (or the platform equivalent).
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// DefaultPath returns the config file used when --config is not given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Default() *Config {
	tc := timer.DefaultConfig()
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = filepath.Join(dir, "grindstone.db")
	}
	return &Config{
		Timer: TimerConfig{
			Work:           tc.Work,
			ShortBreak:     tc.ShortBreak,
			LongBreak:      tc.LongBreak,
			LongBreakEvery: tc.LongBreakEvery,
			AutoAdvance:    tc.AutoAdvance,
			WriteTimeout:   tc.WriteTimeout,
		},
		Store: StoreConfig{
			Path:           dbPath,
			SeedCategories: true,
		},
		Stats: StatsConfig{WeekStart: "monday"},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "grindstone.log"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyWork, d.Timer.Work)
	v.SetDefault(KeyShortBreak, d.Timer.ShortBreak)
	v.SetDefault(KeyLongBreak, d.Timer.LongBreak)
	v.SetDefault(KeyLongBreakEvery, d.Timer.LongBreakEvery)
	v.SetDefault(KeyAutoAdvance, d.Timer.AutoAdvance)
	v.SetDefault(KeyWriteTimeout, d.Timer.WriteTimeout)
	v.SetDefault(KeyStorePath, d.Store.Path)
	v.SetDefault(KeySeedCategories, d.Store.SeedCategories)
	v.SetDefault(KeyWeekStart, d.Stats.WeekStart)
	v.SetDefault(KeyTimezone, d.Stats.Timezone)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFile, d.Log.File)
}

// Load layers defaults, the YAML file and GRINDSTONE_* environment
// variables. An empty path reads the default file if it exists; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.TimerConfig().Validate(); err != nil {
		return fmt.Errorf("timer config: %w", err)
	}
	if _, err := c.WeekStart(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%s is empty: %w", KeyStorePath, store.ErrInvalidInput)
	}
	return nil
}

// TimerConfig converts to the engine's immutable configuration.
func (c *Config) TimerConfig() timer.Config {
	return timer.Config{
		Work:           c.Timer.Work,
		ShortBreak:     c.Timer.ShortBreak,
		LongBreak:      c.Timer.LongBreak,
		LongBreakEvery: c.Timer.LongBreakEvery,
		AutoAdvance:    c.Timer.AutoAdvance,
		WriteTimeout:   c.Timer.WriteTimeout,
	}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func (c *Config) WeekStart() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(c.Stats.WeekStart))]
	if !ok {
		return 0, fmt.Errorf("%s %q: %w", KeyWeekStart, c.Stats.WeekStart, store.ErrInvalidInput)
	}
	return d, nil
}

func (c *Config) Location() (*time.Location, error) {
	if c.Stats.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w: %w", KeyTimezone, c.Stats.Timezone, store.ErrInvalidInput, err)
	}
	return loc, nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%s %q: %w", KeyLogLevel, c.Log.Level, store.ErrInvalidInput)
	}
	return level, nil
}

// ApplySettings overlays timer values saved from the UI. Unknown keys are
// ignored; a malformed value is an error and leaves c unchanged.
func (c *Config) ApplySettings(settings []store.Setting) error {
	next := *c
	for _, s := range settings {
		var err error
		switch s.Key {
		case KeyWork:
			next.Timer.Work, err = time.ParseDuration(s.Value)
		case KeyShortBreak:
			next.Timer.ShortBreak, err = time.ParseDuration(s.Value)
		case KeyLongBreak:
			next.Timer.LongBreak, err = time.ParseDuration(s.Value)
		case KeyLongBreakEvery:
			next.Timer.LongBreakEvery, err = strconv.Atoi(s.Value)
		case KeyAutoAdvance:
			next.Timer.AutoAdvance, err = strconv.ParseBool(s.Value)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("setting %s=%q: %w", s.Key, s.Value, store.ErrInvalidInput)
		}
	}
	if err := next.TimerConfig().Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	*c = next
	return nil
}

// TimerSettings is the inverse of ApplySettings.
func TimerSettings(tc timer.Config) []store.Setting {
	return []store.Setting{
		{Key: KeyWork, Value: tc.Work.String()},
		{Key: KeyShortBreak, Value: tc.ShortBreak.String()},
		{Key: KeyLongBreak, Value: tc.LongBreak.String()},
		{Key: KeyLongBreakEvery, Value: strconv.Itoa(tc.LongBreakEvery)},
		{Key: KeyAutoAdvance, Value: strconv.FormatBool(tc.AutoAdvance)},
	}
}

// fileConfig is the on-disk shape. Durations are written as strings.
type fileConfig struct {
	Timer struct {
		Work           string `yaml:"work"`
		ShortBreak     string `yaml:"short_break"`
		LongBreak      string `yaml:"long_break"`
		LongBreakEvery int    `yaml:"long_break_every"`
		AutoAdvance    bool   `yaml:"auto_advance"`
		WriteTimeout   string `yaml:"write_timeout"`
	} `yaml:"timer"`
	Store StoreConfig `yaml:"store"`
	Stats StatsConfig `yaml:"stats"`
	Log   LogConfig   `yaml:"log"`
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var f fileConfig
	f.Timer.Work = c.Timer.Work.String()
	f.Timer.ShortBreak = c.Timer.ShortBreak.String()
	f.Timer.LongBreak = c.Timer.LongBreak.String()
	f.Timer.LongBreakEvery = c.Timer.LongBreakEvery
	f.Timer.AutoAdvance = c.Timer.AutoAdvance
	f.Timer.WriteTimeout = c.Timer.WriteTimeout.String()
	f.Store = c.Store
	f.Stats = c.Stats
	f.Log = c.Log

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) (*Config, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}
	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
