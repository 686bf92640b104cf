package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatText = "text"
	LogFormatJSON = "json"

	EnvOMDBAPIKey = "OMDB_API_KEY"
	EnvListen     = "MR_LISTEN"
	EnvQueueDir   = "MR_QUEUE_DIR"
	EnvMovieDir   = "MR_MOVIE_DIR"
	EnvShowDir    = "MR_SHOW_DIR"
	EnvLogLevel   = "MR_LOG_LEVEL"
	EnvLogFormat  = "MR_LOG_FORMAT"
	EnvLogFile    = "MR_LOG_FILE"
	EnvRedisURL   = "MR_REDIS_URL"

	defaultListen        = ":5000"
	defaultQueueDir      = "/media/queue/watch"
	defaultMovieDir      = "/media/movies"
	defaultShowDir       = "/media/shows"
	defaultOMDBURL       = "http://www.omdbapi.com/"
	defaultOMDBRate      = 5
	defaultOMDBTimeout   = 10 * time.Second
	defaultHintFileName  = "description.md"
	defaultExtrasDir     = "Extras"
	defaultLockFileName  = ".media-renamer.lock"
	defaultEventBuffer   = 64
	defaultWatchDebounce = time.Second
	defaultRedisChannel  = "media-renamer:events"
	defaultLogMaxSizeMB  = 50
	defaultLogMaxFiles   = 3
	defaultLogMaxAgeDays = 30
)

type LibraryConfig struct {
	QueueDir      string `yaml:"queue_dir"`
	MovieDir      string `yaml:"movie_dir"`
	ShowDir       string `yaml:"show_dir"`
	ExtrasDirName string `yaml:"extras_dir"`
	HintFileName  string `yaml:"hint_filename"`
	LockFileName  string `yaml:"lock_filename"`
}

type OMDBConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"-"`
	Rate    float64       `yaml:"rate"`
	Timeout time.Duration `yaml:"timeout"`
}

type EventsConfig struct {
	Buffer        int           `yaml:"buffer"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	RedisURL      string        `yaml:"redis_url"`
	RedisChannel  string        `yaml:"redis_channel"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxFiles   int    `yaml:"max_files"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Listen  string        `yaml:"listen"`
	EnvFile string        `yaml:"env_file"`
	Library LibraryConfig `yaml:"library"`
	OMDB    OMDBConfig    `yaml:"omdb"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
}

func (c *Config) SetDefaults() {
	c.Listen = defaultListen
	c.EnvFile = ".env"

	c.Library = LibraryConfig{
		QueueDir:      defaultQueueDir,
		MovieDir:      defaultMovieDir,
		ShowDir:       defaultShowDir,
		ExtrasDirName: defaultExtrasDir,
		HintFileName:  defaultHintFileName,
		LockFileName:  defaultLockFileName,
	}

	c.OMDB = OMDBConfig{
		URL:     defaultOMDBURL,
		Rate:    defaultOMDBRate,
		Timeout: defaultOMDBTimeout,
	}

	c.Events = EventsConfig{
		Buffer:        defaultEventBuffer,
		WatchDebounce: defaultWatchDebounce,
		RedisChannel:  defaultRedisChannel,
	}

	c.Log = LogConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatText,
		MaxSizeMB:  defaultLogMaxSizeMB,
		MaxFiles:   defaultLogMaxFiles,
		MaxAgeDays: defaultLogMaxAgeDays,
	}
}

// Load reads the yaml file at path (a missing file is not an error), then the
// dotenv file and finally the process environment, which wins.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot load env file %s: %w", cfg.EnvFile, err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	c.OMDB.APIKey = os.Getenv(EnvOMDBAPIKey)

	overrides := map[string]*string{
		EnvListen:    &c.Listen,
		EnvQueueDir:  &c.Library.QueueDir,
		EnvMovieDir:  &c.Library.MovieDir,
		EnvShowDir:   &c.Library.ShowDir,
		EnvLogLevel:  &c.Log.Level,
		EnvLogFormat: &c.Log.Format,
		EnvLogFile:   &c.Log.File,
		EnvRedisURL:  &c.Events.RedisURL,
	}

	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) Validate() error {
	if c.OMDB.APIKey == "" {
		return fmt.Errorf("%s environment variable is not set", EnvOMDBAPIKey)
	}

	if c.Library.QueueDir == "" || c.Library.MovieDir == "" || c.Library.ShowDir == "" {
		return fmt.Errorf("queue, movie and show directories must be set")
	}

	if c.Library.ExtrasDirName == "" {
		return fmt.Errorf("extras directory name must be set")
	}

	switch c.Log.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.Log.Level)
	}

	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}

	if c.OMDB.Rate <= 0 {
		return fmt.Errorf("omdb rate must be positive")
	}

	return nil
}

// Roots returns the two destination roots that must exist before any move.
func (c *Config) Roots() []string {
	return []string{c.Library.MovieDir, c.Library.ShowDir}
}
