package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultSchedule    = "0 7 * * 1-5"
	DefaultProfileDB   = "/var/lib/daybrief/profile.db"
	DefaultCacheDir    = "/var/lib/daybrief/ics-cache"
	DefaultLogLevel    = "info"
	DefaultWrapWidth   = 70
	DefaultVoice       = "aura-asteria-en"
	DefaultSampleRate  = 24000
	DefaultAPIKeyEnv   = "DEEPGRAM_API_KEY"
	SpeechDeepgram     = "deepgram"
	SpeechNone         = "none"
	defaultFetchTimout = 15
)

// DefaultSkipKeywords drop events that are reminders rather than meetings.
var DefaultSkipKeywords = []string{"birthday", "holiday", "anniversary"}

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint (https://, webcal:// or file://).
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// SpeechConfig selects and tunes the speech sink.
type SpeechConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Provider is "deepgram" or "none".
	Provider   string `yaml:"provider" json:"provider"`
	Voice      string `yaml:"voice" json:"voice"`
	SampleRate int    `yaml:"sample_rate" json:"sample_rate"`
	// APIKeyEnv names the environment variable holding the API key; the key
	// itself is never written to the config file.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API (daemon mode only).
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that defines "today". Empty means the
	// system local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Schedule is a cron expression for daemon mode briefings.
	Schedule string `yaml:"schedule" json:"schedule"`

	// IncludeTomorrow adds tomorrow's events to the briefing.
	IncludeTomorrow bool `yaml:"include_tomorrow" json:"include_tomorrow"`

	// SkipKeywords drops events whose subject contains any of them
	// (case-insensitive).
	SkipKeywords []string `yaml:"skip_keywords" json:"skip_keywords"`

	// ICS is the list of subscribed calendar feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// FetchTimeoutSeconds bounds each feed request.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	ProfileDB string `yaml:"profile_db" json:"profile_db"`
	CacheDir  string `yaml:"cache_dir" json:"cache_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level"`

	// WrapWidth is the column width of the printed briefing.
	WrapWidth int `yaml:"wrap_width" json:"wrap_width"`

	Speech SpeechConfig `yaml:"speech" json:"speech"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              DefaultListen,
		Schedule:            DefaultSchedule,
		IncludeTomorrow:     true,
		SkipKeywords:        append([]string(nil), DefaultSkipKeywords...),
		ICS:                 []ICSConfig{},
		FetchTimeoutSeconds: defaultFetchTimout,
		ProfileDB:           DefaultProfileDB,
		CacheDir:            DefaultCacheDir,
		LogLevel:            DefaultLogLevel,
		WrapWidth:           DefaultWrapWidth,
		Speech: SpeechConfig{
			Enabled:    true,
			Provider:   SpeechDeepgram,
			Voice:      DefaultVoice,
			SampleRate: DefaultSampleRate,
			APIKeyEnv:  DefaultAPIKeyEnv,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly. Booleans keep their zero value.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.SkipKeywords == nil {
		c.SkipKeywords = append([]string(nil), DefaultSkipKeywords...)
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = defaultFetchTimout
	}
	if c.ProfileDB == "" {
		c.ProfileDB = DefaultProfileDB
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.WrapWidth <= 0 {
		c.WrapWidth = DefaultWrapWidth
	}

	switch strings.ToLower(c.Speech.Provider) {
	case SpeechDeepgram, SpeechNone:
		c.Speech.Provider = strings.ToLower(c.Speech.Provider)
	default:
		// Unknown or empty provider; deepgram is the only real backend.
		c.Speech.Provider = SpeechDeepgram
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = DefaultVoice
	}
	if c.Speech.SampleRate <= 0 {
		c.Speech.SampleRate = DefaultSampleRate
	}
	if c.Speech.APIKeyEnv == "" {
		c.Speech.APIKeyEnv = DefaultAPIKeyEnv
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FetchTimeout returns FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daybrief-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
