package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	appLog "inkdash/internal/log"
)

// Source kinds understood by internal/source.
const (
	SourceGoogle = "google"
	SourceICS    = "ics"
	SourceCalDAV = "caldav"
)

const (
	defaultTimezone   = "Europe/Dublin"
	defaultTitle      = "Dashboard"
	defaultOutput     = "dashboard.png"
	defaultMaxEvents  = 10
	defaultWidth      = 1072
	defaultHeight     = 1448
	defaultGreyLevels = 16
	defaultSchedule   = "*/15 * * * *"
	defaultListen     = "127.0.0.1:8080"
	defaultCalendarID = "primary"
	defaultCacheDir   = "./var/ics-cache"
	defaultHorizon    = 30
	defaultRegular    = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	defaultBold       = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" toml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" toml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" toml:"name" json:"name"`
}

// CalDAVConfig points at a single CalDAV calendar collection.
type CalDAVConfig struct {
	URL          string `yaml:"url" toml:"url" json:"url"`
	Username     string `yaml:"username" toml:"username" json:"username"`
	Password     string `yaml:"password" toml:"password" json:"password"`
	CalendarPath string `yaml:"calendar_path" toml:"calendar_path" json:"calendar_path"`
}

// SourceConfig selects and configures the calendar backend.
type SourceConfig struct {
	// Kind is one of "google", "ics", "caldav".
	Kind string `yaml:"kind" toml:"kind" json:"kind"`

	// CalendarID and CredentialsFile are used by the google backend. An
	// empty CredentialsFile means Application Default Credentials.
	CalendarID      string `yaml:"calendar_id" toml:"calendar_id" json:"calendar_id"`
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file" json:"credentials_file"`
	// Endpoint overrides the Google API base URL (tests, proxies).
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty"`

	ICS    []ICSConfig   `yaml:"ics" toml:"ics" json:"ics"`
	CalDAV *CalDAVConfig `yaml:"caldav,omitempty" toml:"caldav,omitempty" json:"caldav,omitempty"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`
	// HorizonDays bounds recurrence expansion for ics/caldav.
	HorizonDays int `yaml:"horizon_days" toml:"horizon_days" json:"horizon_days"`
}

// CanvasConfig controls the output raster.
type CanvasConfig struct {
	Width  int `yaml:"width" toml:"width" json:"width"`
	Height int `yaml:"height" toml:"height" json:"height"`
	// Rotate is applied after layout: 0, 90, 180 or 270 degrees
	// counter-clockwise.
	Rotate int `yaml:"rotate" toml:"rotate" json:"rotate"`
	// GreyLevels quantizes the output; 0 or 256 keeps full 8-bit grey.
	GreyLevels int `yaml:"grey_levels" toml:"grey_levels" json:"grey_levels"`
}

// FontConfig holds TTF/OTF paths. Missing files fall back to a built-in face.
type FontConfig struct {
	Regular string `yaml:"regular" toml:"regular" json:"regular"`
	Bold    string `yaml:"bold" toml:"bold" json:"bold"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web server.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Title is the header line drawn above the clock.
	Title string `yaml:"title" toml:"title" json:"title"`

	// Timezone is the IANA timezone used as display zone (e.g. "Europe/Dublin").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// Output is the image file written on every run.
	Output string `yaml:"output" toml:"output" json:"output"`

	MaxEvents int `yaml:"max_events" toml:"max_events" json:"max_events"`

	Canvas CanvasConfig `yaml:"canvas" toml:"canvas" json:"canvas"`
	Fonts  FontConfig   `yaml:"fonts" toml:"fonts" json:"fonts"`
	Source SourceConfig `yaml:"source" toml:"source" json:"source"`

	// Schedule is a cron expression used by `inkdash serve`.
	Schedule string `yaml:"schedule" toml:"schedule" json:"schedule"`

	// Listen is the HTTP listen address used by `inkdash serve`.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Title:     defaultTitle,
		Timezone:  defaultTimezone,
		Output:    defaultOutput,
		MaxEvents: defaultMaxEvents,
		Canvas: CanvasConfig{
			Width:      defaultWidth,
			Height:     defaultHeight,
			GreyLevels: defaultGreyLevels,
		},
		Fonts: FontConfig{
			Regular: defaultRegular,
			Bold:    defaultBold,
		},
		Source: SourceConfig{
			Kind:        SourceGoogle,
			CalendarID:  defaultCalendarID,
			ICS:         []ICSConfig{},
			CacheDir:    defaultCacheDir,
			HorizonDays: defaultHorizon,
		},
		Schedule: defaultSchedule,
		Listen:   defaultListen,
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = defaultMaxEvents
	}
	if c.Canvas.Width <= 0 {
		c.Canvas.Width = defaultWidth
	}
	if c.Canvas.Height <= 0 {
		c.Canvas.Height = defaultHeight
	}
	if c.Canvas.GreyLevels < 0 {
		c.Canvas.GreyLevels = 0
	}
	if c.Fonts.Regular == "" {
		c.Fonts.Regular = defaultRegular
	}
	if c.Fonts.Bold == "" {
		c.Fonts.Bold = defaultBold
	}

	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case SourceGoogle, SourceICS, SourceCalDAV:
		// ok
	default:
		c.Source.Kind = SourceGoogle
	}
	if c.Source.CalendarID == "" {
		c.Source.CalendarID = defaultCalendarID
	}
	if c.Source.ICS == nil {
		c.Source.ICS = []ICSConfig{}
	}
	if c.Source.CacheDir == "" {
		c.Source.CacheDir = defaultCacheDir
	}
	if c.Source.HorizonDays <= 0 {
		c.Source.HorizonDays = defaultHorizon
	}

	if c.Schedule == "" {
		c.Schedule = defaultSchedule
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports values Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Canvas.Rotate {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("config: canvas.rotate must be 0, 90, 180 or 270, got %d", c.Canvas.Rotate)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	switch c.Source.Kind {
	case SourceICS:
		if len(c.Source.ICS) == 0 {
			return errors.New("config: source.kind is ics but no source.ics entries are set")
		}
	case SourceCalDAV:
		if c.Source.CalDAV == nil || c.Source.CalDAV.URL == "" {
			return errors.New("config: source.kind is caldav but source.caldav.url is empty")
		}
	}
	return nil
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", c.Timezone)
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML or TOML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode it (format chosen by extension)
//   - normalize defaults
//   - Environment overrides are applied last in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				applyEnvOverrides(cfg)
				return cfg, err
			}
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()
	applyEnvOverrides(cfg)

	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func decode(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func encode(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(cfg)
}

// applyEnvOverrides lets deployments supply calendar identity and
// credentials without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INKDASH_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("INKDASH_CALENDAR_ID"); v != "" {
		cfg.Source.CalendarID = v
	}
	if v := os.Getenv("INKDASH_CREDENTIALS_FILE"); v != "" {
		cfg.Source.CredentialsFile = v
	} else if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.Source.CredentialsFile == "" {
		cfg.Source.CredentialsFile = v
	}
	if v := os.Getenv("INKDASH_OUTPUT"); v != "" {
		cfg.Output = v
	}
	setIntFromEnv("INKDASH_MAX_EVENTS", &cfg.MaxEvents)
	setIntFromEnv("INKDASH_CANVAS_WIDTH", &cfg.Canvas.Width)
	setIntFromEnv("INKDASH_CANVAS_HEIGHT", &cfg.Canvas.Height)
}

func setIntFromEnv(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		appLog.Warn("ignoring invalid integer environment override", "key", key, "value", v)
		return
	}
	*dst = n
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML or TOML depending on the extension.
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".inkdash-config-*.tmp")
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
