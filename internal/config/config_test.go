package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "inkdash.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas.Width != 1072 || cfg.Canvas.Height != 1448 {
		t.Errorf("canvas = %dx%d, want 1072x1448", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Timezone != "Europe/Dublin" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadYAMLNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkdash.yaml")
	body := `
timezone: America/New_York
max_events: 0
canvas:
  width: 1200
  height: 1600
source:
  kind: ICS
  ics:
    - url: https://example.com/cal.ics
      id: family
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.MaxEvents != 10 {
		t.Errorf("max_events = %d, want default 10", cfg.MaxEvents)
	}
	if cfg.Canvas.Width != 1200 || cfg.Canvas.Height != 1600 {
		t.Errorf("canvas = %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Source.Kind != SourceICS {
		t.Errorf("kind = %q, want ics", cfg.Source.Kind)
	}
	if len(cfg.Source.ICS) != 1 || cfg.Source.ICS[0].ID != "family" {
		t.Errorf("ics = %+v", cfg.Source.ICS)
	}
	if cfg.Fonts.Bold == "" || cfg.Schedule == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkdash.toml")
	body := `
title = "Bathroom Dashboard"
max_events = 4

[canvas]
width = 1200
height = 1600
rotate = 90

[source]
kind = "google"
calendar_id = "family@group.calendar.google.com"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "Bathroom Dashboard" || cfg.MaxEvents != 4 {
		t.Errorf("got title=%q max=%d", cfg.Title, cfg.MaxEvents)
	}
	if cfg.Canvas.Rotate != 90 {
		t.Errorf("rotate = %d", cfg.Canvas.Rotate)
	}
	if cfg.Source.CalendarID != "family@group.calendar.google.com" {
		t.Errorf("calendar_id = %q", cfg.Source.CalendarID)
	}
}

func TestSaveRoundTripTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkdash.toml")
	cfg := DefaultConfig()
	cfg.Title = "Kitchen"
	cfg.BasicAuth = &BasicAuthConfig{Username: "kindle", Password: "secret"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `title = "Kitchen"`) {
		t.Errorf("saved TOML does not look like TOML:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Title != "Kitchen" || got.BasicAuth == nil || got.BasicAuth.Username != "kindle" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INKDASH_TIMEZONE", "Asia/Seoul")
	t.Setenv("INKDASH_CALENDAR_ID", "work")
	t.Setenv("INKDASH_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("INKDASH_MAX_EVENTS", "3")
	t.Setenv("INKDASH_CANVAS_HEIGHT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "inkdash.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.Source.CalendarID != "work" || cfg.Source.CredentialsFile != "/secrets/sa.json" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.MaxEvents != 3 {
		t.Errorf("max_events = %d", cfg.MaxEvents)
	}
	if cfg.Canvas.Height != 1448 {
		t.Errorf("invalid override should be ignored, height = %d", cfg.Canvas.Height)
	}
}

func TestGoogleCredentialsEnvFallback(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/adc.json")

	cfg, err := Load(filepath.Join(t.TempDir(), "inkdash.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.CredentialsFile != "/adc.json" {
		t.Errorf("credentials_file = %q", cfg.Source.CredentialsFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad rotate", func(c *Config) { c.Canvas.Rotate = 45 }, "rotate"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"ics without feeds", func(c *Config) { c.Source.Kind = SourceICS }, "source.ics"},
		{"caldav without url", func(c *Config) { c.Source.Kind = SourceCalDAV }, "caldav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLocationFallback(t *testing.T) {
	c := DefaultConfig()
	c.Timezone = "Nowhere/Special"
	if loc := c.Location(); loc != nil && loc.String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}
