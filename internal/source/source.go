// Package source fetches upcoming calendar events and normalizes their start
// times into the display timezone.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inkdash/internal/config"
	appLog "inkdash/internal/log"
	"inkdash/internal/model"
)

var (
	ErrMalformedTimestamp = model.ErrMalformedTimestamp
	ErrMissingStart       = model.ErrMissingStart
	// ErrSourceUnavailable wraps any failure of the calendar backend itself.
	ErrSourceUnavailable = errors.New("calendar source unavailable")
)

// Source returns at most max upcoming events in ascending start order, with
// every start converted to loc.
type Source interface {
	FetchUpcoming(ctx context.Context, max int, loc *time.Location) ([]model.Event, error)
}

// RawRecord is an event as a string-shaped calendar API returns it. Exactly
// one of DateTime (timed) and Date (all-day) is normally set.
type RawRecord struct {
	Title    string
	DateTime string
	Date     string
}

// Layouts tried in order. Seconds may be omitted and the offset may be
// written without a colon; Go accepts fractional seconds after the seconds
// field even when a layout does not spell them out.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
)

// Normalize parses an ISO-8601 date-time or a bare YYYY-MM-DD date and
// returns the instant in loc. A trailing "Z" is read as "+00:00". Values
// without an offset, including bare dates (midnight), are read in loc.
func Normalize(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}

	if !strings.Contains(s, "T") {
		s += "T00:00:00"
	} else if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
}

// Event builds the display record, preferring DateTime over Date.
func (r RawRecord) Event(loc *time.Location) (model.Event, error) {
	raw := r.DateTime
	if raw == "" {
		raw = r.Date
	}
	if raw == "" {
		return model.Event{}, ErrMissingStart
	}
	start, err := Normalize(raw, loc)
	if err != nil {
		return model.Event{}, err
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = model.DefaultTitle
	}
	return model.Event{Title: title, Start: start}, nil
}

// normalizeRecords converts records in order, dropping the ones that fail.
func normalizeRecords(records []RawRecord, loc *time.Location) []model.Event {
	events := make([]model.Event, 0, len(records))
	for i, rec := range records {
		ev, err := rec.Event(loc)
		if err != nil {
			appLog.Debug("skipping calendar record", "index", i, "title", rec.Title, "reason", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}

// New builds the backend selected by cfg.Kind.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceGoogle, "":
		return NewGoogle(ctx, cfg.CalendarID, cfg.CredentialsFile, cfg.Endpoint)
	case config.SourceICS:
		return NewICS(cfg.ICS, cfg.CacheDir, cfg.HorizonDays, nil), nil
	case config.SourceCalDAV:
		if cfg.CalDAV == nil {
			return nil, errors.New("source: caldav config missing")
		}
		return NewCalDAV(*cfg.CalDAV, cfg.HorizonDays)
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// basicAuthTransport adds Basic Auth to outgoing requests.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
