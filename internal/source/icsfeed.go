package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"inkdash/internal/config"
	"inkdash/internal/ics"
	appLog "inkdash/internal/log"
	"inkdash/internal/model"
)

const defaultHorizonDays = 30

// ICS reads one or more ICS subscription feeds and expands recurrences
// locally over the next horizon days.
type ICS struct {
	feeds   []ics.Feed
	fetcher *ics.Fetcher
	horizon int
	now     func() time.Time
}

// NewICS builds an ICS source. A nil client uses the fetcher default.
func NewICS(feeds []config.ICSConfig, cacheDir string, horizonDays int, client *http.Client) *ICS {
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	out := make([]ics.Feed, 0, len(feeds))
	for _, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			id = f.Name
		}
		if id == "" {
			id = ics.RedactURL(f.URL)
		}
		out = append(out, ics.Feed{ID: id, URL: f.URL})
	}
	return &ICS{
		feeds:   out,
		fetcher: ics.NewFetcher(cacheDir, client),
		horizon: horizonDays,
		now:     time.Now,
	}
}

// FetchUpcoming implements Source. It fails only when no feed at all could
// be read; partial feed failures are logged.
func (s *ICS) FetchUpcoming(ctx context.Context, max int, loc *time.Location) ([]model.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(s.feeds) == 0 {
		return nil, unavailable(errors.New("no ICS feeds configured"))
	}

	results, errs := s.fetcher.FetchAll(ctx, s.feeds)
	if len(results) == 0 {
		return nil, unavailable(errors.Join(errs...))
	}

	var parsed []ics.ParsedEvent
	var parseErrs []error
	readable := 0
	for _, res := range results {
		events, err := ics.ParseICS(res.Feed, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", res.Feed.ID)
			parseErrs = append(parseErrs, err)
			continue
		}
		readable++
		parsed = append(parsed, events...)
	}
	// Nothing readable is a failed fetch, not an empty calendar.
	if readable == 0 {
		return nil, unavailable(errors.Join(append(errs, parseErrs...)...))
	}

	return expandUpcoming(parsed, s.now().In(loc), s.horizon, max, loc)
}

// expandUpcoming is shared by the ICS and CalDAV sources.
func expandUpcoming(parsed []ics.ParsedEvent, now time.Time, horizonDays, max int, loc *time.Location) ([]model.Event, error) {
	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      now,
		RangeEnd:        now.AddDate(0, 0, horizonDays),
	})
	if err != nil {
		return nil, fmt.Errorf("source: expand: %w", err)
	}
	events := ics.Upcoming(res.Occurrences, now, max)
	appLog.Info("calendar expanded", "parsed", len(parsed), "occurrences", len(res.Occurrences), "events", len(events))
	return events, nil
}
