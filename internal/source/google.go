package source

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "inkdash/internal/log"
	"inkdash/internal/model"
)

// Lister is the narrow slice of the Google Calendar API the source needs.
// The API itself expands recurring events and sorts by start.
type Lister interface {
	ListUpcoming(ctx context.Context, calendarID string, notBefore time.Time, max int) ([]*calendar.Event, error)
}

type serviceLister struct {
	svc *calendar.Service
}

func (l serviceLister) ListUpcoming(ctx context.Context, calendarID string, notBefore time.Time, max int) ([]*calendar.Event, error) {
	resp, err := l.svc.Events.List(calendarID).
		TimeMin(notBefore.Format(time.RFC3339)).
		MaxResults(int64(max)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Google reads upcoming events from a Google Calendar.
type Google struct {
	lister     Lister
	calendarID string
	now        func() time.Time
}

// NewGoogle connects to the Calendar API. An empty credentialsFile uses
// Application Default Credentials; a non-empty endpoint replaces the API
// base URL and disables authentication (local emulators and tests).
func NewGoogle(ctx context.Context, calendarID, credentialsFile, endpoint string) (*Google, error) {
	var opts []option.ClientOption
	switch {
	case endpoint != "":
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(calendar.CalendarReadonlyScope))

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, unavailable(fmt.Errorf("google calendar client: %w", err))
	}
	return NewGoogleWithLister(serviceLister{svc: svc}, calendarID), nil
}

// NewGoogleWithLister wraps an existing Lister.
func NewGoogleWithLister(l Lister, calendarID string) *Google {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Google{lister: l, calendarID: calendarID, now: time.Now}
}

// FetchUpcoming implements Source.
func (g *Google) FetchUpcoming(ctx context.Context, max int, loc *time.Location) ([]model.Event, error) {
	if max <= 0 {
		return []model.Event{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	now := g.now().In(loc)

	items, err := g.lister.ListUpcoming(ctx, g.calendarID, now, max)
	if err != nil {
		return nil, unavailable(fmt.Errorf("list events for %s: %w", g.calendarID, err))
	}

	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if item == nil || item.Status == "cancelled" {
			continue
		}
		rec := RawRecord{Title: item.Summary}
		if item.Start != nil {
			rec.DateTime = item.Start.DateTime
			rec.Date = item.Start.Date
		}
		records = append(records, rec)
	}

	events := normalizeRecords(records, loc)
	if len(events) > max {
		events = events[:max]
	}
	appLog.Info("google calendar fetched", "calendar", g.calendarID, "items", len(items), "events", len(events))
	return events, nil
}
