package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"inkdash/internal/config"
	"inkdash/internal/ics"
	appLog "inkdash/internal/log"
	"inkdash/internal/model"
)

// CalDAV reads a calendar collection over CalDAV. Objects are re-encoded and
// run through the same parse and expansion path as ICS feeds.
type CalDAV struct {
	client  *caldav.Client
	path    string
	feed    ics.Feed
	horizon int
	now     func() time.Time
}

// NewCalDAV connects to cfg.URL with basic auth when credentials are set.
func NewCalDAV(cfg config.CalDAVConfig, horizonDays int) (*CalDAV, error) {
	if cfg.URL == "" {
		return nil, errors.New("source: caldav url is empty")
	}
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.Username != "" {
		httpClient.Transport = &basicAuthTransport{username: cfg.Username, password: cfg.Password}
	}

	client, err := caldav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, unavailable(fmt.Errorf("connect to CalDAV: %w", err))
	}

	path := cfg.CalendarPath
	if path == "" {
		path = "/"
	}
	return &CalDAV{
		client:  client,
		path:    path,
		feed:    ics.Feed{ID: "caldav:" + path, URL: cfg.URL},
		horizon: horizonDays,
		now:     time.Now,
	}, nil
}

// FetchUpcoming implements Source.
func (c *CalDAV) FetchUpcoming(ctx context.Context, max int, loc *time.Location) ([]model.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	now := c.now().In(loc)
	end := now.AddDate(0, 0, c.horizon)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     goical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: goical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  goical.CompEvent,
				Start: now.UTC(),
				End:   end.UTC(),
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.path, query)
	if err != nil {
		return nil, unavailable(fmt.Errorf("query calendar %s: %w", c.path, err))
	}

	cals := make([]*goical.Calendar, 0, len(objects))
	for _, obj := range objects {
		cals = append(cals, obj.Data)
	}
	parsed := parseCalendars(c.feed, cals)
	return expandUpcoming(parsed, now, c.horizon, max, loc)
}

// parseCalendars encodes each CalDAV object back to iCalendar text and
// parses it. Objects that cannot be encoded or parsed are skipped.
func parseCalendars(feed ics.Feed, cals []*goical.Calendar) []ics.ParsedEvent {
	var parsed []ics.ParsedEvent
	for i, cal := range cals {
		if cal == nil {
			continue
		}
		var buf bytes.Buffer
		if err := goical.NewEncoder(&buf).Encode(cal); err != nil {
			appLog.Debug("caldav object skipped", "index", i, "reason", err)
			continue
		}
		events, err := ics.ParseICS(feed, buf.Bytes())
		if err != nil {
			appLog.Debug("caldav object skipped", "index", i, "reason", err)
			continue
		}
		parsed = append(parsed, events...)
	}
	return parsed
}
