package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"inkdash/internal/model"
)

func icsBody(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//inkdash//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return loc
}

var sampleFeed = Feed{ID: "family", URL: "https://example.com/family.ics"}

func TestParseICS(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:coffee",
		"SUMMARY:Coffee with Rachel",
		"DTSTART:20241211T100000Z",
		"DTEND:20241211T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:holiday",
		"SUMMARY:Bank holiday",
		"DTSTART;VALUE=DATE:20241226",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:broken",
		"SUMMARY:No start at all",
		"END:VEVENT",
	)

	events, err := ParseICS(sampleFeed, body)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (record without DTSTART skipped)", len(events))
	}

	coffee := events[0]
	if coffee.UID != "coffee" || coffee.AllDay {
		t.Errorf("coffee = %+v", coffee)
	}
	want := time.Date(2024, 12, 11, 10, 0, 0, 0, time.UTC)
	if !coffee.Start.Equal(want) {
		t.Errorf("coffee start = %v, want %v", coffee.Start, want)
	}

	holiday := events[1]
	if !holiday.AllDay {
		t.Errorf("holiday not detected as all-day")
	}
	if holiday.Start.Year() != 2024 || holiday.Start.Month() != time.December || holiday.Start.Day() != 26 {
		t.Errorf("holiday start = %v", holiday.Start)
	}
	if got := holiday.End.Sub(holiday.Start); got != 24*time.Hour {
		t.Errorf("holiday duration = %v, want 24h", got)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(sampleFeed, nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestParseICSRejectsNonCalendarBody(t *testing.T) {
	for _, body := range []string{"<html>Please log in</html>", "{\"error\":\"forbidden\"}"} {
		if _, err := ParseICS(sampleFeed, []byte(body)); err == nil {
			t.Errorf("ParseICS(%q) succeeded", body)
		}
	}
}

func TestParseVEventMissingStart(t *testing.T) {
	body := icsBody("BEGIN:VEVENT", "UID:x", "SUMMARY:x", "END:VEVENT")
	events, err := ParseICS(sampleFeed, body)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestExpandRecurringWithExdateAndOverride(t *testing.T) {
	dublin := mustLoc(t, "Europe/Dublin")
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:swim",
		"SUMMARY:Swimming",
		"DTSTART:20241202T180000Z",
		"DTEND:20241202T190000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20241209T180000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:swim",
		"SUMMARY:Swimming (late)",
		"RECURRENCE-ID:20241216T180000Z",
		"DTSTART:20241216T200000Z",
		"DTEND:20241216T210000Z",
		"END:VEVENT",
	)
	events, err := ParseICS(sampleFeed, body)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}

	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: dublin,
		RangeStart:      time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences: %v", err)
	}

	var got []string
	for _, o := range res.Occurrences {
		if o.Start.Location() != dublin {
			t.Errorf("occurrence not in display zone: %v", o.Start.Location())
		}
		got = append(got, o.Start.Format("02 15:04")+" "+o.Title)
	}
	want := []string{
		"02 18:00 Swimming",
		"16 20:00 Swimming (late)",
		"23 18:00 Swimming",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("occurrences = %v, want %v", got, want)
	}
}

func TestExpandCap(t *testing.T) {
	events := []ParsedEvent{{
		Feed:     sampleFeed,
		UID:      "daily",
		Summary:  "Pills",
		Start:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 1, 8, 5, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}}
	res, err := ExpandOccurrences(events, ExpandConfig{
		RangeStart:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 5 {
		t.Errorf("got %d occurrences, want 5", len(res.Occurrences))
	}
	if len(res.TruncatedEvents) != 1 || res.TruncatedEvents[0] != "daily" {
		t.Errorf("truncated = %v", res.TruncatedEvents)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestExpandAllDayAnchorsToDisplayMidnight(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")
	events := []ParsedEvent{{
		UID:     "holiday",
		Summary: "Holiday",
		AllDay:  true,
		Start:   time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 12, 26, 0, 0, 0, 0, time.UTC),
	}}
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: seoul,
		RangeStart:      time.Date(2024, 12, 20, 0, 0, 0, 0, seoul),
		RangeEnd:        time.Date(2024, 12, 31, 0, 0, 0, 0, seoul),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences", len(res.Occurrences))
	}
	want := time.Date(2024, 12, 25, 0, 0, 0, 0, seoul)
	if got := res.Occurrences[0].Start; !got.Equal(want) {
		t.Errorf("start = %v, want %v", got, want)
	}
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2024, 12, 11, 9, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return time.Date(2024, 12, 11, h, 0, 0, 0, time.UTC) }
	occs := []model.Occurrence{
		{Title: "Movie Night", Start: at(19), End: at(21)},
		{Title: "Breakfast", Start: at(7), End: at(8)},
		{Title: "", Start: at(12), End: at(13)},
		{Title: "Standup", Start: at(8), End: at(10)},
		{Title: "Coffee", Start: at(10), End: at(11)},
	}

	got := Upcoming(occs, now, 3)
	var titles []string
	for _, e := range got {
		titles = append(titles, e.Title)
	}
	want := []string{"Standup", "Coffee", model.DefaultTitle}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("Upcoming = %v, want %v", titles, want)
	}

	if got := Upcoming(nil, now, 5); got == nil || len(got) != 0 {
		t.Errorf("Upcoming(nil) = %#v, want empty non-nil", got)
	}
}

func TestFetcherCachesAndFallsBack(t *testing.T) {
	body := icsBody("BEGIN:VEVENT", "UID:a", "DTSTART:20241211T100000Z", "END:VEVENT")
	var failing atomic.Bool
	var conditional atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	feed := Feed{ID: "t", URL: srv.URL + "/cal.ics?token=secret"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, feed)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || string(first.Body) != string(body) {
		t.Errorf("first fetch = %+v", first)
	}

	second, err := f.FetchOne(ctx, feed)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || conditional.Load() != 1 {
		t.Errorf("expected conditional 304 served from cache, got FromCache=%v conditional=%d", second.FromCache, conditional.Load())
	}

	failing.Store(true)
	third, err := f.FetchOne(ctx, feed)
	if err != nil {
		t.Fatalf("fallback fetch: %v", err)
	}
	if !third.FromCache || string(third.Body) != string(body) {
		t.Errorf("fallback = %+v", third)
	}
}

func TestFetchAllReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	results, errs := f.FetchAll(context.Background(), []Feed{{ID: "missing", URL: srv.URL + "/nope.ics"}, {ID: "empty"}})
	if len(results) != 0 {
		t.Errorf("results = %v", results)
	}
	if len(errs) != 2 {
		t.Errorf("errs = %v, want 2", errs)
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"https://calendar.example.com/private/abc.ics?token=1": "https://calendar.example.com/...(redacted)",
		"not a url": "ics://...(redacted)",
	}
	for in, want := range tests {
		if got := RedactURL(in); got != want {
			t.Errorf("RedactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
