package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "inkdash/internal/log"
	"inkdash/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences are converted.
	// If nil, time.UTC is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences kept. An occurrence is kept
	// when it overlaps the window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway RRULEs. Zero means the default.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []model.Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete occurrences inside the
// configured window. It handles single events, RRULE recurrence, EXDATE
// exclusions, RECURRENCE-ID overrides and all-day semantics. Results are in
// cfg.DisplayLocation and sorted by start.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	var uids []string
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	occurrences := make([]model.Occurrence, 0)
	for _, uid := range uids {
		truncated := false
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, overridesByUID[uid], cfg)
			truncated = truncated || hitCap
			occurrences = append(occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("ics expand truncated occurrences", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
	result.Occurrences = occurrences
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	occ := makeOccurrence(ev, ev.Start, ev.End, cfg.DisplayLocation)
	if !overlaps(occ.Start, occ.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{occ}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so an instance that is
	// already in progress at RangeStart is still produced.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	times := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(times))
	for _, start := range times {
		base := ev
		end := start.Add(dur)
		if o, ok := findOverride(overrides, start); ok {
			base, start, end = o, o.Start, o.End
		}
		occ := makeOccurrence(base, start, end, cfg.DisplayLocation)
		if !overlaps(occ.Start, occ.End, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, occ)
	}
	return out, hitCap
}

// findOverride finds an override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeOccurrence converts an event instance into displayLoc. All-day
// instances are re-anchored to midnight of their calendar date in displayLoc.
func makeOccurrence(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	occ := model.Occurrence{
		SourceID: ev.Feed.ID,
		UID:      ev.UID,
		Title:    ev.Summary,
		Location: ev.Location,
		AllDay:   ev.AllDay,
	}
	if ev.AllDay {
		days := int(end.Sub(start).Hours() / 24)
		if days < 1 {
			days = 1
		}
		occ.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		occ.End = occ.Start.AddDate(0, 0, days)
		return occ
	}
	occ.Start = start.In(displayLoc)
	occ.End = end.In(displayLoc)
	return occ
}

// overlaps treats zero-length events as a point that must fall in [bStart, bEnd].
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && !aStart.After(bEnd)
	}
	return aEnd.After(bStart) && !aStart.After(bEnd)
}

// Upcoming keeps occurrences that have not ended by now, in ascending start
// order, capped at max.
func Upcoming(occs []model.Occurrence, now time.Time, max int) []model.Event {
	sorted := make([]model.Occurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	events := make([]model.Event, 0)
	for _, o := range sorted {
		if max > 0 && len(events) >= max {
			break
		}
		if o.End.After(now) || !o.Start.Before(now) {
			events = append(events, o.Event())
		}
	}
	return events
}
