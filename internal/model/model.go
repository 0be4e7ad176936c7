package model

import "time"

// DefaultTitle is shown for events that arrive without a summary.
const DefaultTitle = "(No title)"

// Event is the display-ready record consumed by the renderer.
// Start is always in the configured display timezone.
type Event struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
}

// Occurrence represents a single concrete instance of an ICS/CalDAV event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	Title    string
	Location string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// Event projects the occurrence onto the fixed-shape display record.
func (o Occurrence) Event() Event {
	title := o.Title
	if title == "" {
		title = DefaultTitle
	}
	return Event{Title: title, Start: o.Start}
}
