package events

import (
	"strings"
	"time"
)

// AllDay marks events without a concrete start time.
const AllDay = "ganztags"

// DateLayout is the calendar-day format used across caches and requests.
const DateLayout = "2006-01-02"

// Source tags recognised for dedup precedence. Venue scrapers tag their rows
// "<venue>-scraper", so only the suffix is fixed.
const (
	SourceScraperSuffix = "-scraper"
	SourceAPI           = "api"
	SourceRSS           = "rss"
	SourceAI            = "ai"
)

// Event is the normalized representation every source is converted into.
type Event struct {
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	EndTime     string   `json:"endTime,omitempty"`
	Venue       string   `json:"venue"`
	Address     string   `json:"address,omitempty"`
	Price       string   `json:"price"`
	Website     string   `json:"website"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
	Cancelled   bool     `json:"cancelled,omitempty"`
}

// Start resolves the event start in loc. All-day or unparsable times start at
// midnight; an unparsable date reports ok=false.
func (e Event) Start(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	if hh, mm, ok := parseClock(e.Time); ok {
		return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), true
	}
	return day, true
}

// End resolves the end of the event: the explicit end time when present
// (rolling over midnight for club nights), otherwise the end of the day.
func (e Event) End(loc *time.Location) (time.Time, bool) {
	start, ok := e.Start(loc)
	if !ok {
		return time.Time{}, false
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if hh, mm, ok := parseClock(e.EndTime); ok {
		end := day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
		if !end.After(start) {
			end = end.Add(24 * time.Hour)
		}
		return end, true
	}
	return day.Add(24 * time.Hour), true
}

// IsAllDay reports whether the event carries no concrete start time.
func (e Event) IsAllDay() bool {
	_, _, ok := parseClock(e.Time)
	return !ok
}

// completeness counts populated optional fields; richer records win dedup ties.
func (e Event) completeness() int {
	n := 0
	for _, v := range []string{e.Time, e.EndTime, e.Venue, e.Address, e.Price, e.Website, e.ImageURL, e.Description, e.Subcategory} {
		if strings.TrimSpace(v) != "" && v != AllDay {
			n++
		}
	}
	return n
}

func parseClock(value string) (int, int, bool) {
	value = strings.TrimSpace(value)
	if len(value) != 5 || value[2] != ':' {
		return 0, 0, false
	}
	hh := int(value[0]-'0')*10 + int(value[1]-'0')
	mm := int(value[3]-'0')*10 + int(value[4]-'0')
	if value[0] < '0' || value[0] > '9' || value[1] < '0' || value[1] > '9' ||
		value[3] < '0' || value[3] > '9' || value[4] < '0' || value[4] > '9' {
		return 0, 0, false
	}
	if hh > 23 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}
