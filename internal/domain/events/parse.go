package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoEventPayload is returned when a response contains no JSON structure at all.
var ErrNoEventPayload = errors.New("response contains no event payload")

// ParseDefaults fills fields the generative source tends to omit.
type ParseDefaults struct {
	Date     string
	Category Category
	Source   string
}

// ParseReport summarizes a parse run.
type ParseReport struct {
	Parsed  int
	Skipped int
}

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	clockPattern   = regexp.MustCompile(`(\d{1,2})\s*[:.h]\s*(\d{2})`)
	hourPattern    = regexp.MustCompile(`^(\d{1,2})\s*(?:h|uhr)?$`)
	meridiemSuffix = regexp.MustCompile(`\s*([ap])\.?m\.?$`)
	germanDate     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// ParseEventsFromResponse converts the free-form text returned by the
// generative source into events. It accepts a JSON array, an object holding
// an "events" array, fenced code blocks or JSON lines. Records that fail to
// decode, lack a title or carry an unusable date are skipped; the rest are
// kept.
func ParseEventsFromResponse(raw string, defaults ParseDefaults) ([]Event, ParseReport, error) {
	records, err := extractRecords(raw)
	if err != nil {
		return []Event{}, ParseReport{}, err
	}
	out := make([]Event, 0, len(records))
	var report ParseReport
	for _, rec := range records {
		ev, ok := decodeRecord(rec, defaults)
		if !ok {
			report.Skipped++
			continue
		}
		out = append(out, ev)
		report.Parsed++
	}
	return out, report, nil
}

func extractRecords(raw string) ([]json.RawMessage, error) {
	body := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(body); len(m) == 2 {
		body = strings.TrimSpace(m[1])
	}
	if body == "" {
		return nil, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(body), &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err == nil && wrapped.Events != nil {
		return wrapped.Events, nil
	}
	if start, end := strings.Index(body, "["), strings.LastIndex(body, "]"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &arr); err == nil {
			return arr, nil
		}
	}

	var lines []json.RawMessage
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ",")
		if strings.HasPrefix(line, "{") {
			lines = append(lines, json.RawMessage(line))
		}
	}
	if len(lines) > 0 {
		return lines, nil
	}
	return nil, ErrNoEventPayload
}

func decodeRecord(rec json.RawMessage, defaults ParseDefaults) (Event, bool) {
	var fields map[string]any
	if err := json.Unmarshal(rec, &fields); err != nil {
		return Event{}, false
	}
	title := pick(fields, "title", "name", "eventName")
	if title == "" {
		return Event{}, false
	}

	rawDate := pick(fields, "date", "startDate", "start_date", "startDateTime")
	date, clockFromDate := normalizeDate(rawDate)
	if rawDate != "" && date == "" {
		return Event{}, false
	}
	if date == "" {
		date = defaults.Date
	}
	if date == "" {
		return Event{}, false
	}
	if defaults.Date != "" && date != defaults.Date {
		return Event{}, false
	}

	clock := NormalizeTime(pick(fields, "time", "startTime", "start_time"))
	if clock == AllDay && clockFromDate != "" {
		clock = clockFromDate
	}
	end := NormalizeTime(pick(fields, "endTime", "end_time", "end"))
	if end == AllDay {
		end = ""
	}

	source := pick(fields, "source")
	if source == "" {
		source = defaults.Source
	}
	if source == "" {
		source = SourceAI
	}

	return Event{
		Title:       title,
		Category:    Category(pick(fields, "category", "genre", "type")),
		Date:        date,
		Time:        clock,
		EndTime:     end,
		Venue:       pick(fields, "venue", "location", "place"),
		Address:     pick(fields, "address"),
		Price:       pick(fields, "price", "priceInfo", "price_info"),
		Website:     pick(fields, "website", "url", "link", "ticketUrl"),
		ImageURL:    pick(fields, "imageUrl", "image", "image_url"),
		Description: pick(fields, "description", "summary"),
		Source:      source,
		Cancelled:   truthy(fields["cancelled"]),
	}, true
}

func pick(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

// NormalizeTime converts assorted clock notations ("20:00", "20.00 Uhr",
// "8:30 pm", "21h") to HH:MM. Anything else is treated as all-day.
func NormalizeTime(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return AllDay
	}
	pm, am := false, false
	if m := meridiemSuffix.FindStringSubmatch(v); len(m) == 2 {
		pm, am = m[1] == "p", m[1] == "a"
		v = strings.TrimSpace(meridiemSuffix.ReplaceAllString(v, ""))
	}
	hh, mm := -1, 0
	if m := clockPattern.FindStringSubmatch(v); len(m) == 3 {
		hh, _ = strconv.Atoi(m[1])
		mm, _ = strconv.Atoi(m[2])
	} else if m := hourPattern.FindStringSubmatch(v); len(m) == 2 {
		hh, _ = strconv.Atoi(m[1])
	}
	if hh < 0 {
		return AllDay
	}
	if pm && hh < 12 {
		hh += 12
	}
	if am && hh == 12 {
		hh = 0
	}
	if hh > 23 || mm > 59 {
		return AllDay
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

// normalizeDate returns YYYY-MM-DD plus the clock part when the value was a
// full timestamp.
func normalizeDate(value string) (string, string) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", ""
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t.Format(DateLayout), ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout), t.Format("15:04")
		}
	}
	if m := germanDate.FindStringSubmatch(v); len(m) == 4 {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() == day && int(t.Month()) == month {
			return t.Format(DateLayout), ""
		}
	}
	return "", ""
}
