package events

import (
	"sort"
	"strings"
)

// CategorizeEvents rewrites every event's category through Canonicalize.
// Events without a label take fallback (the category they were fetched
// for); unknown labels land in DefaultCategory. The input is not modified.
func CategorizeEvents(evs []Event, fallback Category) []Event {
	if len(evs) == 0 {
		return nil
	}
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		raw := strings.TrimSpace(string(ev.Category))
		if raw == "" && fallback != "" {
			raw = string(fallback)
		}
		res := Canonicalize(raw)
		ev.Category = res.Main
		if res.Known && res.Canonical != string(res.Main) {
			ev.Subcategory = res.Canonical
		}
		out = append(out, ev)
	}
	return out
}

// SourcePriority ranks origin tags for duplicate resolution. Structured venue
// scrapers describe their own programme and win over aggregator APIs, which
// win over generative search results.
func SourcePriority(source string) int {
	s := strings.ToLower(strings.TrimSpace(source))
	switch {
	case strings.HasSuffix(s, SourceScraperSuffix) || s == "scraper":
		return 3
	case s == SourceAPI || s == SourceRSS:
		return 2
	case s == SourceAI:
		return 1
	default:
		return 0
	}
}

// preferred reports whether a should survive over b when both share an
// identity key. The order is total, so the winner never depends on input order.
func preferred(a, b Event) bool {
	if pa, pb := SourcePriority(a.Source), SourcePriority(b.Source); pa != pb {
		return pa > pb
	}
	if ca, cb := a.completeness(), b.completeness(); ca != cb {
		return ca > cb
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return fingerprint(a) < fingerprint(b)
}

func fingerprint(e Event) string {
	cancelled := "0"
	if e.Cancelled {
		cancelled = "1"
	}
	return strings.Join([]string{
		e.Title, string(e.Category), e.Subcategory, e.Date, e.Time, e.EndTime,
		e.Venue, e.Address, e.Price, e.Website, e.ImageURL, e.Description, cancelled,
	}, "\x1f")
}

// DeduplicateEvents collapses events sharing an IdentityKey, keeping the
// preferred representative, and returns them in canonical order. The result
// is independent of input order.
func DeduplicateEvents(evs []Event) []Event {
	if len(evs) == 0 {
		return []Event{}
	}
	winners := make(map[string]Event, len(evs))
	for _, ev := range evs {
		if strings.TrimSpace(ev.Title) == "" {
			continue
		}
		key := IdentityKey(ev)
		current, ok := winners[key]
		if !ok || preferred(ev, current) {
			winners[key] = ev
		}
	}
	out := make([]Event, 0, len(winners))
	for _, ev := range winners {
		out = append(out, ev)
	}
	SortEvents(out)
	return out
}

// MergeEvents deduplicates the concatenation of several lists.
func MergeEvents(lists ...[]Event) []Event {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	all := make([]Event, 0, total)
	for _, l := range lists {
		all = append(all, l...)
	}
	return DeduplicateEvents(all)
}

// SortEvents orders by date, start time (all-day first), title and venue.
func SortEvents(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if ta, tb := sortableTime(a), sortableTime(b); ta != tb {
			return ta < tb
		}
		if ka, kb := IdentityKey(a), IdentityKey(b); ka != kb {
			return ka < kb
		}
		return fingerprint(a) < fingerprint(b)
	})
}

func sortableTime(e Event) string {
	if e.IsAllDay() {
		return ""
	}
	return e.Time
}

// FilterByCategory keeps events whose main category is cat.
func FilterByCategory(evs []Event, cat Category) []Event {
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}
