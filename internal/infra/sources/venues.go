package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
)

const venueSourceName = "venues"

const venueEventsSQL = `
SELECT title,
       COALESCE(description, ''),
       COALESCE(category, ''),
       COALESCE(subcategory, ''),
       start_date_time,
       end_date_time,
       COALESCE(custom_venue_name, ''),
       COALESCE(custom_venue_address, ''),
       COALESCE(price_info, ''),
       COALESCE(is_free, false),
       COALESCE(website_url, ''),
       COALESCE(booking_url, ''),
       COALESCE(image_urls, '{}'),
       COALESCE(source, '')
FROM events
WHERE lower(city) = lower($1)
  AND start_date_time >= $2
  AND start_date_time < $3
ORDER BY start_date_time`

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// VenueSource reads the events venue scrapers write to Postgres.
type VenueSource struct {
	db     rowQuerier
	loc    *time.Location
	logger *slog.Logger
}

// NewVenueSource constructs the source; db is usually a *pgxpool.Pool.
func NewVenueSource(db rowQuerier, loc *time.Location, logger *slog.Logger) *VenueSource {
	if loc == nil {
		loc = time.UTC
	}
	return &VenueSource{db: db, loc: loc, logger: logger.With("component", "sources.venues")}
}

// Name implements Source.
func (s *VenueSource) Name() string {
	return venueSourceName
}

// Fetch returns the scraped events of the day whose label maps to category.
func (s *VenueSource) Fetch(ctx context.Context, city, date string, category events.Category, _ search.FetchOptions) (search.RawResult, error) {
	day, err := time.ParseInLocation(events.DateLayout, date, s.loc)
	if err != nil {
		return search.RawResult{}, fmt.Errorf("parse date: %w", err)
	}
	rows, err := s.db.Query(ctx, venueEventsSQL, city, day, day.Add(24*time.Hour))
	if err != nil {
		return search.RawResult{}, fmt.Errorf("query venue events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var r venueRow
		if err := rows.Scan(
			&r.Title,
			&r.Description,
			&r.Category,
			&r.Subcategory,
			&r.Start,
			&r.End,
			&r.Venue,
			&r.Address,
			&r.PriceInfo,
			&r.IsFree,
			&r.WebsiteURL,
			&r.BookingURL,
			&r.ImageURLs,
			&r.Source,
		); err != nil {
			return search.RawResult{}, fmt.Errorf("scan venue event: %w", err)
		}
		ev := r.toEvent(s.loc)
		if events.Canonicalize(string(ev.Category)).Main != category {
			continue
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return search.RawResult{}, fmt.Errorf("iterate venue events: %w", err)
	}
	s.logger.Debug("venue events loaded", "city", city, "date", date, "category", category, "events", len(out))
	return search.RawResult{Category: category, Source: venueSourceName, Events: out}, nil
}

type venueRow struct {
	Title       string
	Description string
	Category    string
	Subcategory string
	Start       time.Time
	End         *time.Time
	Venue       string
	Address     string
	PriceInfo   string
	IsFree      bool
	WebsiteURL  string
	BookingURL  string
	ImageURLs   []string
	Source      string
}

// toEvent maps a scraped row. Scrapers store all-day events at midnight.
func (r venueRow) toEvent(loc *time.Location) events.Event {
	start := r.Start.In(loc)
	ev := events.Event{
		Title:       strings.TrimSpace(r.Title),
		Category:    events.Category(r.Category),
		Date:        start.Format(events.DateLayout),
		Time:        start.Format("15:04"),
		Venue:       r.Venue,
		Address:     r.Address,
		Price:       r.PriceInfo,
		Website:     firstNonEmpty(r.WebsiteURL, r.BookingURL),
		Description: r.Description,
		Source:      firstNonEmpty(r.Source, "venue"+events.SourceScraperSuffix),
	}
	if start.Hour() == 0 && start.Minute() == 0 {
		ev.Time = events.AllDay
	}
	if r.End != nil && r.End.After(r.Start) {
		ev.EndTime = r.End.In(loc).Format("15:04")
	}
	if ev.Price == "" && r.IsFree {
		ev.Price = "Gratis"
	}
	if len(r.ImageURLs) > 0 {
		ev.ImageURL = r.ImageURLs[0]
	}
	if res := events.Canonicalize(r.Subcategory); r.Subcategory != "" && res.Known {
		ev.Subcategory = res.Canonical
	}
	return ev
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

var _ Source = (*VenueSource)(nil)
