package events

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategorizeEvents(t *testing.T) {
	t.Parallel()

	in := []Event{
		{Title: "Mozart Requiem", Category: "Konzerte klassisch"},
		{Title: "Mystery Night", Category: "Something odd"},
		{Title: "Unlabelled", Category: ""},
		{Title: "Already main", Category: CategoryFilm},
	}
	out := CategorizeEvents(in, CategoryClubs)

	require.Equal(t, CategoryConcerts, out[0].Category)
	require.Equal(t, "Klassisch", out[0].Subcategory)
	require.Equal(t, DefaultCategory, out[1].Category)
	require.Empty(t, out[1].Subcategory)
	require.Equal(t, CategoryClubs, out[2].Category)
	require.Equal(t, CategoryFilm, out[3].Category)
	require.Empty(t, out[3].Subcategory)

	require.Equal(t, Category("Konzerte klassisch"), in[0].Category, "input must not be modified")
}

func TestSourcePriority(t *testing.T) {
	t.Parallel()

	require.Greater(t, SourcePriority("flex-scraper"), SourcePriority(SourceAPI))
	require.Equal(t, SourcePriority(SourceAPI), SourcePriority(SourceRSS))
	require.Greater(t, SourcePriority(SourceRSS), SourcePriority(SourceAI))
	require.Greater(t, SourcePriority(SourceAI), SourcePriority("mystery"))
}

func TestDeduplicateEventsPrefersStructuredSource(t *testing.T) {
	t.Parallel()

	ai := Event{Title: "Techno Night", Venue: "Flex", Date: "2025-01-15", Time: "22:00", Source: SourceAI, Description: "long text", Price: "€15", Website: "https://x"}
	scraped := Event{Title: "TECHNO night!", Venue: "flex", Date: "2025-01-15", Time: "23:00", Source: "flex-scraper"}

	out := DeduplicateEvents([]Event{ai, scraped})
	require.Len(t, out, 1)
	require.Equal(t, "flex-scraper", out[0].Source)
}

func TestDeduplicateEventsPrefersCompleteRecordOnTie(t *testing.T) {
	t.Parallel()

	sparse := Event{Title: "Lesung", Venue: "Literaturhaus", Date: "2025-01-15", Source: SourceAI}
	rich := Event{Title: "Lesung", Venue: "Literaturhaus", Date: "2025-01-15", Time: "19:00", Price: "frei", Source: SourceAI}

	require.Equal(t, []Event{rich}, DeduplicateEvents([]Event{sparse, rich}))
	require.Equal(t, []Event{rich}, DeduplicateEvents([]Event{rich, sparse}))
}

func TestDeduplicateEventsKeepsDistinctDatesAndVenues(t *testing.T) {
	t.Parallel()

	evs := []Event{
		{Title: "Jazz Brunch", Venue: "Porgy & Bess", Date: "2025-01-15"},
		{Title: "Jazz Brunch", Venue: "Porgy & Bess", Date: "2025-01-16"},
		{Title: "Jazz Brunch", Venue: "Jazzland", Date: "2025-01-15"},
		{Title: "  ", Venue: "Nowhere", Date: "2025-01-15"},
	}
	out := DeduplicateEvents(evs)
	require.Len(t, out, 3)
	require.Equal(t, "2025-01-15", out[0].Date)
	require.Equal(t, "2025-01-16", out[2].Date)
}

func TestDeduplicateEventsEmpty(t *testing.T) {
	t.Parallel()

	out := DeduplicateEvents(nil)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestDeduplicateEventsIsOrderIndependent(t *testing.T) {
	t.Parallel()

	base := []Event{
		{Title: "A", Venue: "V1", Date: "2025-01-15", Time: "20:00", Source: SourceAI},
		{Title: "a", Venue: "v1", Date: "2025-01-15", Time: "20:30", Source: SourceAI, Price: "10"},
		{Title: "A", Venue: "V1", Date: "2025-01-15", Source: "wuk-scraper"},
		{Title: "B", Venue: "V2", Date: "2025-01-15", Time: AllDay, Source: SourceAPI},
		{Title: "B", Venue: "V2", Date: "2025-01-15", Time: AllDay, Source: SourceRSS},
		{Title: "C", Venue: "V3", Date: "2025-01-15", Time: "09:00", Source: SourceAI},
	}
	want := DeduplicateEvents(base)
	require.Len(t, want, 3)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]Event(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, DeduplicateEvents(shuffled))
	}
}

func TestMergeEventsIsAssociativeAndCommutative(t *testing.T) {
	t.Parallel()

	x := []Event{{Title: "One", Venue: "A", Date: "2025-01-15", Source: SourceAI}}
	y := []Event{{Title: "one", Venue: "a", Date: "2025-01-15", Source: "a-scraper"}, {Title: "Two", Venue: "B", Date: "2025-01-15"}}
	z := []Event{{Title: "Three", Venue: "C", Date: "2025-01-15", Time: "18:00"}}

	require.Equal(t, MergeEvents(x, y), MergeEvents(y, x))
	require.Equal(t, MergeEvents(MergeEvents(x, y), z), MergeEvents(x, MergeEvents(y, z)))
	require.Equal(t, MergeEvents(x, y, z), DeduplicateEvents(MergeEvents(x, y, z)))
}

func TestSortEventsPutsAllDayFirst(t *testing.T) {
	t.Parallel()

	evs := []Event{
		{Title: "Late", Date: "2025-01-15", Time: "22:00"},
		{Title: "Market", Date: "2025-01-15", Time: AllDay},
		{Title: "Early", Date: "2025-01-15", Time: "09:00"},
	}
	SortEvents(evs)
	require.Equal(t, []string{"Market", "Early", "Late"}, []string{evs[0].Title, evs[1].Title, evs[2].Title})
}

func TestFilterByCategory(t *testing.T) {
	t.Parallel()

	evs := []Event{
		{Title: "a", Category: CategoryFilm},
		{Title: "b", Category: CategorySport},
		{Title: "c", Category: CategoryFilm},
	}
	out := FilterByCategory(evs, CategoryFilm)
	require.Len(t, out, 2)
	require.Empty(t, FilterByCategory(evs, CategoryMuseums))
}
