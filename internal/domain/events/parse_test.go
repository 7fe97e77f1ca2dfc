package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventsFromResponseFormats(t *testing.T) {
	t.Parallel()

	defaults := ParseDefaults{Date: "2025-01-15", Category: CategoryConcerts}
	cases := []struct {
		name string
		raw  string
	}{
		{name: "plain array", raw: `[{"title":"Requiem","venue":"Musikverein","time":"19:30"}]`},
		{name: "wrapped object", raw: `{"events":[{"title":"Requiem","venue":"Musikverein","time":"19:30"}]}`},
		{name: "fenced block", raw: "Here you go:\n```json\n[{\"title\":\"Requiem\",\"venue\":\"Musikverein\",\"time\":\"19.30 Uhr\"}]\n```\nEnjoy!"},
		{name: "array with prose", raw: `Found these: [{"name":"Requiem","location":"Musikverein","startTime":"7:30 pm"}] hope it helps`},
		{name: "json lines", raw: "{\"title\":\"Requiem\",\"venue\":\"Musikverein\",\"time\":\"19:30\"}\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evs, report, err := ParseEventsFromResponse(tc.raw, defaults)
			require.NoError(t, err)
			require.Equal(t, ParseReport{Parsed: 1}, report)
			require.Len(t, evs, 1)
			require.Equal(t, "Requiem", evs[0].Title)
			require.Equal(t, "Musikverein", evs[0].Venue)
			require.Equal(t, "2025-01-15", evs[0].Date)
			require.Equal(t, "19:30", evs[0].Time)
			require.Equal(t, SourceAI, evs[0].Source)
		})
	}
}

func TestParseEventsFromResponseSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	raw := `[
		{"title":"Good","date":"15.01.2025","price":12},
		{"venue":"no title"},
		"just a string",
		{"title":"Wrong day","date":"2025-01-16"},
		{"title":"Bad date","date":"31.02.2025"},
		{"title":"Timestamp","startDate":"2025-01-15T21:00:00","source":"api","cancelled":true}
	]`
	evs, report, err := ParseEventsFromResponse(raw, ParseDefaults{Date: "2025-01-15"})
	require.NoError(t, err)
	require.Equal(t, ParseReport{Parsed: 2, Skipped: 4}, report)
	require.Len(t, evs, 2)

	require.Equal(t, "Good", evs[0].Title)
	require.Equal(t, "12", evs[0].Price)
	require.Equal(t, AllDay, evs[0].Time)

	require.Equal(t, "Timestamp", evs[1].Title)
	require.Equal(t, "21:00", evs[1].Time)
	require.Equal(t, SourceAPI, evs[1].Source)
	require.True(t, evs[1].Cancelled)
}

func TestParseEventsFromResponseWithoutPayload(t *testing.T) {
	t.Parallel()

	evs, _, err := ParseEventsFromResponse("Sorry, I could not find any events.", ParseDefaults{})
	require.ErrorIs(t, err, ErrNoEventPayload)
	require.Empty(t, evs)

	evs, report, err := ParseEventsFromResponse("   ", ParseDefaults{})
	require.NoError(t, err)
	require.Empty(t, evs)
	require.Zero(t, report.Parsed)

	evs, _, err = ParseEventsFromResponse(`{"events":[]}`, ParseDefaults{})
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"20:00":     "20:00",
		"9:05":      "09:05",
		"20.00 Uhr": "20:00",
		"21h":       "21:00",
		"21h30":     "21:30",
		"8 pm":      "20:00",
		"12:15 a.m": "00:15",
		"ganztags":  AllDay,
		"":          AllDay,
		"abends":    AllDay,
		"25:00":     AllDay,
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeTime(in), "input %q", in)
	}
}
