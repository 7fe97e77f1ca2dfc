package events

import "time"

// TTL bounds for category shards.
const (
	MinTTLSeconds = 10 * 60
	MaxTTLSeconds = 60 * 60

	shortLead = time.Hour
	longLead  = 24 * time.Hour
)

// ComputeTTLSeconds derives a shard lifetime from how soon the earliest
// event in evs starts. Imminent events change most (time corrections,
// cancellations) and get the floor; sets starting a day or more ahead get the
// ceiling; in between the TTL grows linearly with the lead time. Empty sets
// and sets with past events also get the floor.
func ComputeTTLSeconds(evs []Event, now time.Time, loc *time.Location) int {
	if len(evs) == 0 {
		return MinTTLSeconds
	}
	lead, found := time.Duration(0), false
	for _, ev := range evs {
		start, ok := ev.Start(loc)
		if !ok {
			continue
		}
		d := start.Sub(now)
		if !found || d < lead {
			lead, found = d, true
		}
	}
	if !found {
		return MinTTLSeconds
	}
	return ttlForLead(lead)
}

func ttlForLead(lead time.Duration) int {
	switch {
	case lead <= shortLead:
		return MinTTLSeconds
	case lead >= longLead:
		return MaxTTLSeconds
	}
	span := float64(MaxTTLSeconds - MinTTLSeconds)
	frac := float64(lead-shortLead) / float64(longLead-shortLead)
	return MinTTLSeconds + int(span*frac)
}
