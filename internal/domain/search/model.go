package search

import (
	"encoding/json"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/pkg/metrics"
)

// Options tune a single search request.
type Options struct {
	Debug               bool `json:"debug"`
	DisableCache        bool `json:"disableCache"`
	CategoryConcurrency int  `json:"categoryConcurrency"`
}

// Request captures the payload accepted by the search endpoints.
type Request struct {
	City       string   `json:"city"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
	Options    Options  `json:"options"`
}

// BreakdownEntry reports how one requested category was served.
type BreakdownEntry struct {
	FromCache  bool   `json:"fromCache"`
	EventCount int    `json:"eventCount"`
	Error      string `json:"error,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// CacheInfo describes the cache participation in a response.
type CacheInfo struct {
	FromCache      bool                               `json:"fromCache"`
	TotalEvents    int                                `json:"totalEvents"`
	CachedEvents   int                                `json:"cachedEvents"`
	CacheBreakdown map[events.Category]BreakdownEntry `json:"cacheBreakdown"`
}

// DebugInfo is attached when Options.Debug is set.
type DebugInfo struct {
	Fetched        []events.Category  `json:"fetched"`
	ParsedRecords  int                `json:"parsedRecords"`
	SkippedRecords int                `json:"skippedRecords"`
	Tokens         metrics.TokenUsage `json:"tokens"`
	DurationMs     int64              `json:"durationMs"`
}

// Response is serialized back to API consumers.
type Response struct {
	Events    []events.Event `json:"events"`
	Cached    bool           `json:"cached"`
	CacheInfo CacheInfo      `json:"cacheInfo"`
	Debug     *DebugInfo     `json:"debug,omitempty"`
}

// MessageType tags a progressive stream message.
type MessageType string

const (
	MessageProgress MessageType = "progress"
	MessageComplete MessageType = "complete"
	MessageError    MessageType = "error"
)

// Progress counts categories handled so far.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

// StreamError is the payload of an error message.
type StreamError struct {
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Category events.Category `json:"category,omitempty"`
}

// StreamMessage is one line of the progressive stream. Which fields are
// meaningful depends on Type.
type StreamMessage struct {
	Type      MessageType
	Category  events.Category
	Events    []events.Event
	AllEvents []events.Event
	FromCache bool
	Progress  Progress
	Warning   string
	CacheInfo CacheInfo
	Error     *StreamError
}

type progressWire struct {
	Type      MessageType     `json:"type"`
	Category  events.Category `json:"category"`
	Events    []events.Event  `json:"events"`
	AllEvents []events.Event  `json:"allEvents"`
	FromCache bool            `json:"fromCache"`
	Progress  Progress        `json:"progress"`
	Warning   string          `json:"warning,omitempty"`
}

type completeWire struct {
	Type      MessageType    `json:"type"`
	Events    []events.Event `json:"events"`
	CacheInfo CacheInfo      `json:"cacheInfo"`
}

type errorWire struct {
	Type  MessageType  `json:"type"`
	Error *StreamError `json:"error"`
}

// MarshalJSON renders only the fields that belong to the message type.
func (m StreamMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageProgress:
		return json.Marshal(progressWire{
			Type:      m.Type,
			Category:  m.Category,
			Events:    nonNil(m.Events),
			AllEvents: nonNil(m.AllEvents),
			FromCache: m.FromCache,
			Progress:  m.Progress,
			Warning:   m.Warning,
		})
	case MessageComplete:
		return json.Marshal(completeWire{Type: m.Type, Events: nonNil(m.Events), CacheInfo: m.CacheInfo})
	default:
		return json.Marshal(errorWire{Type: MessageError, Error: m.Error})
	}
}

// UnmarshalJSON accepts every message shape; used by stream consumers.
func (m *StreamMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type      MessageType     `json:"type"`
		Category  events.Category `json:"category"`
		Events    []events.Event  `json:"events"`
		AllEvents []events.Event  `json:"allEvents"`
		FromCache bool            `json:"fromCache"`
		Progress  Progress        `json:"progress"`
		Warning   string          `json:"warning"`
		CacheInfo CacheInfo       `json:"cacheInfo"`
		Error     *StreamError    `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = StreamMessage(wire)
	return nil
}

func nonNil(evs []events.Event) []events.Event {
	if evs == nil {
		return []events.Event{}
	}
	return evs
}

// LookupRequest addresses a single event inside a day bucket.
type LookupRequest struct {
	City string
	Date string
	Slug string
}

// JobStatus tracks a detached search.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// JobError is the failure recorded on a job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job is a detached search tracked by id.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Request   Request   `json:"request"`
	Result    *Response `json:"result,omitempty"`
	Error     *JobError `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
