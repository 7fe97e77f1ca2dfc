package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/eventradar/internal/domain/search"
)

// ValkeyStore persists jobs in a Valkey-compatible database and lets key
// expiry do the cleanup.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a job store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "events"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Save(ctx context.Context, job search.Job, ttl time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.jobKey(job.ID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, id string) (search.Job, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.jobKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return search.Job{}, false, nil
		}
		return search.Job{}, false, err
	}
	var job search.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return search.Job{}, false, err
	}
	return job, true, nil
}

func (s *ValkeyStore) jobKey(id string) string {
	return fmt.Sprintf("%s:jobs:%s", s.prefix, id)
}

var _ search.JobStore = (*ValkeyStore)(nil)
