package eventcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
)

// Archive stores day buckets as JSON objects.
type Archive interface {
	PutDayBucket(ctx context.Context, bucket search.DayBucket) error
	GetDayBucket(ctx context.Context, city, date string) (search.DayBucket, bool, error)
}

// ObjectArchive mirrors day buckets to S3-compatible storage (R2, MinIO).
type ObjectArchive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewObjectArchive constructs the archive adapter.
func NewObjectArchive(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*ObjectArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &ObjectArchive{client: client, bucket: bucket, logger: logger.With("component", "eventcache.archive")}, nil
}

func (a *ObjectArchive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// PutDayBucket uploads the bucket as days/<city>/<date>.json.
func (a *ObjectArchive) PutDayBucket(ctx context.Context, bucket search.DayBucket) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(bucket)
	if err != nil {
		return err
	}
	_, err = a.client.PutObject(ctx, a.bucket, objectKey(bucket.City, bucket.Date), bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	return err
}

// GetDayBucket downloads a previously archived bucket.
func (a *ObjectArchive) GetDayBucket(ctx context.Context, city, date string) (search.DayBucket, bool, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectKey(city, date), minio.GetObjectOptions{})
	if err != nil {
		return search.DayBucket{}, false, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return search.DayBucket{}, false, nil
		}
		return search.DayBucket{}, false, err
	}
	var bucket search.DayBucket
	if err := json.Unmarshal(data, &bucket); err != nil {
		return search.DayBucket{}, false, err
	}
	return bucket, true, nil
}

func objectKey(city, date string) string {
	return fmt.Sprintf("days/%s/%s.json", events.Slugify(city), date)
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// MirroredDayBucketStore writes through to an archive after every upsert and
// falls back to it when the primary store has no bucket.
type MirroredDayBucketStore struct {
	primary search.DayBucketStore
	archive Archive
	logger  *slog.Logger
}

// NewMirroredDayBucketStore wraps primary with an archive mirror.
func NewMirroredDayBucketStore(primary search.DayBucketStore, archive Archive, logger *slog.Logger) *MirroredDayBucketStore {
	return &MirroredDayBucketStore{primary: primary, archive: archive, logger: logger.With("component", "eventcache.mirror")}
}

// GetDayEvents implements search.DayBucketStore.
func (m *MirroredDayBucketStore) GetDayEvents(ctx context.Context, city, date string) (search.DayBucket, bool, error) {
	bucket, ok, err := m.primary.GetDayEvents(ctx, city, date)
	if err == nil && ok {
		return bucket, true, nil
	}
	if err != nil {
		m.logger.Warn("primary day bucket read failed", "city", city, "date", date, "error", err)
	}
	return m.archive.GetDayBucket(ctx, city, date)
}

// UpsertDayEvents merges into the primary store and mirrors the result.
// Archive failures are logged; the primary write decides the outcome.
func (m *MirroredDayBucketStore) UpsertDayEvents(ctx context.Context, city, date string, evs []events.Event) error {
	if err := m.primary.UpsertDayEvents(ctx, city, date, evs); err != nil {
		return err
	}
	bucket, ok, err := m.primary.GetDayEvents(ctx, city, date)
	if err != nil || !ok {
		return err
	}
	if err := m.archive.PutDayBucket(ctx, bucket); err != nil {
		m.logger.Warn("day bucket archive failed", "city", city, "date", date, "error", err)
	}
	return nil
}

var (
	_ Archive               = (*ObjectArchive)(nil)
	_ search.DayBucketStore = (*MirroredDayBucketStore)(nil)
)
