// Package ship hands finished segment graphs to downstream consumers: redis
// for the live stream and object storage for the archive.
package ship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/client"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/store"
)

// ErrNotShipped is returned by Load for a segment that was never shipped or has expired.
var ErrNotShipped = errors.New("segment not shipped")

// linkExpiry bounds how long a signed archive link stays valid.
const linkExpiry = 15 * time.Minute

type Shipper struct {
	redis   *redis.Client
	objects client.StorageClient
	ttl     time.Duration
	log     *zap.Logger
}

// NewShipper creates a shipper. objects may be nil when object storage is
// not configured.
func NewShipper(redisClient *redis.Client, objects client.StorageClient, ttl time.Duration, log *zap.Logger) *Shipper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shipper{redis: redisClient, objects: objects, ttl: ttl, log: log}
}

func SegmentKey(segmentID uuid.UUID) string {
	return fmt.Sprintf("segment:%s", segmentID)
}

func ChainSegmentsKey(chainID uuid.UUID) string {
	return fmt.Sprintf("chain:%s:segments", chainID)
}

func ObjectKey(chainID uuid.UUID, offset int) string {
	return fmt.Sprintf("chains/%s/segments/%d.json", chainID, offset)
}

// archived reports whether the segment was uploaded to object storage.
func (s *Shipper) archived(seg model.Segment) bool {
	return s.objects != nil && seg.StorageKey != "" && seg.StorageKey == ObjectKey(seg.ChainID, seg.Offset)
}

// Ship writes the graph and returns the key it can be found under: the
// object key when uploaded, the redis key otherwise.
func (s *Shipper) Ship(ctx context.Context, g store.Graph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to marshal segment graph: %w", err)
	}

	seg := g.Segment
	key := SegmentKey(seg.ID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, s.ttl)
		pipe.RPush(ctx, ChainSegmentsKey(seg.ChainID), seg.ID.String())
		if s.ttl > 0 {
			pipe.Expire(ctx, ChainSegmentsKey(seg.ChainID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to save segment graph: %w", err)
	}

	if s.objects == nil {
		return key, nil
	}
	objectKey := ObjectKey(seg.ChainID, seg.Offset)
	url, err := s.objects.Upload(ctx, objectKey, bytes.NewReader(data), "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to upload segment graph: %w", err)
	}
	s.log.Debug("segment graph uploaded",
		zap.String("segment_id", seg.ID.String()),
		zap.String("url", url),
	)
	return objectKey, nil
}

// Load reads a shipped graph back from redis, falling back to object storage
// once the redis copy has expired.
func (s *Shipper) Load(ctx context.Context, seg model.Segment) (store.Graph, error) {
	data, err := s.redis.Get(ctx, SegmentKey(seg.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		data, err = s.download(ctx, seg)
	}
	if err != nil {
		if errors.Is(err, ErrNotShipped) {
			return store.Graph{}, err
		}
		return store.Graph{}, fmt.Errorf("failed to get segment graph: %w", err)
	}
	var g store.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return store.Graph{}, fmt.Errorf("failed to unmarshal segment graph: %w", err)
	}
	return g, nil
}

func (s *Shipper) download(ctx context.Context, seg model.Segment) ([]byte, error) {
	if !s.archived(seg) {
		return nil, ErrNotShipped
	}
	data, err := s.objects.Download(ctx, seg.StorageKey)
	if errors.Is(err, client.ErrObjectNotFound) {
		return nil, ErrNotShipped
	}
	return data, err
}

// Link returns a signed URL for an archived segment graph, or "" when the
// segment was not uploaded.
func (s *Shipper) Link(ctx context.Context, seg model.Segment) (string, error) {
	if !s.archived(seg) {
		return "", nil
	}
	url, err := s.objects.GetSignedURL(ctx, seg.StorageKey, linkExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign segment graph link: %w", err)
	}
	return url, nil
}

// Forget drops everything shipped for a chain: the redis copies and the
// archived objects of the given segments.
func (s *Shipper) Forget(ctx context.Context, chainID uuid.UUID, segments []model.Segment) error {
	listKey := ChainSegmentsKey(chainID)
	ids, err := s.redis.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list shipped segments: %w", err)
	}
	keys := make([]string, 0, len(ids)+len(segments)+1)
	for _, id := range ids {
		keys = append(keys, "segment:"+id)
	}
	for _, seg := range segments {
		keys = append(keys, SegmentKey(seg.ID))
	}
	keys = append(keys, listKey)
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete shipped segments: %w", err)
	}

	var errs []error
	for _, seg := range segments {
		if !s.archived(seg) {
			continue
		}
		if err := s.objects.Delete(ctx, seg.StorageKey); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete archived segments: %w", err)
	}
	return nil
}
