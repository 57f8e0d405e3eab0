package caption

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/kbukum/captionkit/redis"
	"github.com/kbukum/captionkit/speaker"
)

// ResultCache keeps the latest speaker detection result per video.
type ResultCache interface {
	Get(ctx context.Context, videoID string) (*speaker.Result, error)
	Put(ctx context.Context, videoID string, res *speaker.Result) error
	Invalidate(ctx context.Context, videoID string) error
}

// resultKeyPrefix namespaces cached results in Redis.
const resultKeyPrefix = "speaker:result"

// RedisResultCache stores results as JSON in Redis.
type RedisResultCache struct {
	store *redis.TypedStore[speaker.Result]
	ttl   time.Duration
}

var _ ResultCache = (*RedisResultCache)(nil)

// NewRedisResultCache creates a cache on client. A ttl of 0 keeps entries
// until they are replaced or invalidated.
func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{
		store: redis.NewTypedStore[speaker.Result](client, resultKeyPrefix),
		ttl:   ttl,
	}
}

// Get returns (nil, nil) on a miss.
func (c *RedisResultCache) Get(ctx context.Context, videoID string) (*speaker.Result, error) {
	return c.store.Load(ctx, videoID)
}

func (c *RedisResultCache) Put(ctx context.Context, videoID string, res *speaker.Result) error {
	return c.store.Save(ctx, videoID, res, c.ttl)
}

func (c *RedisResultCache) Invalidate(ctx context.Context, videoID string) error {
	return c.store.Delete(ctx, videoID)
}

// Speaker summarises one speaker across the stored captions of a video.
type Speaker struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color"`
	CaptionCount  int     `json:"captionCount"`
	TotalDuration int64   `json:"totalDurationMs"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// SpeakersFromCaptions summarises the speakers found in captions, ordered by
// id. Captions without a speaker are ignored.
func SpeakersFromCaptions(captions []Caption) []Speaker {
	idx := map[int]int{}
	var out []Speaker
	for _, c := range captions {
		if c.SpeakerID == nil {
			continue
		}
		id := *c.SpeakerID
		i, ok := idx[id]
		if !ok {
			i = len(out)
			idx[id] = i
			out = append(out, Speaker{ID: id, Name: SpeakerLabel(id), Color: SpeakerColor(id)})
		}
		s := &out[i]
		s.CaptionCount++
		s.TotalDuration += c.EndTime - c.StartTime
		if c.SpeakerConfidence != nil {
			s.AvgConfidence += *c.SpeakerConfidence
		}
	}
	for i := range out {
		out[i].AvgConfidence /= float64(out[i].CaptionCount)
	}
	slices.SortFunc(out, func(a, b Speaker) int { return cmp.Compare(a.ID, b.ID) })
	if out == nil {
		return []Speaker{}
	}
	return out
}
