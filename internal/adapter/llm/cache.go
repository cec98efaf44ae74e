package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
)

// CachedJudge wraps a Judge with a size-bounded LRU whose entries expire
// after a TTL. Failed calls are never cached.
type CachedJudge struct {
	inner   domain.Judge
	cache   *lru.Cache[string, cachedJudgment]
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

type cachedJudgment struct {
	judgment domain.Judgment
	expires  time.Time
}

// NewCachedJudge creates a cache decorator around a judge.
func NewCachedJudge(inner domain.Judge, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedJudge {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[string, cachedJudgment](maxEntries)
	return &CachedJudge{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedJudge) Judge(ctx context.Context, v domain.Vertical, title, summary string) (domain.Judgment, error) {
	key := cacheKey(v, title, summary)
	now := c.clock.Now()
	if e, ok := c.cache.Get(key); ok {
		if now.Before(e.expires) {
			c.metrics.ClassifierCache.WithLabelValues("hit").Inc()
			return e.judgment, nil
		}
		c.cache.Remove(key)
	}
	c.metrics.ClassifierCache.WithLabelValues("miss").Inc()

	j, err := c.inner.Judge(ctx, v, title, summary)
	if err != nil {
		return j, err
	}
	c.cache.Add(key, cachedJudgment{judgment: j, expires: now.Add(c.ttl)})
	return j, nil
}

// Len reports the number of cached entries, expired ones included.
func (c *CachedJudge) Len() int {
	return c.cache.Len()
}

func cacheKey(v domain.Vertical, title, summary string) string {
	sum := sha256.Sum256([]byte(string(v) + "\x00" + title + "\x00" + summary))
	return hex.EncodeToString(sum[:])
}
