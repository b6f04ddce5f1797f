package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"eventqa-service/internal/app"
	"eventqa-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches an event's question set with TTL to avoid re-reading
// the whole question collection on every submission or aggregate view.
// Lookups by question id pass through uncached.
type QuestionCache struct {
	source app.QuestionRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(source app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) QuestionByID(ctx context.Context, questionID string) (domain.Question, error) {
	return c.source.QuestionByID(ctx, questionID)
}

func (c *QuestionCache) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[eventID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(eventID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[eventID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.source.QuestionsByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[eventID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops an event's cached question set. Called after generation
// writes a new batch.
func (c *QuestionCache) Invalidate(eventID string) {
	c.mu.Lock()
	delete(c.cache, eventID)
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
