package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
)

// QuestionCache implements app.QuestionProvider with question snapshots cached in Redis and
// falls back to a loader on cache miss.
// Questions are stored as:   SET {prefix}:question:{id} <json>
// Topic pools are stored as: SET {prefix}:pool:{topic} <json array>
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	prefix string
	topic  string
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, prefix, topic string, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		prefix: prefix,
		topic:  topic,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchBoundQuestions returns the valid questions among ids, in the requested order.
func (c *QuestionCache) FetchBoundQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, missing := c.cached(ctx, ids)

	if len(missing) > 0 {
		sorted := append([]string(nil), missing...)
		sort.Strings(sorted)
		result, err, _ := c.sf.Do("ids:"+strings.Join(sorted, ","), func() (interface{}, error) {
			loaded, err := c.loader.LoadQuestions(ctx, missing)
			if err != nil {
				return nil, err
			}
			pipe := c.client.Pipeline()
			for _, q := range loaded {
				raw, err := json.Marshal(q)
				if err != nil {
					continue
				}
				pipe.Set(ctx, c.questionKey(q.ID), raw, c.ttlWithJitter())
			}
			_, _ = pipe.Exec(ctx)
			return loaded, nil
		})
		if err != nil {
			return nil, err
		}
		for _, q := range result.([]domain.Question) {
			found[q.ID] = q
		}
	}

	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := found[id]; ok {
			out = append(out, q)
		}
	}
	return domain.FilterValid(out), nil
}

// GenerateRandomQuestions draws up to count valid questions of the configured topic.
func (c *QuestionCache) GenerateRandomQuestions(ctx context.Context, count int) ([]domain.Question, error) {
	pool, err := c.pool(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SelectRandom(pool, c.topic, count, c.shuffle), nil
}

func (c *QuestionCache) pool(ctx context.Context) ([]domain.Question, error) {
	key := c.poolKey()
	if pool, ok := c.readPool(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := c.readPool(ctx, key); ok {
			return pool, nil
		}
		pool, err := c.loader.LoadTopic(ctx, c.topic)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(pool); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) readPool(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

// cached reads every id with one MGET. Redis errors degrade to cache misses.
func (c *QuestionCache) cached(ctx context.Context, ids []string) (map[string]domain.Question, []string) {
	found := make(map[string]domain.Question, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.questionKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return found, ids
	}

	var missing []string
	for i, id := range ids {
		if i < len(values) {
			if s, ok := values[i].(string); ok {
				var q domain.Question
				if json.Unmarshal([]byte(s), &q) == nil {
					found[id] = q
					continue
				}
			}
		}
		missing = append(missing, id)
	}
	return found, missing
}

func (c *QuestionCache) questionKey(id string) string {
	return c.prefix + ":question:" + id
}

func (c *QuestionCache) poolKey() string {
	return c.prefix + ":pool:" + c.topic
}

func (c *QuestionCache) shuffle(n int, swap func(i, j int)) {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	c.rnd.Shuffle(n, swap)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
