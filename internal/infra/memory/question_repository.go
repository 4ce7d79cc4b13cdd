package memory

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-duel-service/internal/domain"
)

// QuestionLoader fetches question records from a backing store (e.g., the question bank DB).
type QuestionLoader interface {
	// LoadQuestions returns the records for ids that exist, in the order of ids.
	LoadQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	// LoadTopic returns every record of topic. An empty topic returns the whole bank.
	LoadTopic(ctx context.Context, topic string) ([]domain.Question, error)
}

// QuestionRepository implements app.QuestionProvider on top of a loader, caching question
// snapshots and topic pools with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	topic  string
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	questions map[string]cachedQuestion
	pools     map[string]cachedPool
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, topic string, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader:    loader,
		topic:     topic,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]cachedQuestion),
		pools:     make(map[string]cachedPool),
	}
}

// FetchBoundQuestions returns the valid questions among ids, in the requested order.
// Unknown ids and invalid records are skipped.
func (r *QuestionRepository) FetchBoundQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	found, missing := r.cached(ids)
	if len(missing) > 0 {
		key := "ids:" + strings.Join(sortedCopy(missing), ",")
		result, err, _ := r.sf.Do(key, func() (interface{}, error) {
			loaded, err := r.loader.LoadQuestions(ctx, missing)
			if err != nil {
				return nil, err
			}
			now := r.clock()
			r.mu.Lock()
			for _, q := range loaded {
				r.questions[q.ID] = cachedQuestion{question: q, expiresAt: now.Add(r.ttlWithJitter())}
			}
			r.mu.Unlock()
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
func (r *QuestionRepository) GenerateRandomQuestions(ctx context.Context, count int) ([]domain.Question, error) {
	pool, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SelectRandom(pool, r.topic, count, r.shuffle), nil
}

func (r *QuestionRepository) pool(ctx context.Context) ([]domain.Question, error) {
	now := r.clock()
	r.mu.RLock()
	if entry, ok := r.pools[r.topic]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("topic:"+r.topic, func() (interface{}, error) {
		questions, err := r.loader.LoadTopic(ctx, r.topic)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.pools[r.topic] = cachedPool{questions: questions, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) cached(ids []string) (map[string]domain.Question, []string) {
	now := r.clock()
	found := make(map[string]domain.Question, len(ids))
	var missing []string

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if entry, ok := r.questions[id]; ok && entry.expiresAt.After(now) {
			found[id] = entry.question
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

func (r *QuestionRepository) shuffle(n int, swap func(i, j int)) {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	r.rnd.Shuffle(n, swap)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// StaticQuestionLoader is a loader backed by an in-memory question bank (useful for tests/demos).
type StaticQuestionLoader struct {
	bank []domain.Question
}

func NewStaticQuestionLoader(bank []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{bank: bank}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	byID := make(map[string]domain.Question, len(l.bank))
	for _, q := range l.bank {
		byID[q.ID] = q
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (l *StaticQuestionLoader) LoadTopic(_ context.Context, topic string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(l.bank))
	for _, q := range l.bank {
		if topic == "" || q.Topic == topic {
			out = append(out, q)
		}
	}
	return out, nil
}
