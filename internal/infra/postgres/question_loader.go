package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-duel-service/internal/domain"
)

// QuestionLoader reads the question bank from Postgres. Options are stored as JSONB.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

const selectQuestions = `SELECT id, topic, prompt, options, explanation FROM questions`

func (l *QuestionLoader) LoadQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx, selectQuestions+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	found, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Question, len(found))
	for _, q := range found {
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

func (l *QuestionLoader) LoadTopic(ctx context.Context, topic string) ([]domain.Question, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if topic == "" {
		rows, err = l.pool.Query(ctx, selectQuestions+` ORDER BY id`)
	} else {
		rows, err = l.pool.Query(ctx, selectQuestions+` WHERE topic = $1 ORDER BY id`, topic)
	}
	if err != nil {
		return nil, fmt.Errorf("load topic %q: %w", topic, err)
	}
	return scanQuestions(rows)
}

// Upsert writes questions in one batch, replacing existing records with the same id.
func (l *QuestionLoader) Upsert(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options of %s: %w", q.ID, err)
		}
		batch.Queue(`INSERT INTO questions (id, topic, prompt, options, explanation)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET topic = EXCLUDED.topic, prompt = EXCLUDED.prompt,
				options = EXCLUDED.options, explanation = EXCLUDED.explanation`,
			q.ID, q.Topic, q.Prompt, options, q.Explanation)
	}

	br := l.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range questions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert questions: %w", err)
		}
	}
	return nil
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Topic, &q.Prompt, &raw, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return out, nil
}
