package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-duel-service/internal/domain"
)

type matchModel struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID                  string               `bun:"id,pk"`
	Status              string               `bun:"status,notnull"`
	Result              string               `bun:"result,notnull"`
	WinnerID            string               `bun:"winner_id,nullzero"`
	TotalQuestions      int                  `bun:"total_questions,notnull"`
	Questions           []domain.Question    `bun:"questions,type:jsonb,notnull"`
	Players             []domain.PlayerEntry `bun:"players,type:jsonb,notnull"`
	NeedsReconciliation bool                 `bun:"needs_reconciliation,notnull"`
	StartedAt           time.Time            `bun:"started_at,notnull"`
	EndedAt             *time.Time           `bun:"ended_at"`
}

func toMatchModel(m domain.Match) *matchModel {
	return &matchModel{
		ID:                  m.ID,
		Status:              string(m.Status),
		Result:              string(m.Result),
		WinnerID:            m.WinnerID,
		TotalQuestions:      m.TotalQuestions,
		Questions:           m.Questions,
		Players:             m.Players,
		NeedsReconciliation: m.NeedsReconciliation,
		StartedAt:           m.StartedAt,
		EndedAt:             m.EndedAt,
	}
}

func (r *matchModel) toDomain() domain.Match {
	return domain.Match{
		ID:                  r.ID,
		Questions:           r.Questions,
		TotalQuestions:      r.TotalQuestions,
		Players:             r.Players,
		Status:              domain.MatchStatus(r.Status),
		Result:              domain.MatchResult(r.Result),
		WinnerID:            r.WinnerID,
		StartedAt:           r.StartedAt,
		EndedAt:             r.EndedAt,
		NeedsReconciliation: r.NeedsReconciliation,
	}
}

// MatchRepository stores match documents in the matches table; questions and players are
// JSONB columns written as a whole on every save.
type MatchRepository struct {
	db *bun.DB
}

func NewMatchRepository(db *bun.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Create(ctx context.Context, m domain.Match) error {
	if _, err := r.db.NewInsert().Model(toMatchModel(m)).Exec(ctx); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (domain.Match, error) {
	row := new(matchModel)
	err := r.db.NewSelect().Model(row).Where("id = ?", matchID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("select match: %w", err)
	}
	return row.toDomain(), nil
}

func (r *MatchRepository) Save(ctx context.Context, m domain.Match) error {
	res, err := r.db.NewUpdate().Model(toMatchModel(m)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *MatchRepository) ListOngoing(ctx context.Context) ([]domain.Match, error) {
	var rows []matchModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", string(domain.MatchOngoing)).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select ongoing matches: %w", err)
	}
	out := make([]domain.Match, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
