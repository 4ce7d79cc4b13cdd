package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"quiz-duel-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string `bun:"id,pk"`
	DisplayName string `bun:"display_name,notnull"`
	Rating      int    `bun:"rating,notnull"`
	Played      int    `bun:"played,notnull"`
	Won         int    `bun:"won,notnull"`
}

type historyModel struct {
	bun.BaseModel `bun:"table:user_match_history,alias:h"`

	UserID         string          `bun:"user_id,pk"`
	MatchID        string          `bun:"match_id,pk"`
	OpponentID     string          `bun:"opponent_id,notnull"`
	Outcome        string          `bun:"outcome,notnull"`
	RatingDelta    int             `bun:"rating_delta,notnull"`
	Score          decimal.Decimal `bun:"score,type:numeric,notnull"`
	Correct        int             `bun:"correct,notnull"`
	Wrong          int             `bun:"wrong,notnull"`
	TotalQuestions int             `bun:"total_questions,notnull"`
	PlayedAt       time.Time       `bun:"played_at,notnull"`
}

// UserRepository stores ratings in users and one row per settled match in
// user_match_history. The (user_id, match_id) key makes applying a result idempotent.
type UserRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, userID string) (domain.User, error) {
	u := new(userModel)
	err := r.db.NewSelect().Model(u).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}

	var history []historyModel
	err = r.db.NewSelect().
		Model(&history).
		Where("user_id = ?", userID).
		Order("played_at ASC").
		Scan(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("select history: %w", err)
	}

	out := domain.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Rating:      u.Rating,
		Played:      u.Played,
		Won:         u.Won,
		History:     make([]domain.HistoryEntry, 0, len(history)),
	}
	for _, h := range history {
		out.History = append(out.History, domain.HistoryEntry{
			MatchID:        h.MatchID,
			OpponentID:     h.OpponentID,
			Outcome:        domain.Outcome(h.Outcome),
			RatingDelta:    h.RatingDelta,
			Score:          h.Score,
			Correct:        h.Correct,
			Wrong:          h.Wrong,
			TotalQuestions: h.TotalQuestions,
			PlayedAt:       h.PlayedAt,
		})
	}
	return out, nil
}

// Ensure creates u when no user with its id exists, and otherwise only refreshes a non-empty
// display name. Ratings are changed by match results alone.
func (r *UserRepository) Ensure(ctx context.Context, u domain.User) error {
	q := r.db.NewInsert().
		Model(&userModel{ID: u.ID, DisplayName: u.DisplayName, Rating: u.Rating, Played: u.Played, Won: u.Won})
	if u.DisplayName == "" {
		q = q.On("CONFLICT (id) DO NOTHING")
	} else {
		q = q.On("CONFLICT (id) DO UPDATE").Set("display_name = EXCLUDED.display_name")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (r *UserRepository) ApplyMatchResult(ctx context.Context, userID string, newRating int, entry domain.HistoryEntry) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&historyModel{
				UserID:         userID,
				MatchID:        entry.MatchID,
				OpponentID:     entry.OpponentID,
				Outcome:        string(entry.Outcome),
				RatingDelta:    entry.RatingDelta,
				Score:          entry.Score,
				Correct:        entry.Correct,
				Wrong:          entry.Wrong,
				TotalQuestions: entry.TotalQuestions,
				PlayedAt:       entry.PlayedAt,
			}).
			On("CONFLICT (user_id, match_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		won := 0
		if entry.Outcome == domain.OutcomeWin {
			won = 1
		}
		res, err = tx.NewUpdate().
			Model((*userModel)(nil)).
			Set("rating = ?", newRating).
			Set("played = played + 1").
			Set("won = won + ?", won).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}
