package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/cardbox-bot/cardbox/internal/gateways/database/models"
)

type UserRepository interface {
	Upsert(ctx context.Context, id int64, handle string) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	CreditBalance(ctx context.Context, id int64, amount int64) (int64, error)
	StampDrawTime(ctx context.Context, id int64, when time.Time) error
	StampDrawTimeIfElapsed(ctx context.Context, id int64, when, cutoff time.Time) (bool, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error)
}

type userRepository struct {
	db bun.IDB
}

// NewUserRepository accepts either a *bun.DB or a bun.Tx.
func NewUserRepository(db bun.IDB) UserRepository {
	return &userRepository{db: db}
}

// Upsert creates the user on first contact and leaves existing rows untouched.
func (r *userRepository) Upsert(ctx context.Context, id int64, handle string) error {
	user := &models.User{
		ID:        id,
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "upsert", Entity: "user", Err: err}
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: id}
		}
		slog.Error("Database error when getting user",
			slog.String("type", "db"),
			slog.String("operation", "GetByID"),
			slog.Int64("user_id", id),
			slog.String("error", err.Error()))
		return nil, &RepositoryError{Operation: "get", Entity: "user", Err: err}
	}
	return user, nil
}

// CreditBalance adds amount and returns the new balance.
func (r *userRepository) CreditBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	var balance int64
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("balance = balance + ?", amount).
		Where("id = ?", id).
		Returning("balance").
		Scan(ctx, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &NotFoundError{Entity: "user", ID: id}
		}
		return 0, &RepositoryError{Operation: "credit", Entity: "user", Err: err}
	}
	return balance, nil
}

func (r *userRepository) StampDrawTime(ctx context.Context, id int64, when time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_draw_at = ?", when).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "stamp", Entity: "user", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

// StampDrawTimeIfElapsed sets last_draw_at only when the previous draw is at
// or before cutoff. The returned bool reports whether the row was updated.
func (r *userRepository) StampDrawTimeIfElapsed(ctx context.Context, id int64, when, cutoff time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_draw_at = ?", when).
		Where("id = ?", id).
		Where("last_draw_at IS NULL OR last_draw_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return false, &RepositoryError{Operation: "stamp_if_elapsed", Entity: "user", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &RepositoryError{Operation: "stamp_if_elapsed", Entity: "user", Err: err}
	}
	return n > 0, nil
}

// Leaderboard orders by balance, then unsold card count, then id.
func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []models.LeaderboardRow
	err := r.db.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.id AS user_id").
		ColumnExpr("u.handle").
		ColumnExpr("u.balance").
		ColumnExpr("COUNT(uc.id) FILTER (WHERE uc.sold = FALSE) AS card_count").
		Join("LEFT JOIN user_cards AS uc ON uc.user_id = u.id").
		GroupExpr("u.id").
		OrderExpr("u.balance DESC, card_count DESC, u.id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &RepositoryError{Operation: "leaderboard", Entity: "user", Err: err}
	}
	return rows, nil
}
