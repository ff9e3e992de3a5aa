package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/cardbox-bot/cardbox/internal/gateways/database/models"
)

const pgForeignKeyViolation = "23503"

type UserCardRepository interface {
	Insert(ctx context.Context, card *models.UserCard) (int64, error)
	MarkSold(ctx context.Context, cardID, userID int64) (string, error)
	ListByUser(ctx context.Context, userID int64, unsoldOnly bool) ([]*models.UserCard, error)
	CountUnsold(ctx context.Context, userID int64) (int, error)
}

type userCardRepository struct {
	db bun.IDB
}

func NewUserCardRepository(db bun.IDB) UserCardRepository {
	return &userCardRepository{db: db}
}

func (r *userCardRepository) Insert(ctx context.Context, card *models.UserCard) (int64, error) {
	_, err := r.db.NewInsert().
		Model(card).
		Returning("id").
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == pgForeignKeyViolation {
			return 0, &RepositoryError{Operation: "insert", Entity: "user_card", Err: ErrForeignKey}
		}
		return 0, &RepositoryError{Operation: "insert", Entity: "user_card", Err: err}
	}
	return card.ID, nil
}

// MarkSold flips sold for an unsold card owned by userID and returns its
// rarity. Missing, foreign and already sold cards are all NotFoundError.
func (r *userCardRepository) MarkSold(ctx context.Context, cardID, userID int64) (string, error) {
	var tier string
	err := r.db.NewUpdate().
		Model((*models.UserCard)(nil)).
		Set("sold = TRUE").
		Where("id = ?", cardID).
		Where("user_id = ?", userID).
		Where("sold = FALSE").
		Returning("rarity").
		Scan(ctx, &tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &NotFoundError{Entity: "user_card", ID: cardID}
		}
		return "", &RepositoryError{Operation: "mark_sold", Entity: "user_card", Err: err}
	}
	return tier, nil
}

func (r *userCardRepository) ListByUser(ctx context.Context, userID int64, unsoldOnly bool) ([]*models.UserCard, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var cards []*models.UserCard
	q := r.db.NewSelect().
		Model(&cards).
		Where("user_id = ?", userID)
	if unsoldOnly {
		q = q.Where("sold = FALSE")
	}
	err := q.Order("obtained_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "list", Entity: "user_card", Err: err}
	}
	return cards, nil
}

func (r *userCardRepository) CountUnsold(ctx context.Context, userID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.UserCard)(nil)).
		Where("user_id = ?", userID).
		Where("sold = FALSE").
		Count(ctx)
	if err != nil {
		return 0, &RepositoryError{Operation: "count_unsold", Entity: "user_card", Err: err}
	}
	return count, nil
}
