package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
	"github.com/cardbox-bot/cardbox/internal/gateways/database/models"
	"github.com/cardbox-bot/cardbox/internal/gateways/database/repositories"
)

// Store implements economy.Store on top of the bun repositories.
type Store struct {
	db *bun.DB
}

var _ economy.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// done records the operation. Expected domain outcomes are not failures.
func done(ql *queryLog, err error) {
	switch {
	case errors.Is(err, economy.ErrNotFound),
		errors.Is(err, economy.ErrUserNotFound),
		errors.Is(err, economy.ErrCooldownActive):
		ql.Done(nil, 0)
	default:
		ql.Done(err, 0)
	}
}

func (s *Store) UpsertUser(ctx context.Context, id int64, handle string) (err error) {
	ql := newQueryLog("upsert_user", "")
	defer func() { done(ql, err) }()

	return repositories.NewUserRepository(s.db).Upsert(ctx, id, handle)
}

func (s *Store) GetUser(ctx context.Context, id int64) (_ *economy.User, err error) {
	ql := newQueryLog("get_user", "")
	defer func() { done(ql, err) }()

	user, err := repositories.NewUserRepository(s.db).GetByID(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, economy.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toUser(user), nil
}

// RecordDraw stamps the draw time and inserts the card in one transaction.
func (s *Store) RecordDraw(ctx context.Context, card economy.NewCard, when, cutoff time.Time) (id int64, err error) {
	ql := newQueryLog("record_draw", "")
	defer func() { done(ql, err) }()

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := repositories.NewUserRepository(tx)

		applied, err := users.StampDrawTimeIfElapsed(ctx, card.UserID, when, cutoff)
		if err != nil {
			return err
		}
		if !applied {
			_, err := users.GetByID(ctx, card.UserID)
			if repositories.IsNotFound(err) {
				return economy.ErrOrphanCard
			}
			if err != nil {
				return err
			}
			return economy.ErrCooldownActive
		}

		id, err = repositories.NewUserCardRepository(tx).Insert(ctx, &models.UserCard{
			UserID:     card.UserID,
			Name:       card.Name,
			Rarity:     string(card.Rarity),
			Path:       card.Path,
			ObtainedAt: when,
		})
		if errors.Is(err, repositories.ErrForeignKey) {
			return fmt.Errorf("%w: %w", economy.ErrOrphanCard, err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SellCard marks the card sold, credits its price and reads back the
// remaining unsold count, all in one transaction.
func (s *Store) SellCard(ctx context.Context, cardID, userID int64, prices economy.Pricer) (sale *economy.Sale, err error) {
	ql := newQueryLog("sell_card", "")
	defer func() { done(ql, err) }()

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cards := repositories.NewUserCardRepository(tx)

		raw, err := cards.MarkSold(ctx, cardID, userID)
		if repositories.IsNotFound(err) {
			return economy.ErrNotFound
		}
		if err != nil {
			return err
		}

		tier, err := rarity.ParseTier(raw)
		if err != nil {
			return fmt.Errorf("card %d: %w", cardID, err)
		}
		price := prices.Price(tier)

		balance, err := repositories.NewUserRepository(tx).CreditBalance(ctx, userID, price)
		if err != nil {
			return err
		}

		remaining, err := cards.CountUnsold(ctx, userID)
		if err != nil {
			return err
		}

		sale = &economy.Sale{
			CardID:    cardID,
			Rarity:    tier,
			Price:     price,
			Balance:   balance,
			Remaining: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListCards(ctx context.Context, userID int64, unsoldOnly bool) (_ []economy.Card, err error) {
	ql := newQueryLog("list_cards", "")
	defer func() { done(ql, err) }()

	rows, err := repositories.NewUserCardRepository(s.db).ListByUser(ctx, userID, unsoldOnly)
	if err != nil {
		return nil, err
	}

	cards := make([]economy.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, economy.Card{
			ID:         row.ID,
			UserID:     row.UserID,
			Name:       row.Name,
			Rarity:     rarity.Tier(row.Rarity),
			Path:       row.Path,
			ObtainedAt: row.ObtainedAt,
			Sold:       row.Sold,
		})
	}
	return cards, nil
}

func (s *Store) CountUnsold(ctx context.Context, userID int64) (_ int, err error) {
	ql := newQueryLog("count_unsold", "")
	defer func() { done(ql, err) }()

	return repositories.NewUserCardRepository(s.db).CountUnsold(ctx, userID)
}

func (s *Store) Leaderboard(ctx context.Context, limit int) (_ []economy.LeaderboardEntry, err error) {
	ql := newQueryLog("leaderboard", "")
	defer func() { done(ql, err) }()

	rows, err := repositories.NewUserRepository(s.db).Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]economy.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, economy.LeaderboardEntry{
			UserID:    row.UserID,
			Handle:    row.Handle,
			Balance:   row.Balance,
			CardCount: row.CardCount,
		})
	}
	return entries, nil
}

func toUser(m *models.User) *economy.User {
	return &economy.User{
		ID:         m.ID,
		Handle:     m.Handle,
		Balance:    m.Balance,
		LastDrawAt: m.LastDrawAt,
		CreatedAt:  m.CreatedAt,
	}
}
