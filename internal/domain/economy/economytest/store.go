// Package economytest provides an in-memory store for tests of code built on
// the economy engine.
package economytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

var _ economy.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory economy.Store with the same atomicity
// guarantees as the database implementation.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[int64]*economy.User
	cards  []economy.Card
	nextID int64

	// BeforeRecord runs inside RecordDraw, under the store lock, before the
	// cooldown condition is evaluated.
	BeforeRecord func(u *economy.User)
	// BeforeSell runs at the start of SellCard, outside the store lock, so
	// it may sell other cards itself. A non-nil error is returned by SellCard.
	BeforeSell func(cardID int64) error
	// GetUserErr, when set, is returned by GetUser.
	GetUserErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]*economy.User)}
}

func (s *MemoryStore) UpsertUser(_ context.Context, id int64, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		s.users[id] = &economy.User{ID: id, Handle: handle, CreatedAt: time.Now()}
	}
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*economy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetUserErr != nil {
		return nil, s.GetUserErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, economy.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) RecordDraw(_ context.Context, card economy.NewCard, when, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[card.UserID]
	if !ok {
		return 0, economy.ErrOrphanCard
	}
	if s.BeforeRecord != nil {
		s.BeforeRecord(u)
	}
	if !u.LastDrawAt.IsZero() && u.LastDrawAt.After(cutoff) {
		return 0, economy.ErrCooldownActive
	}
	u.LastDrawAt = when
	s.nextID++
	s.cards = append(s.cards, economy.Card{
		ID:         s.nextID,
		UserID:     card.UserID,
		Name:       card.Name,
		Rarity:     card.Rarity,
		Path:       card.Path,
		ObtainedAt: when,
	})
	return s.nextID, nil
}

func (s *MemoryStore) SellCard(_ context.Context, cardID, userID int64, prices economy.Pricer) (*economy.Sale, error) {
	if s.BeforeSell != nil {
		if err := s.BeforeSell(cardID); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cards {
		c := &s.cards[i]
		if c.ID != cardID || c.UserID != userID || c.Sold {
			continue
		}
		c.Sold = true
		price := prices.Price(c.Rarity)
		u := s.users[userID]
		u.Balance += price
		return &economy.Sale{
			CardID:    c.ID,
			Rarity:    c.Rarity,
			Price:     price,
			Balance:   u.Balance,
			Remaining: s.countUnsold(userID),
		}, nil
	}
	return nil, economy.ErrNotFound
}

func (s *MemoryStore) ListCards(_ context.Context, userID int64, unsoldOnly bool) ([]economy.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []economy.Card
	for i := len(s.cards) - 1; i >= 0; i-- {
		c := s.cards[i]
		if c.UserID != userID || (unsoldOnly && c.Sold) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) CountUnsold(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countUnsold(userID), nil
}

func (s *MemoryStore) countUnsold(userID int64) int {
	n := 0
	for _, c := range s.cards {
		if c.UserID == userID && !c.Sold {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]economy.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]economy.LeaderboardEntry, 0, len(s.users))
	for _, u := range s.users {
		entries = append(entries, economy.LeaderboardEntry{
			UserID:    u.ID,
			Handle:    u.Handle,
			Balance:   u.Balance,
			CardCount: s.countUnsold(u.ID),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		if entries[i].CardCount != entries[j].CardCount {
			return entries[i].CardCount > entries[j].CardCount
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Seed inserts an unsold card directly, bypassing the cooldown, and
// creates the owner if needed.
func (s *MemoryStore) Seed(userID int64, tier rarity.Tier, name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = &economy.User{ID: userID}
	}
	s.nextID++
	s.cards = append(s.cards, economy.Card{ID: s.nextID, UserID: userID, Name: name, Rarity: tier})
	return s.nextID
}

// SetBalance overwrites a balance, creating the user if needed.
func (s *MemoryStore) SetBalance(userID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = &economy.User{ID: userID}
	}
	s.users[userID].Balance = balance
}
