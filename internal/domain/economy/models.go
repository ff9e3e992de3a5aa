package economy

import (
	"fmt"
	"time"

	"github.com/cardbox-bot/cardbox/internal/domain/cooldown"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

// UserRef identifies the user behind an interaction.
type UserRef struct {
	ID     int64
	Handle string
}

type User struct {
	ID         int64
	Handle     string
	Balance    int64
	LastDrawAt time.Time // zero when the user never drew
	CreatedAt  time.Time
}

// Card is an owned card instance.
type Card struct {
	ID         int64
	UserID     int64
	Name       string
	Rarity     rarity.Tier
	Path       string
	ObtainedAt time.Time
	Sold       bool
}

// NewCard is what a successful draw persists.
type NewCard struct {
	UserID int64
	Name   string
	Rarity rarity.Tier
	Path   string
}

// Sale is the committed outcome of selling a single card.
type Sale struct {
	CardID    int64
	Rarity    rarity.Tier
	Price     int64
	Balance   int64
	Remaining int
}

type LeaderboardEntry struct {
	UserID    int64
	Handle    string
	Balance   int64
	CardCount int
}

// CardView is the descriptor handed to presentation.
type CardView struct {
	ID         int64
	Name       string
	Rarity     rarity.Tier
	Label      string
	Price      int64
	Path       string
	ObtainedAt time.Time
}

type DrawResult struct {
	Card CardView
}

type SaleResult struct {
	CardID    int64
	Rarity    rarity.Tier
	Label     string
	Price     int64
	Balance   int64
	Remaining int
}

type SellAllResult struct {
	Sold    int
	Skipped int
	Total   int64
	Balance int64
}

type LeaderboardRow struct {
	Rank      int
	UserID    int64
	Handle    string
	Balance   int64
	CardCount int
}

// DisplayHandle falls back to a synthetic name for users without a handle.
func (r LeaderboardRow) DisplayHandle() string {
	if r.Handle != "" {
		return r.Handle
	}
	return fmt.Sprintf("User_%d", r.UserID)
}

type Profile struct {
	UserID   int64
	Handle   string
	Balance  int64
	Unsold   int
	Cooldown cooldown.Decision
}
