package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         int64     `bun:"id,pk"` // platform user id, never generated
	Handle     string    `bun:"handle,notnull,default:''"`
	Balance    int64     `bun:"balance,notnull,default:0"`
	LastDrawAt time.Time `bun:"last_draw_at,nullzero"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// LeaderboardRow is a projection of users joined with their unsold cards.
type LeaderboardRow struct {
	UserID    int64  `bun:"user_id"`
	Handle    string `bun:"handle"`
	Balance   int64  `bun:"balance"`
	CardCount int    `bun:"card_count"`
}
