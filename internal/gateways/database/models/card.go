package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserCard is one owned card instance. Sold cards are kept for history.
type UserCard struct {
	bun.BaseModel `bun:"table:user_cards,alias:uc"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Name       string    `bun:"name,notnull"`
	Rarity     string    `bun:"rarity,notnull"`
	Path       string    `bun:"path,notnull"`
	ObtainedAt time.Time `bun:"obtained_at,notnull,default:current_timestamp"`
	Sold       bool      `bun:"sold,notnull,default:false"`
}
