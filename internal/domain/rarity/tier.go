package rarity

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is one of the closed set of card rarities.
type Tier string

const (
	Common    Tier = "common"
	Rare      Tier = "rare"
	Legendary Tier = "legendary"
	Mythic    Tier = "mythic"
	Secret    Tier = "secret"
)

// Tiers lists every tier in display order.
var Tiers = []Tier{Common, Rare, Legendary, Mythic, Secret}

var ErrUnknownTier = errors.New("unknown rarity tier")

func (t Tier) Valid() bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

func (t Tier) String() string {
	return string(t)
}

// ParseTier accepts a tier key in any letter case.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Info is the configuration attached to a tier.
type Info struct {
	Tier   Tier
	Label  string
	Folder string
	Price  int64
	Weight float64
}

// Table is the validated rarity table. Every tier has exactly one entry.
type Table struct {
	entries []Info
	byTier  map[Tier]Info
	total   float64
}

// NewTable validates infos and builds a table. It fails unless every tier in
// Tiers appears exactly once with a positive price and a non-negative weight,
// and the weights do not sum to zero.
func NewTable(infos []Info) (*Table, error) {
	byTier := make(map[Tier]Info, len(infos))
	var total float64

	for _, info := range infos {
		if !info.Tier.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTier, info.Tier)
		}
		if _, dup := byTier[info.Tier]; dup {
			return nil, fmt.Errorf("rarity %q configured twice", info.Tier)
		}
		if info.Price <= 0 {
			return nil, fmt.Errorf("rarity %q: price must be positive, got %d", info.Tier, info.Price)
		}
		if info.Weight < 0 {
			return nil, fmt.Errorf("rarity %q: weight must not be negative, got %v", info.Tier, info.Weight)
		}
		if info.Label == "" {
			info.Label = string(info.Tier)
		}
		if info.Folder == "" {
			info.Folder = info.Label
		}
		byTier[info.Tier] = info
		total += info.Weight
	}

	entries := make([]Info, 0, len(Tiers))
	for _, t := range Tiers {
		info, ok := byTier[t]
		if !ok {
			return nil, fmt.Errorf("rarity %q is not configured", t)
		}
		entries = append(entries, info)
	}

	if total <= 0 {
		return nil, errors.New("rarity weights sum to zero")
	}

	return &Table{entries: entries, byTier: byTier, total: total}, nil
}

// DefaultInfos returns the stock table: labels double as asset folder names.
func DefaultInfos() []Info {
	return []Info{
		{Tier: Common, Label: "Обычный", Folder: "Обычный", Price: 10, Weight: 40},
		{Tier: Rare, Label: "Редкий", Folder: "Редкий", Price: 15, Weight: 30},
		{Tier: Legendary, Label: "Легендарный", Folder: "Легендарный", Price: 50, Weight: 15},
		{Tier: Mythic, Label: "Мифик", Folder: "Мифик", Price: 30, Weight: 10},
		{Tier: Secret, Label: "Секрет", Folder: "Секрет", Price: 100, Weight: 5},
	}
}

// DefaultTable panics if DefaultInfos ever stops validating.
func DefaultTable() *Table {
	t, err := NewTable(DefaultInfos())
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Get(tier Tier) (Info, bool) {
	info, ok := t.byTier[tier]
	return info, ok
}

// Price returns the sale price of tier, or 0 for a tier the table does not know.
func (t *Table) Price(tier Tier) int64 {
	return t.byTier[tier].Price
}

func (t *Table) Label(tier Tier) string {
	if info, ok := t.byTier[tier]; ok {
		return info.Label
	}
	return string(tier)
}

// All returns the entries in Tiers order.
func (t *Table) All() []Info {
	out := make([]Info, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) TotalWeight() float64 {
	return t.total
}
