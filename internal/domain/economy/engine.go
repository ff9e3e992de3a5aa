package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/cardbox-bot/cardbox/internal/domain/cooldown"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
	"github.com/cardbox-bot/cardbox/internal/metrics"
)

// DefaultLeaderboardSize is used when callers pass a non-positive limit.
const DefaultLeaderboardSize = 10

// Pricer maps a tier to its sale price.
type Pricer interface {
	Price(tier rarity.Tier) int64
}

// Store is the persistence contract the engine relies on. RecordDraw and
// SellCard must each run in a single transaction.
type Store interface {
	UpsertUser(ctx context.Context, id int64, handle string) error
	GetUser(ctx context.Context, id int64) (*User, error)
	// RecordDraw stamps the draw time only if last_draw_at <= cutoff (or is
	// unset) and inserts the card. It returns ErrCooldownActive when the stamp
	// does not apply.
	RecordDraw(ctx context.Context, card NewCard, when, cutoff time.Time) (int64, error)
	// SellCard marks the card sold and credits its price. It returns
	// ErrNotFound when the card is missing, foreign or already sold.
	SellCard(ctx context.Context, cardID, userID int64, prices Pricer) (*Sale, error)
	ListCards(ctx context.Context, userID int64, unsoldOnly bool) ([]Card, error)
	CountUnsold(ctx context.Context, userID int64) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// AccessGate is the subscription check run before every draw.
type AccessGate interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

type Sampler interface {
	Sample(ctx context.Context) (rarity.Draw, error)
}

type Engine struct {
	store    Store
	gate     AccessGate
	sampler  Sampler
	table    *rarity.Table
	cooldown cooldown.Gate
	boardMax int
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Engine)

func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		e.cooldown = cooldown.New(d)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithLeaderboardSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.boardMax = n
		}
	}
}

func NewEngine(store Store, gate AccessGate, sampler Sampler, table *rarity.Table, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		gate:     gate,
		sampler:  sampler,
		table:    table,
		cooldown: cooldown.New(cooldown.DefaultDuration),
		boardMax: DefaultLeaderboardSize,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.With(slog.String("component", "economy")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cooldown returns the configured draw interval.
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown.Duration
}

// Prices returns the rarity table in display order.
func (e *Engine) Prices() []rarity.Info {
	return e.table.All()
}

// Register records the user on first contact. Repeated calls are no-ops.
func (e *Engine) Register(ctx context.Context, ref UserRef) error {
	if err := e.store.UpsertUser(ctx, ref.ID, ref.Handle); err != nil {
		return e.storageErr("upsert user", ref.ID, err)
	}
	return nil
}

// CheckAccess runs the access gate. Gate failures count as a denial.
func (e *Engine) CheckAccess(ctx context.Context, userID int64) bool {
	ok, err := e.gate.IsSubscribed(ctx, userID)
	if err != nil {
		e.logger.Warn("Access check failed, denying",
			slog.String("type", "sys"),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return false
	}
	return ok
}

// Draw gives the user a new random card if the access gate and the cooldown
// allow it. Nothing is persisted when sampling fails.
func (e *Engine) Draw(ctx context.Context, ref UserRef) (*DrawResult, error) {
	if err := e.Register(ctx, ref); err != nil {
		return nil, err
	}

	if !e.CheckAccess(ctx, ref.ID) {
		metrics.RecordDrawRejected("access")
		return nil, ErrAccessDenied
	}

	user, err := e.store.GetUser(ctx, ref.ID)
	if err != nil {
		return nil, e.storageErr("get user", ref.ID, err)
	}

	now := e.now()
	if decision := e.cooldown.Check(user.LastDrawAt, now); !decision.Allowed {
		metrics.RecordDrawRejected("cooldown")
		return nil, &CooldownError{Remaining: decision.Remaining, NextAt: decision.NextAt}
	}

	draw, err := e.sampler.Sample(ctx)
	if err != nil {
		metrics.RecordDrawRejected("asset")
		e.logger.Warn("No card asset available for draw",
			slog.String("type", "sys"),
			slog.Int64("user_id", ref.ID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrAssetUnavailable, err)
	}

	card := NewCard{UserID: ref.ID, Name: draw.Name, Rarity: draw.Tier, Path: draw.Path}
	id, err := e.store.RecordDraw(ctx, card, now, e.cooldown.Cutoff(now))
	switch {
	case errors.Is(err, ErrCooldownActive):
		// another draw for this user committed between the check and the stamp
		metrics.RecordDrawRejected("cooldown")
		return nil, e.currentCooldown(ctx, ref.ID)
	case errors.Is(err, ErrOrphanCard):
		e.logger.Error("Card insert hit a missing user row",
			slog.String("type", "error"),
			slog.Int64("user_id", ref.ID),
			slog.Any("error", err))
		return nil, err
	case err != nil:
		return nil, e.storageErr("record draw", ref.ID, err)
	}

	metrics.RecordDraw(string(draw.Tier))
	e.logger.Info("Card drawn",
		slog.String("type", "sys"),
		slog.Int64("user_id", ref.ID),
		slog.Int64("card_id", id),
		slog.String("rarity", string(draw.Tier)))

	return &DrawResult{Card: CardView{
		ID:         id,
		Name:       draw.Name,
		Rarity:     draw.Tier,
		Label:      e.table.Label(draw.Tier),
		Price:      e.table.Price(draw.Tier),
		Path:       draw.Path,
		ObtainedAt: now,
	}}, nil
}

func (e *Engine) currentCooldown(ctx context.Context, userID int64) error {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return e.storageErr("get user", userID, err)
	}
	decision := e.cooldown.Check(user.LastDrawAt, e.now())
	return &CooldownError{Remaining: decision.Remaining, NextAt: decision.NextAt}
}

// SellOne sells a single unsold card owned by userID.
func (e *Engine) SellOne(ctx context.Context, userID, cardID int64) (*SaleResult, error) {
	sale, err := e.store.SellCard(ctx, cardID, userID, e.table)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("card %d: %w", cardID, ErrNotFound)
	}
	if err != nil {
		return nil, e.storageErr("sell card", userID, err)
	}

	metrics.RecordSale(string(sale.Rarity), sale.Price)
	return &SaleResult{
		CardID:    sale.CardID,
		Rarity:    sale.Rarity,
		Label:     e.table.Label(sale.Rarity),
		Price:     sale.Price,
		Balance:   sale.Balance,
		Remaining: sale.Remaining,
	}, nil
}

// SellAll sells every card that was unsold when the call started. Cards that
// another request sold in the meantime are skipped and not counted. On a
// storage failure the partial result is returned together with the error.
func (e *Engine) SellAll(ctx context.Context, userID int64) (*SellAllResult, error) {
	cards, err := e.store.ListCards(ctx, userID, true)
	if err != nil {
		return nil, e.storageErr("list cards", userID, err)
	}

	res := &SellAllResult{}
	for _, card := range cards {
		sale, err := e.store.SellCard(ctx, card.ID, userID, e.table)
		if errors.Is(err, ErrNotFound) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, e.storageErr("sell card", userID, err)
		}
		metrics.RecordSale(string(sale.Rarity), sale.Price)
		res.Sold++
		res.Total += sale.Price
		res.Balance = sale.Balance
	}

	if res.Sold == 0 {
		user, err := e.store.GetUser(ctx, userID)
		switch {
		case errors.Is(err, ErrUserNotFound):
		case err != nil:
			return res, e.storageErr("get user", userID, err)
		default:
			res.Balance = user.Balance
		}
	}

	e.logger.Info("Sold all cards",
		slog.String("type", "sys"),
		slog.Int64("user_id", userID),
		slog.Int("sold", res.Sold),
		slog.Int("skipped", res.Skipped),
		slog.Int64("total", res.Total))

	return res, nil
}

// Inventory lists the user's unsold cards, newest first. A non-empty query
// keeps only cards whose name fuzzy-matches it, best match first.
func (e *Engine) Inventory(ctx context.Context, userID int64, query string) ([]CardView, error) {
	cards, err := e.store.ListCards(ctx, userID, true)
	if err != nil {
		return nil, e.storageErr("list cards", userID, err)
	}

	if query != "" {
		names := make([]string, len(cards))
		for i, c := range cards {
			names[i] = c.Name
		}
		matches := fuzzy.Find(query, names)
		filtered := make([]Card, 0, len(matches))
		for _, m := range matches {
			filtered = append(filtered, cards[m.Index])
		}
		cards = filtered
	}

	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, e.view(c))
	}
	return views, nil
}

// Leaderboard ranks users by balance, then by unsold card count.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = e.boardMax
	}
	entries, err := e.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, e.storageErr("leaderboard", 0, err)
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, LeaderboardRow{
			Rank:      i + 1,
			UserID:    entry.UserID,
			Handle:    entry.Handle,
			Balance:   entry.Balance,
			CardCount: entry.CardCount,
		})
	}
	return rows, nil
}

// Profile returns balance, unsold count and cooldown state, registering the
// user if needed.
func (e *Engine) Profile(ctx context.Context, ref UserRef) (*Profile, error) {
	if err := e.Register(ctx, ref); err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, ref.ID)
	if err != nil {
		return nil, e.storageErr("get user", ref.ID, err)
	}
	unsold, err := e.store.CountUnsold(ctx, ref.ID)
	if err != nil {
		return nil, e.storageErr("count unsold", ref.ID, err)
	}

	return &Profile{
		UserID:   user.ID,
		Handle:   user.Handle,
		Balance:  user.Balance,
		Unsold:   unsold,
		Cooldown: e.cooldown.Check(user.LastDrawAt, e.now()),
	}, nil
}

func (e *Engine) view(c Card) CardView {
	return CardView{
		ID:         c.ID,
		Name:       c.Name,
		Rarity:     c.Rarity,
		Label:      e.table.Label(c.Rarity),
		Price:      e.table.Price(c.Rarity),
		Path:       c.Path,
		ObtainedAt: c.ObtainedAt,
	}
}

func (e *Engine) storageErr(op string, userID int64, err error) error {
	e.logger.Error("Storage operation failed",
		slog.String("type", "db"),
		slog.String("operation", op),
		slog.Int64("user_id", userID),
		slog.Any("error", err))
	return &StorageError{Op: op, Err: err}
}
