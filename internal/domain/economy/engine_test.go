package economy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/economy/economytest"
	"github.com/cardbox-bot/cardbox/internal/domain/economy/mock"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *economytest.MemoryStore
	gate    *mock.MockAccessGate
	sampler *mock.MockSampler
	clock   *clock
	engine  *economy.Engine
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:   economytest.NewMemoryStore(),
		gate:    mock.NewMockAccessGate(ctrl),
		sampler: mock.NewMockSampler(ctrl),
		clock:   &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.engine = economy.NewEngine(f.store, f.gate, f.sampler, rarity.DefaultTable(),
		economy.WithClock(f.clock.Now))
	return f
}

var alice = economy.UserRef{ID: 42, Handle: "alice"}

func commonDraw() rarity.Draw {
	return rarity.Draw{Tier: rarity.Common, Name: "cat", Path: "Обычный/cat.png"}
}

func TestEngine_DrawThenSell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(true, nil)
	f.sampler.EXPECT().Sample(gomock.Any()).Return(commonDraw(), nil)

	drawn, err := f.engine.Draw(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "cat", drawn.Card.Name)
	assert.Equal(t, rarity.Common, drawn.Card.Rarity)
	assert.Equal(t, "Обычный", drawn.Card.Label)
	assert.Equal(t, int64(10), drawn.Card.Price)

	sale, err := f.engine.SellOne(ctx, alice.ID, drawn.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sale.Price)
	assert.Equal(t, int64(10), sale.Balance)
	assert.Equal(t, 0, sale.Remaining)

	profile, err := f.engine.Profile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(10), profile.Balance)
	assert.Equal(t, 0, profile.Unsold)
	assert.False(t, profile.Cooldown.Allowed)
}

func TestEngine_DrawCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(true, nil).Times(3)
	f.sampler.EXPECT().Sample(gomock.Any()).Return(commonDraw(), nil).Times(2)

	_, err := f.engine.Draw(ctx, alice)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.engine.Draw(ctx, alice)
	require.ErrorIs(t, err, economy.ErrCooldownActive)
	remaining, ok := economy.RemainingCooldown(err)
	require.True(t, ok)
	assert.Equal(t, 3300*time.Second, remaining)
	assert.Equal(t, economy.KindCooldown, economy.KindOf(err))

	f.clock.Advance(55 * time.Minute)
	_, err = f.engine.Draw(ctx, alice)
	require.NoError(t, err)

	cards, err := f.engine.Inventory(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestEngine_DrawAccessDenied(t *testing.T) {
	tests := []struct {
		name    string
		allowed bool
		gateErr error
	}{
		{name: "not subscribed"},
		{name: "gate failure", gateErr: errors.New("telegram unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(tt.allowed, tt.gateErr)

			_, err := f.engine.Draw(ctx, alice)
			require.ErrorIs(t, err, economy.ErrAccessDenied)
			assert.Equal(t, economy.KindAccessDenied, economy.KindOf(err))

			user, err := f.store.GetUser(ctx, alice.ID)
			require.NoError(t, err, "user is registered even when denied")
			assert.True(t, user.LastDrawAt.IsZero())
		})
	}
}

func TestEngine_DrawAssetUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(true, nil).Times(2)
	f.sampler.EXPECT().Sample(gomock.Any()).Return(rarity.Draw{}, rarity.ErrNoAssets)
	f.sampler.EXPECT().Sample(gomock.Any()).Return(commonDraw(), nil)

	_, err := f.engine.Draw(ctx, alice)
	require.ErrorIs(t, err, economy.ErrAssetUnavailable)
	require.ErrorIs(t, err, rarity.ErrNoAssets)
	assert.Equal(t, economy.KindAssetUnavailable, economy.KindOf(err))

	user, err := f.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, user.LastDrawAt.IsZero(), "failed draw must not stamp the cooldown")

	unsold, err := f.store.CountUnsold(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unsold)

	// retry immediately is allowed
	_, err = f.engine.Draw(ctx, alice)
	require.NoError(t, err)
}

func TestEngine_DrawLosesStampRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.BeforeRecord = func(u *economy.User) {
		u.LastDrawAt = f.clock.Now()
	}
	f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(true, nil)
	f.sampler.EXPECT().Sample(gomock.Any()).Return(commonDraw(), nil)

	_, err := f.engine.Draw(ctx, alice)
	require.ErrorIs(t, err, economy.ErrCooldownActive)
	remaining, ok := economy.RemainingCooldown(err)
	require.True(t, ok)
	assert.Equal(t, time.Hour, remaining)

	unsold, err := f.store.CountUnsold(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unsold)
}

func TestEngine_DrawStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.GetUserErr = errors.New("connection reset")

	f.gate.EXPECT().IsSubscribed(gomock.Any(), alice.ID).Return(true, nil)

	_, err := f.engine.Draw(context.Background(), alice)
	require.Error(t, err)
	var storageErr *economy.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "get user", storageErr.Op)
	assert.Equal(t, economy.KindStorage, economy.KindOf(err))
}

func TestEngine_SellOneNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bobCard := f.store.Seed(7, rarity.Rare, "dog")
	aliceCard := f.store.Seed(alice.ID, rarity.Rare, "fox")

	tests := []struct {
		name   string
		cardID int64
	}{
		{name: "missing card", cardID: 999},
		{name: "foreign card", cardID: bobCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SellOne(ctx, alice.ID, tt.cardID)
			require.ErrorIs(t, err, economy.ErrNotFound)
			assert.Equal(t, economy.KindNotFound, economy.KindOf(err))
		})
	}

	_, err := f.engine.SellOne(ctx, alice.ID, aliceCard)
	require.NoError(t, err)
	_, err = f.engine.SellOne(ctx, alice.ID, aliceCard)
	require.ErrorIs(t, err, economy.ErrNotFound, "already sold")

	bob, err := f.store.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, bob.Balance)
}

func TestEngine_SellOneConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cardID := f.store.Seed(alice.ID, rarity.Secret, "dragon")

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		notFound int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.SellOne(ctx, alice.ID, cardID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, economy.ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, workers-1, notFound)

	user, err := f.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.Balance)
}

func TestEngine_SellAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Seed(alice.ID, rarity.Common, "cat")
	f.store.Seed(alice.ID, rarity.Rare, "dog")
	f.store.Seed(alice.ID, rarity.Secret, "dragon")
	f.store.Seed(7, rarity.Legendary, "phoenix")

	res, err := f.engine.SellAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sold)
	assert.Equal(t, int64(125), res.Total)
	assert.Equal(t, int64(125), res.Balance)

	again, err := f.engine.SellAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Sold)
	assert.Zero(t, again.Total)
	assert.Equal(t, int64(125), again.Balance)

	unsold, err := f.store.CountUnsold(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, unsold, "other users are untouched")
}

func TestEngine_SellAllSkipsCardsSoldMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat := f.store.Seed(alice.ID, rarity.Common, "cat")
	dog := f.store.Seed(alice.ID, rarity.Rare, "dog")
	dragon := f.store.Seed(alice.ID, rarity.Secret, "dragon")

	// a second request sells the dragon once the batch has its snapshot
	raced := false
	f.store.BeforeSell = func(int64) error {
		if !raced {
			raced = true
			_, err := f.engine.SellOne(ctx, alice.ID, dragon)
			require.NoError(t, err)
		}
		return nil
	}

	res, err := f.engine.SellAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sold)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, int64(25), res.Total, "only cat and dog count")
	assert.Equal(t, int64(125), res.Balance, "dragon credited once, by the other request")

	user, err := f.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(125), user.Balance)

	_, err = f.engine.SellOne(ctx, alice.ID, cat)
	assert.ErrorIs(t, err, economy.ErrNotFound)
	_, err = f.engine.SellOne(ctx, alice.ID, dog)
	assert.ErrorIs(t, err, economy.ErrNotFound)
}

func TestEngine_SellAllStorageFailureKeepsPartialResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Seed(alice.ID, rarity.Common, "cat")
	dog := f.store.Seed(alice.ID, rarity.Rare, "dog")
	f.store.Seed(alice.ID, rarity.Secret, "dragon")

	boom := errors.New("connection reset")
	f.store.BeforeSell = func(cardID int64) error {
		if cardID == dog {
			return boom
		}
		return nil
	}

	// newest first: dragon, then dog fails, cat is never attempted
	res, err := f.engine.SellAll(ctx, alice.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, economy.KindStorage, economy.KindOf(err))

	var storageErr *economy.StorageError
	require.ErrorAs(t, err, &storageErr)

	require.NotNil(t, res)
	assert.Equal(t, 1, res.Sold)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, int64(100), res.Total)
	assert.Equal(t, int64(100), res.Balance)

	unsold, err := f.store.CountUnsold(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unsold)
}

func TestEngine_SellAllUnknownUser(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.SellAll(context.Background(), 1234)
	require.NoError(t, err)
	assert.Zero(t, res.Sold)
	assert.Zero(t, res.Balance)
}

func TestEngine_Inventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Seed(alice.ID, rarity.Common, "red_panda")
	f.store.Seed(alice.ID, rarity.Mythic, "blue_whale")
	sold := f.store.Seed(alice.ID, rarity.Rare, "red_fox")
	_, err := f.engine.SellOne(ctx, alice.ID, sold)
	require.NoError(t, err)

	all, err := f.engine.Inventory(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "blue_whale", all[0].Name, "newest first")
	assert.Equal(t, "Мифик", all[0].Label)
	assert.Equal(t, int64(30), all[0].Price)

	filtered, err := f.engine.Inventory(ctx, alice.ID, "panda")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "red_panda", filtered[0].Name)

	empty, err := f.engine.Inventory(ctx, 999, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEngine_Leaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Register(ctx, economy.UserRef{ID: 1, Handle: "ann"}))
	require.NoError(t, f.engine.Register(ctx, economy.UserRef{ID: 2}))
	require.NoError(t, f.engine.Register(ctx, economy.UserRef{ID: 3, Handle: "cid"}))

	f.store.SetBalance(1, 50)
	f.store.SetBalance(2, 100)
	f.store.SetBalance(3, 50)
	f.store.Seed(3, rarity.Common, "cat")

	rows, err := f.engine.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, int64(2), rows[0].UserID)
	assert.Equal(t, "User_2", rows[0].DisplayHandle())
	assert.Equal(t, int64(3), rows[1].UserID, "equal balance ranks by card count")
	assert.Equal(t, "cid", rows[1].DisplayHandle())
	assert.Equal(t, 3, rows[2].Rank)

	top, err := f.engine.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestEngine_Prices(t *testing.T) {
	f := newFixture(t)
	infos := f.engine.Prices()
	require.Len(t, infos, len(rarity.Tiers))
	assert.Equal(t, rarity.Common, infos[0].Tier)
	assert.Equal(t, time.Hour, f.engine.Cooldown())
}
