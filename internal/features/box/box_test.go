package box

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/economy/economytest"
	"serotonyl.ru/loyalty-backend/internal/features/gameconfig"
	"serotonyl.ru/loyalty-backend/internal/random"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// staticProvider отдаёт заданные пулы вместо опубликованных.
type staticProvider struct {
	box *gameconfig.BoxConfig
}

func (p staticProvider) Spin(context.Context) *gameconfig.SpinConfig {
	return gameconfig.BuiltinDefaults().Spin.Clone()
}
func (p staticProvider) Box(context.Context) *gameconfig.BoxConfig { return p.box.Clone() }
func (p staticProvider) DefaultSpin() *gameconfig.SpinConfig {
	return gameconfig.BuiltinDefaults().Spin.Clone()
}
func (p staticProvider) DefaultBox() *gameconfig.BoxConfig {
	return gameconfig.BuiltinDefaults().Box.Clone()
}

func onlyPool(pool gameconfig.RarityPool) staticProvider {
	return staticProvider{box: &gameconfig.BoxConfig{Pools: []gameconfig.RarityPool{pool}}}
}

func TestOpenWithoutBoxes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	svc := NewService(store, gameconfig.NewCachedProvider(nil, nil), random.NewSeededSource(1))

	u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 12 })

	_, err := svc.Open(ctx, u.ID)
	if !errors.Is(err, common.ErrNoInventory) {
		t.Fatalf("got %v, want ErrNoInventory", err)
	}

	after, _ := store.GetUser(ctx, u.ID)
	if after.Coins != 12 || after.Boxes != 0 || after.BoxesOpened != 0 {
		t.Fatalf("user changed: %+v", after)
	}
	if owned, _ := store.ListCards(ctx, u.ID); len(owned) != 0 {
		t.Fatalf("card minted on failure")
	}
	if entries, _ := store.ListLedger(ctx, economy.LedgerFilter{UserID: u.ID}); len(entries) != 0 {
		t.Fatalf("ledger written on failure")
	}
}

func TestOpenUnknownUser(t *testing.T) {
	t.Parallel()
	svc := NewService(economy.NewMemoryStore(), gameconfig.NewCachedProvider(nil, nil), nil)
	if _, err := svc.Open(context.Background(), 404); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}

func TestOpenPaysRarityReward(t *testing.T) {
	t.Parallel()

	for _, rarity := range cards.Ladder {
		t.Run(string(rarity), func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := economy.NewMemoryStore()
			svc := NewService(store, onlyPool(gameconfig.RarityPool{Rarity: rarity, Weight: 1}), random.NewSeededSource(3))

			u := economytest.NewUser(t, store, func(u *economy.User) { u.Boxes = 2; u.Coins = 5 })

			res, err := svc.Open(ctx, u.ID)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			want := cards.RarityValue[rarity]
			if res.Card.Rarity != rarity || res.RewardCoins != want {
				t.Fatalf("got %s/%d, want %s/%d", res.Card.Rarity, res.RewardCoins, rarity, want)
			}
			if res.BoxesLeft != 1 || res.TotalCoins != 5+want {
				t.Fatalf("got boxesLeft=%d total=%d", res.BoxesLeft, res.TotalCoins)
			}
			if _, ok := cards.ByID(res.Card.CatalogID); !ok {
				t.Fatalf("card %d is not in catalog", res.Card.CatalogID)
			}

			after, _ := store.GetUser(ctx, u.ID)
			if after.BoxesOpened != 1 {
				t.Fatalf("boxesOpened: got %d, want 1", after.BoxesOpened)
			}
			economytest.AssertLedgerMatches(t, store, u)
		})
	}
}

func TestOpenRespectsCardIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	provider := onlyPool(gameconfig.RarityPool{Rarity: economy.Legendary, Weight: 1, CardIDs: []int{33}})
	svc := NewService(store, provider, random.NewSeededSource(9))

	u := economytest.NewUser(t, store, func(u *economy.User) { u.Boxes = 10 })
	for i := 0; i < 10; i++ {
		res, err := svc.Open(ctx, u.ID)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if res.Card.CatalogID != 33 {
			t.Fatalf("got card %d, want 33", res.Card.CatalogID)
		}
	}
}

func TestOpenFallsBackOnDegeneratePools(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	provider := onlyPool(gameconfig.RarityPool{Rarity: economy.Common, Weight: 0})
	svc := NewService(store, provider, random.NewSeededSource(5))

	u := economytest.NewUser(t, store, func(u *economy.User) { u.Boxes = 1 })
	if _, err := svc.Open(ctx, u.ID); err != nil {
		t.Fatalf("Open: %v, want fallback to defaults", err)
	}
}

func TestOpenHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	store := economy.NewMemoryStore()
	svc := NewService(store, onlyPool(gameconfig.RarityPool{Rarity: economy.Rare, Weight: 1}), random.NewSeededSource(2))
	u := economytest.NewUser(t, store, func(u *economy.User) { u.Boxes = 1 })
	h := NewHandler(svc)

	open := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/box/open", nil)
		middleware.SetClaims(c, &security.Claims{UserID: u.ID, Email: u.Email, Role: "user"})
		h.Open(c)
		return w
	}

	w := open()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Success     bool          `json:"success"`
		Card        *economy.Card `json:"card"`
		BoxesLeft   int64         `json:"boxesLeft"`
		RewardCoins int64         `json:"rewardCoins"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Card == nil || body.Card.Rarity != economy.Rare || body.RewardCoins != 3 || body.BoxesLeft != 0 {
		t.Fatalf("unexpected body: %+v", body)
	}

	if w := open(); w.Code != http.StatusBadRequest {
		t.Fatalf("second open: expected 400, got %d", w.Code)
	}
}
