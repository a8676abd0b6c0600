package rewards

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/economy/economytest"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

func TestRedeemInsufficientBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	svc := NewService(store)

	u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 50 })
	r := economytest.NewReward(t, store, &economy.Reward{Title: "Hoodie", PriceCoins: 100, Stock: 5, Active: true})

	_, err := svc.Redeem(ctx, u.ID, r.ID)
	if !errors.Is(err, common.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}

	after, _ := store.GetUser(ctx, u.ID)
	if after.Coins != 50 {
		t.Fatalf("coins: got %d, want 50", after.Coins)
	}
	stock, _ := store.GetReward(ctx, r.ID)
	if stock.Stock != 5 {
		t.Fatalf("stock: got %d, want 5", stock.Stock)
	}
	if hist, _ := store.ListRedemptions(ctx, u.ID); len(hist) != 0 {
		t.Fatalf("redemption recorded on failure")
	}
}

func TestRedeemValidationOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		coins  int64
		reward economy.Reward
		want   error
	}{
		{"inactive beats stock", 0, economy.Reward{Title: "A", PriceCoins: 10, Stock: 0, Active: false}, common.ErrUnavailable},
		{"stock beats balance", 0, economy.Reward{Title: "B", PriceCoins: 10, Stock: 0, Active: true}, common.ErrOutOfStock},
		{"balance", 5, economy.Reward{Title: "C", PriceCoins: 10, Stock: 1, Active: true}, common.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := economy.NewMemoryStore()
			svc := NewService(store)
			u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = tt.coins })
			reward := tt.reward
			r := economytest.NewReward(t, store, &reward)

			if _, err := svc.Redeem(context.Background(), u.ID, r.ID); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRedeemUnknownReward(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	u := economytest.NewUser(t, store, nil)
	if _, err := NewService(store).Redeem(context.Background(), u.ID, 77); !common.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestRedeemEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ         economy.RewardType
		stock       int64
		wantBoxes   int64
		wantTickets int64
		wantStock   int64
		wantCode    bool
	}{
		{economy.RewardMysteryBox, 3, 1, 0, 2, false},
		{economy.RewardSpinTicket, economy.UnlimitedStock, 0, 1, economy.UnlimitedStock, false},
		{economy.RewardCoupon, 1, 0, 0, 0, true},
		{economy.RewardItem, 10, 0, 0, 9, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := economy.NewMemoryStore()
			svc := NewService(store)

			u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 120 })
			r := economytest.NewReward(t, store, &economy.Reward{Title: "R", PriceCoins: 100, Type: tt.typ, Stock: tt.stock, Active: true})

			res, err := svc.Redeem(ctx, u.ID, r.ID)
			if err != nil {
				t.Fatalf("Redeem: %v", err)
			}
			if res.Coins != 20 || res.Boxes != tt.wantBoxes || res.SpinTickets != tt.wantTickets {
				t.Fatalf("got coins=%d boxes=%d tickets=%d", res.Coins, res.Boxes, res.SpinTickets)
			}
			if (res.Redemption.Code != "") != tt.wantCode {
				t.Fatalf("coupon code: got %q", res.Redemption.Code)
			}
			after, _ := store.GetReward(ctx, r.ID)
			if after.Stock != tt.wantStock {
				t.Fatalf("stock: got %d, want %d", after.Stock, tt.wantStock)
			}

			hist, _ := svc.History(ctx, u.ID)
			if len(hist) != 1 || hist[0].CoinsSpent != 100 || hist[0].Status != economy.RedemptionCompleted {
				t.Fatalf("history: got %+v", hist)
			}
			economytest.AssertLedgerMatches(t, store, u)
		})
	}
}

func TestConcurrentRedeemSingleStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	svc := NewService(store)

	r := economytest.NewReward(t, store, &economy.Reward{Title: "Limited", PriceCoins: 10, Stock: 1, Active: true})
	users := make([]*economy.User, 100)
	for i := range users {
		users[i] = economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 10 })
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		ok, soldOut int
		other       []error
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, userID, r.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrOutOfStock):
				soldOut++
			default:
				other = append(other, err)
			}
		}(u.ID)
	}
	wg.Wait()

	if ok != 1 || soldOut != 99 || len(other) != 0 {
		t.Fatalf("got ok=%d outOfStock=%d other=%v, want 1/99/none", ok, soldOut, other)
	}
	after, _ := store.GetReward(ctx, r.ID)
	if after.Stock != 0 {
		t.Fatalf("final stock: got %d, want 0", after.Stock)
	}
	for _, u := range users {
		economytest.AssertLedgerMatches(t, store, u)
	}
}

func TestConcurrentRedeemSameUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := economy.NewMemoryStore()
	svc := NewService(store)

	u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 55 })
	r := economytest.NewReward(t, store, &economy.Reward{Title: "Sticker", PriceCoins: 10, Stock: economy.UnlimitedStock, Active: true})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Redeem(ctx, u.ID, r.ID)
		}()
	}
	wg.Wait()

	after, _ := store.GetUser(ctx, u.ID)
	if after.Coins != 5 {
		t.Fatalf("coins: got %d, want 5 (five redemptions)", after.Coins)
	}
	economytest.AssertLedgerMatches(t, store, u)
}

func TestAdminCreateValidation(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, &economy.Reward{Title: " ", PriceCoins: 10}); !errors.Is(err, common.ErrInvalidPayload) {
		t.Fatalf("empty title: got %v", err)
	}
	if _, err := svc.Create(ctx, 1, &economy.Reward{Title: "X", PriceCoins: 0}); !errors.Is(err, common.ErrInvalidAmount) {
		t.Fatalf("zero price: got %v", err)
	}
	if _, err := svc.Create(ctx, 1, &economy.Reward{Title: "X", PriceCoins: 5, Stock: -2}); !errors.Is(err, common.ErrInvalidAmount) {
		t.Fatalf("stock -2: got %v", err)
	}

	created, err := svc.Create(ctx, 1, &economy.Reward{Title: "X", PriceCoins: 5, Stock: -1, Active: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Type != economy.RewardItem {
		t.Fatalf("default type: got %q", created.Type)
	}
	audit, _ := store.ListAudit(ctx, 10)
	if len(audit) != 1 || audit[0].Action != "reward.create" {
		t.Fatalf("audit: got %+v", audit)
	}
}

func TestRedeemHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	store := economy.NewMemoryStore()
	h := NewHandler(NewService(store))
	u := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 50 })
	r := economytest.NewReward(t, store, &economy.Reward{Title: "Cap", PriceCoins: 100, Stock: 1, Active: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/rewards/redeem",
		strings.NewReader(`{"rewardId":`+strconv.FormatInt(r.ID, 10)+`}`))
	c.Request.Header.Set("Content-Type", "application/json")
	middleware.SetClaims(c, &security.Claims{UserID: u.ID})

	h.Redeem(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), common.ErrInsufficientBalance.Error()) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
