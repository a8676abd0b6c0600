package economy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/economy/economytest"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

func TestDecodeMeta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  economy.Source
		raw     string
		want    economy.Meta
		wantErr bool
	}{
		{
			name:   "спин",
			source: economy.SourceSpin,
			raw:    `{"mode":"premium","outcome":"+25","outcomeType":"coins","value":25,"ticketUsed":true}`,
			want:   economy.SpinMeta{Mode: "premium", Outcome: "+25", OutcomeType: "coins", Value: 25, TicketUsed: true},
		},
		{
			name:   "корректировка",
			source: economy.SourceAdjust,
			raw:    `{"adminId":7,"reason":"возврат"}`,
			want:   economy.AdjustMeta{AdminID: 7, Reason: "возврат"},
		},
		{name: "пустая meta", source: economy.SourceAdjust, raw: ``, want: economy.AdjustMeta{}},
		{name: "неизвестный источник", source: "lottery", raw: `{}`, wantErr: true},
		{name: "битый json", source: economy.SourceSpin, raw: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := economy.DecodeMeta(tt.source, []byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeMeta: want error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMeta: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DecodeMeta = %#v, want %#v", got, tt.want)
			}
			if got.Source() != tt.source {
				t.Fatalf("Source = %q, want %q", got.Source(), tt.source)
			}
		})
	}
}

func TestNewEntryTakesSourceFromMeta(t *testing.T) {
	t.Parallel()
	e := economy.NewEntry(1, -3, 0, 0, economy.BurnMeta{CardName: "Green Stack"})
	if e.Source != economy.SourceBurn {
		t.Fatalf("Source = %q", e.Source)
	}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["source"] != "burn" {
		t.Fatalf("json = %s", b)
	}
	if _, ok := out["meta"].(map[string]any); !ok {
		t.Fatalf("meta is not an object: %s", b)
	}
}

func TestInTxRollsBack(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	u := economytest.NewUser(t, store, nil)
	boom := errors.New("boom")

	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		locked, err := tx.LockUser(ctx, u.ID)
		if err != nil {
			return err
		}
		locked.Coins = 500
		if err := tx.SaveUser(ctx, locked); err != nil {
			return err
		}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, 500, 0, 0, economy.AdjustMeta{})); err != nil {
			return err
		}
		if err := tx.InsertCard(ctx, &economy.Card{UserID: u.ID, Name: "x", Rarity: economy.Common}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v", err)
	}

	got, _ := store.GetUser(context.Background(), u.ID)
	if got.Coins != 0 {
		t.Fatalf("coins = %d after rollback", got.Coins)
	}
	cards, _ := store.ListCards(context.Background(), u.ID)
	entries, _ := store.ListLedger(context.Background(), economy.LedgerFilter{UserID: u.ID})
	if len(cards) != 0 || len(entries) != 0 {
		t.Fatalf("cards=%d entries=%d after rollback", len(cards), len(entries))
	}
}

func TestSaveUserRejectsNegativeBalance(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	u := economytest.NewUser(t, store, nil)

	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		locked, err := tx.LockUser(ctx, u.ID)
		if err != nil {
			return err
		}
		locked.Coins = -1
		return tx.SaveUser(ctx, locked)
	})
	if !errors.Is(err, common.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestLockUserSerializesUpdates(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	svc := economy.NewService(store)
	u := economytest.NewUser(t, store, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdjustCoins(context.Background(), 1, u.ID, 2, ""); err != nil {
				t.Errorf("AdjustCoins: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetUser(context.Background(), u.ID)
	if got.Coins != 2*n {
		t.Fatalf("coins = %d, want %d", got.Coins, 2*n)
	}
	economytest.AssertLedgerMatches(t, store, u)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()

	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		return tx.CreateUser(ctx, &economy.User{Email: "a@example.com"})
	})
	if err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	err = store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		return tx.CreateUser(ctx, &economy.User{Email: " A@Example.com"})
	})
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("duplicate CreateUser err = %v", err)
	}
}

func TestClaimOrderOnce(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	u := economytest.NewUser(t, store, nil)

	claim := func() bool {
		var ok bool
		err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
			var err error
			ok, err = tx.ClaimOrder(ctx, "1001", u.ID)
			return err
		})
		if err != nil {
			t.Fatalf("ClaimOrder: %v", err)
		}
		return ok
	}
	if !claim() {
		t.Fatalf("first claim = false")
	}
	if claim() {
		t.Fatalf("second claim = true")
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	svc := economy.NewService(store)
	ctx := context.Background()

	clean := economytest.NewUser(t, store, nil)
	if _, err := svc.AdjustCoins(ctx, 1, clean.ID, 40, ""); err != nil {
		t.Fatalf("AdjustCoins: %v", err)
	}
	// баланс без записи в журнале
	dirty := economytest.NewUser(t, store, func(u *economy.User) { u.Coins = 10; u.Boxes = 1 })

	mismatches, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("mismatches = %+v", mismatches)
	}
	m := mismatches[0]
	if m.UserID != dirty.ID || m.Coins != 10 || m.LedgerCoins != 0 || m.Boxes != 1 || m.LedgerBoxes != 0 {
		t.Fatalf("mismatch = %+v", m)
	}
}

func TestReconcileDuringConcurrentWrites(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	svc := economy.NewService(store)
	ctx := context.Background()
	u := economytest.NewUser(t, store, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			if _, err := svc.AdjustCoins(ctx, 1, u.ID, 1, ""); err != nil {
				t.Errorf("AdjustCoins: %v", err)
				return
			}
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		mismatches, err := svc.Reconcile(ctx)
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if len(mismatches) != 0 {
			t.Fatalf("false mismatch during writes: %+v", mismatches)
		}
	}
}

func TestTxLedgerTotalsSeesStagedEntries(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	u := economytest.NewUser(t, store, nil)

	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, 7, 1, 0, economy.AdjustMeta{AdminID: 1})); err != nil {
			return err
		}
		coins, boxes, _, err := tx.LedgerTotals(ctx, u.ID)
		if err != nil {
			return err
		}
		if coins != 7 || boxes != 1 {
			t.Errorf("staged totals = %d/%d, want 7/1", coins, boxes)
		}
		return errors.New("откат")
	})
	if err == nil {
		t.Fatalf("InTx must return the rollback error")
	}
	if coins, _, _, _ := store.LedgerTotals(context.Background(), u.ID); coins != 0 {
		t.Fatalf("rolled back entry is visible: coins = %d", coins)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	svc := economy.NewService(store)
	ctx := context.Background()
	u := economytest.NewUser(t, store, nil)

	for _, d := range []int64{5, 7, -2} {
		if _, err := svc.AdjustCoins(ctx, 1, u.ID, d, ""); err != nil {
			t.Fatalf("AdjustCoins(%d): %v", d, err)
		}
	}
	list, err := svc.History(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(list) != 3 || list[0].Coins != -2 || list[2].Coins != 5 {
		t.Fatalf("history = %+v", list)
	}
}

func TestTransactionsHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	store := economy.NewMemoryStore()
	svc := economy.NewService(store)
	h := economy.NewHandler(svc)
	u := economytest.NewUser(t, store, nil)
	if _, err := svc.AdjustCoins(context.Background(), 1, u.ID, 12, "бонус"); err != nil {
		t.Fatalf("AdjustCoins: %v", err)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	middleware.SetClaims(c, &security.Claims{UserID: u.ID})
	h.Transactions(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Transactions []struct {
			Coins  int64          `json:"coins"`
			Source string         `json:"source"`
			Meta   map[string]any `json:"meta"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Transactions) != 1 || resp.Transactions[0].Source != "admin-adjust" || resp.Transactions[0].Meta["reason"] != "бонус" {
		t.Fatalf("resp = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	middleware.SetClaims(c, &security.Claims{UserID: 9999})
	h.Balance(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("balance(unknown) status = %d", rec.Code)
	}
}
