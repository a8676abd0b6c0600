package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

func newService(t *testing.T) (*Service, *economy.MemoryStore) {
	t.Helper()
	store := economy.NewMemoryStore()
	return NewService(store, security.NewIssuer("test-secret", 7*24*time.Hour)), store
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "  Alice@Example.COM ", "pw123456")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Email != "alice@example.com" || sess.Token == "" {
		t.Fatalf("session = %+v", sess)
	}

	claims, err := svc.issuer.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != sess.User.ID || claims.Role != string(economy.RoleUser) {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "pw123456"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "nope"); !errors.Is(err, common.ErrWrongPassword) {
		t.Fatalf("Login(wrong) err = %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "pw123456"); !errors.Is(err, common.ErrWrongPassword) {
		t.Fatalf("Login(unknown) err = %v", err)
	}
}

func TestRegisterTwiceIsRejected(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "first"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "BOB@example.com", "second"); !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("second Register err = %v, want ErrEmailTaken", err)
	}
	if _, err := svc.Login(ctx, "bob@example.com", "first"); err != nil {
		t.Fatalf("the original password must keep working: %v", err)
	}
}

func TestRegisterClaimsPasswordlessUser(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	// так пользователей создаёт вебхук заказов
	err := store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u := &economy.User{Email: "buyer@example.com"}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		u.Coins = 49
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	sess, err := svc.Register(ctx, "buyer@example.com", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Coins != 49 || !sess.User.HasPassword {
		t.Fatalf("claimed profile = %+v", sess.User)
	}
}

func TestMissingCredentials(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	cases := []struct {
		name            string
		email, password string
	}{
		{"пустой email", " ", "pw"},
		{"пустой пароль", "a@b.c", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.email, tc.password); !errors.Is(err, common.ErrMissingCredentials) {
			t.Fatalf("%s: Register err = %v", tc.name, err)
		}
		if _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, common.ErrMissingCredentials) {
			t.Fatalf("%s: Login err = %v", tc.name, err)
		}
	}
}

func TestBannedUserCannotLogin(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "eve@example.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := store.SetBanned(ctx, sess.User.ID, true); err != nil {
		t.Fatalf("SetBanned: %v", err)
	}
	if _, err := svc.Login(ctx, "eve@example.com", "pw"); !errors.Is(err, common.ErrBanned) {
		t.Fatalf("Login err = %v, want ErrBanned", err)
	}
	banned, err := svc.IsBanned(ctx, sess.User.ID)
	if err != nil || !banned {
		t.Fatalf("IsBanned = %v, %v", banned, err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()
	store := economy.NewMemoryStore()
	ctx := context.Background()

	hash, err := security.HashPassword("admin-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := EnsureAdmin(ctx, store, "Admin@Example.com", hash); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	// повторный вызов ничего не ломает
	if err := EnsureAdmin(ctx, store, "admin@example.com", hash); err != nil {
		t.Fatalf("EnsureAdmin again: %v", err)
	}

	u, err := store.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Role != economy.RoleAdmin || !security.VerifyPassword("admin-pass", u.PasswordHash) {
		t.Fatalf("admin = %+v", u)
	}

	if err := EnsureAdmin(ctx, store, "", hash); err == nil {
		t.Fatalf("EnsureAdmin with empty email must fail")
	}
}

func TestHandlers(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	svc, _ := newService(t)
	h := NewHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/register",
		bytes.NewBufferString(`{"email":"carol@example.com","password":"pw"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Register(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool    `json:"success"`
		Token   string  `json:"token"`
		User    Profile `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Token == "" || resp.User.Email != "carol@example.com" {
		t.Fatalf("resp = %+v", resp)
	}

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewBufferString(`{"email":"carol@example.com","password":"bad"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	middleware.SetClaims(c, &security.Claims{UserID: resp.User.ID})
	h.Me(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body=%s", rec.Code, rec.Body.String())
	}
}
