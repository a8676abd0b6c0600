// Package economy: memory.go: хранилище в памяти.
// Используется в тестах и в режиме APP_STORAGE=memory (локальная разработка).
// Атомарность по пользователю обеспечивают мьютексы по ключу ("user:42"),
// которые держатся до конца InTx; глобальной блокировки на время операции нет.
package economy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"serotonyl.ru/loyalty-backend/internal/common"
)

// keyLocks: набор мьютексов по строковому ключу с подсчётом ссылок.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

type loginAttempt struct {
	email   string
	success bool
	at      time.Time
}

// MemoryStore реализует Store в памяти процесса.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[int64]*User
	emails       map[string]int64
	cards        map[int64]*Card
	ledger       []*Entry
	rewards      map[int64]*Reward
	redemptions  []*Redemption
	orders       map[string]int64
	productCards map[int64]*ProductCard
	audit        []*AuditEntry
	logins       []loginAttempt

	seqUser, seqCard, seqEntry, seqReward, seqRedemption, seqAudit int64

	locks keyLocks
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]*User),
		emails:       make(map[string]int64),
		cards:        make(map[int64]*Card),
		rewards:      make(map[int64]*Reward),
		orders:       make(map[string]int64),
		productCards: make(map[int64]*ProductCard),
		locks:        keyLocks{m: make(map[string]*keyLock)},
		now:          time.Now,
	}
}

// InTx выполняет fn; изменения применяются только если fn вернула nil.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		s:       s,
		held:    make(map[string]func()),
		users:   make(map[int64]*User),
		saved:   make(map[int64]bool),
		deleted: make(map[int64]bool),
		rewards: make(map[int64]*Reward),
		orders:  make(map[string]int64),
	}
	defer tx.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range tx.newUsers {
		if id, ok := s.emails[u.Email]; ok && id != u.ID {
			return common.ErrEmailTaken
		}
	}
	for _, u := range tx.newUsers {
		s.emails[u.Email] = u.ID
	}
	for id := range tx.saved {
		s.users[id] = tx.users[id].Clone()
	}
	for id := range tx.deleted {
		delete(s.cards, id)
	}
	for _, c := range tx.cards {
		cp := *c
		s.cards[c.ID] = &cp
	}
	s.ledger = append(s.ledger, tx.ledger...)
	for id, r := range tx.rewards {
		cp := *r
		s.rewards[id] = &cp
	}
	s.redemptions = append(s.redemptions, tx.redemptions...)
	for id, uid := range tx.orders {
		s.orders[id] = uid
	}
	return nil
}

// memTx копит изменения до commit.
type memTx struct {
	s    *MemoryStore
	held map[string]func()

	users       map[int64]*User
	saved       map[int64]bool
	newUsers    []*User
	cards       []*Card
	deleted     map[int64]bool
	ledger      []*Entry
	rewards     map[int64]*Reward
	redemptions []*Redemption
	orders      map[string]int64
}

func (tx *memTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	tx.held[key] = tx.s.locks.lock(key)
}

func (tx *memTx) release() {
	for _, unlock := range tx.held {
		unlock()
	}
	tx.held = nil
}

func (tx *memTx) LockUser(ctx context.Context, userID int64) (*User, error) {
	tx.lock("user:" + strconv.FormatInt(userID, 10))
	if u, ok := tx.users[userID]; ok {
		return u.Clone(), nil
	}

	tx.s.mu.Lock()
	u, ok := tx.s.users[userID]
	if ok {
		u = u.Clone()
	}
	tx.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	tx.users[userID] = u
	return u.Clone(), nil
}

func (tx *memTx) LockUserByEmail(ctx context.Context, email string) (*User, error) {
	email = common.NormalizeEmail(email)
	for _, u := range tx.newUsers {
		if u.Email == email {
			return tx.LockUser(ctx, u.ID)
		}
	}
	tx.s.mu.Lock()
	id, ok := tx.s.emails[email]
	tx.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("email=%s: %w", email, common.ErrUserNotFound)
	}
	return tx.LockUser(ctx, id)
}

func (tx *memTx) CreateUser(ctx context.Context, u *User) error {
	u.Email = common.NormalizeEmail(u.Email)
	tx.lock("email:" + u.Email)

	tx.s.mu.Lock()
	if _, ok := tx.s.emails[u.Email]; ok {
		tx.s.mu.Unlock()
		return common.ErrEmailTaken
	}
	tx.s.seqUser++
	u.ID = tx.s.seqUser
	now := tx.s.now()
	tx.s.mu.Unlock()

	if u.Role == "" {
		u.Role = RoleUser
	}
	u.CreatedAt, u.UpdatedAt = now, now
	tx.lock("user:" + strconv.FormatInt(u.ID, 10))
	tx.users[u.ID] = u.Clone()
	tx.saved[u.ID] = true
	tx.newUsers = append(tx.newUsers, u.Clone())
	return nil
}

func (tx *memTx) SaveUser(ctx context.Context, u *User) error {
	if _, ok := tx.users[u.ID]; !ok {
		return fmt.Errorf("пользователь %d не заблокирован в этой транзакции", u.ID)
	}
	if u.Coins < 0 {
		return fmt.Errorf("user_id=%d: %w", u.ID, common.ErrInsufficientBalance)
	}
	u.UpdatedAt = tx.s.now()
	tx.users[u.ID] = u.Clone()
	tx.saved[u.ID] = true
	return nil
}

func (tx *memTx) AppendLedger(ctx context.Context, e *Entry) error {
	tx.s.mu.Lock()
	tx.s.seqEntry++
	e.ID = tx.s.seqEntry
	e.CreatedAt = tx.s.now()
	tx.s.mu.Unlock()

	cp := *e
	tx.ledger = append(tx.ledger, &cp)
	return nil
}

func (tx *memTx) LedgerTotals(ctx context.Context, userID int64) (int64, int64, int64, error) {
	coins, boxes, tickets, err := tx.s.LedgerTotals(ctx, userID)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, e := range tx.ledger {
		if e.UserID == userID {
			coins += e.Coins
			boxes += e.Boxes
			tickets += e.Tickets
		}
	}
	return coins, boxes, tickets, nil
}

func (tx *memTx) InsertCard(ctx context.Context, c *Card) error {
	tx.s.mu.Lock()
	tx.s.seqCard++
	c.ID = tx.s.seqCard
	c.CreatedAt = tx.s.now()
	tx.s.mu.Unlock()

	cp := *c
	tx.cards = append(tx.cards, &cp)
	return nil
}

func (tx *memTx) FindCard(ctx context.Context, userID, cardID int64) (*Card, error) {
	if tx.deleted[cardID] {
		return nil, common.ErrCardNotFound
	}
	for _, c := range tx.cards {
		if c.ID == cardID && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	c, ok := tx.s.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("card_id=%d: %w", cardID, common.ErrCardNotFound)
	}
	cp := *c
	return &cp, nil
}

func (tx *memTx) CardsByRarity(ctx context.Context, userID int64, rarity Rarity, limit int) ([]*Card, error) {
	var out []*Card
	tx.s.mu.Lock()
	for _, c := range tx.s.cards {
		if c.UserID == userID && c.Rarity == rarity && !tx.deleted[c.ID] {
			cp := *c
			out = append(out, &cp)
		}
	}
	tx.s.mu.Unlock()
	for _, c := range tx.cards {
		if c.UserID == userID && c.Rarity == rarity && !tx.deleted[c.ID] {
			cp := *c
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (tx *memTx) DeleteCards(ctx context.Context, userID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.FindCard(ctx, userID, id); err != nil {
			return err
		}
		tx.deleted[id] = true
	}
	return nil
}

func (tx *memTx) LockReward(ctx context.Context, rewardID int64) (*Reward, error) {
	tx.lock("reward:" + strconv.FormatInt(rewardID, 10))
	if r, ok := tx.rewards[rewardID]; ok {
		cp := *r
		return &cp, nil
	}

	tx.s.mu.Lock()
	r, ok := tx.s.rewards[rewardID]
	var cp Reward
	if ok {
		cp = *r
	}
	tx.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
	}
	staged := cp
	tx.rewards[rewardID] = &staged
	return &cp, nil
}

func (tx *memTx) SaveReward(ctx context.Context, r *Reward) error {
	if _, ok := tx.rewards[r.ID]; !ok {
		return fmt.Errorf("награда %d не заблокирована в этой транзакции", r.ID)
	}
	r.UpdatedAt = tx.s.now()
	cp := *r
	tx.rewards[r.ID] = &cp
	return nil
}

func (tx *memTx) InsertRedemption(ctx context.Context, r *Redemption) error {
	tx.s.mu.Lock()
	tx.s.seqRedemption++
	r.ID = tx.s.seqRedemption
	r.CreatedAt = tx.s.now()
	tx.s.mu.Unlock()

	cp := *r
	tx.redemptions = append(tx.redemptions, &cp)
	return nil
}

func (tx *memTx) ClaimOrder(ctx context.Context, orderID string, userID int64) (bool, error) {
	tx.lock("order:" + orderID)
	if _, ok := tx.orders[orderID]; ok {
		return false, nil
	}
	tx.s.mu.Lock()
	_, done := tx.s.orders[orderID]
	tx.s.mu.Unlock()
	if done {
		return false, nil
	}
	tx.orders[orderID] = userID
	return true, nil
}

// --- Чтение вне транзакции ---

func (s *MemoryStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = common.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, fmt.Errorf("email=%s: %w", email, common.ErrUserNotFound)
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	s.mu.Lock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) SetBanned(ctx context.Context, userID int64, banned bool) error {
	unlock := s.locks.lock("user:" + strconv.FormatInt(userID, 10))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	u.Banned = banned
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ListCards(ctx context.Context, userID int64) ([]*Card, error) {
	s.mu.Lock()
	var out []*Card
	for _, c := range s.cards {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListLedger(ctx context.Context, f LedgerFilter) ([]*Entry, error) {
	s.mu.Lock()
	var out []*Entry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		e := s.ledger[i]
		if f.UserID != 0 && e.UserID != f.UserID {
			continue
		}
		if f.Source != "" && e.Source != f.Source {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	s.mu.Unlock()
	return out, nil
}

func (s *MemoryStore) LedgerTotals(ctx context.Context, userID int64) (int64, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var coins, boxes, tickets int64
	for _, e := range s.ledger {
		if e.UserID == userID {
			coins += e.Coins
			boxes += e.Boxes
			tickets += e.Tickets
		}
	}
	return coins, boxes, tickets, nil
}

func (s *MemoryStore) ListRewards(ctx context.Context, onlyAvailable bool) ([]*Reward, error) {
	s.mu.Lock()
	var out []*Reward
	for _, r := range s.rewards {
		if onlyAvailable && (!r.Active || !r.InStock()) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceCoins != out[j].PriceCoins {
			return out[i].PriceCoins < out[j].PriceCoins
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetReward(ctx context.Context, rewardID int64) (*Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[rewardID]
	if !ok {
		return nil, fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) CreateReward(ctx context.Context, r *Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqReward++
	r.ID = s.seqReward
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	cp := *r
	s.rewards[r.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateReward(ctx context.Context, r *Reward) error {
	unlock := s.locks.lock("reward:" + strconv.FormatInt(r.ID, 10))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rewards[r.ID]
	if !ok {
		return fmt.Errorf("reward_id=%d: %w", r.ID, common.ErrRewardNotFound)
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = s.now()
	cp := *r
	s.rewards[r.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteReward(ctx context.Context, rewardID int64) error {
	unlock := s.locks.lock("reward:" + strconv.FormatInt(rewardID, 10))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rewards[rewardID]; !ok {
		return fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
	}
	delete(s.rewards, rewardID)
	return nil
}

func (s *MemoryStore) ListRedemptions(ctx context.Context, userID int64) ([]*Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Redemption
	for i := len(s.redemptions) - 1; i >= 0; i-- {
		if r := s.redemptions[i]; r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ProductCard(ctx context.Context, productID int64) (*ProductCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.productCards[productID]
	if !ok {
		return nil, fmt.Errorf("product_id=%d: %w", productID, common.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProductCards(ctx context.Context) ([]*ProductCard, error) {
	s.mu.Lock()
	var out []*ProductCard
	for _, p := range s.productCards {
		cp := *p
		out = append(out, &cp)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *MemoryStore) UpsertProductCard(ctx context.Context, p *ProductCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	cp := *p
	s.productCards[p.ProductID] = &cp
	return nil
}

func (s *MemoryStore) AppendAudit(ctx context.Context, a *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqAudit++
	a.ID = s.seqAudit
	a.CreatedAt = s.now()
	cp := *a
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *MemoryStore) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		cp := *s.audit[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) LogLoginAttempt(ctx context.Context, email string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, loginAttempt{email: common.NormalizeEmail(email), success: success, at: s.now()})
	return nil
}

func (s *MemoryStore) FailedLoginsSince(ctx context.Context, email string, since time.Time) (int, error) {
	email = common.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.logins {
		if a.email == email && !a.success && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Stats{TotalUsers: int64(len(s.users))}
	for _, u := range s.users {
		st.TotalCoins += u.Coins
	}
	for _, e := range s.ledger {
		if e.CreatedAt.Before(since) {
			continue
		}
		switch e.Source {
		case SourceSpin:
			st.Spins++
		case SourceBoxOpen:
			st.BoxesOpened++
		case SourceRedeem:
			st.Redemptions++
		}
	}

	pulls := make(map[string]int64)
	for _, c := range s.cards {
		if !c.CreatedAt.Before(since) {
			pulls[c.Name]++
		}
	}
	for name, n := range pulls {
		st.TopCards = append(st.TopCards, CardPulls{Name: name, Pulls: n})
	}
	sort.Slice(st.TopCards, func(i, j int) bool {
		if st.TopCards[i].Pulls != st.TopCards[j].Pulls {
			return st.TopCards[i].Pulls > st.TopCards[j].Pulls
		}
		return st.TopCards[i].Name < st.TopCards[j].Name
	})
	if len(st.TopCards) > 5 {
		st.TopCards = st.TopCards[:5]
	}
	return st, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
