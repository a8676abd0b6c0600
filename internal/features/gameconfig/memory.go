package gameconfig

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository: Repository в памяти процесса (APP_STORAGE=memory и тесты).
type MemoryRepository struct {
	mu    sync.Mutex
	spins []*SpinConfig
	boxes []*BoxConfig
}

// NewMemoryRepository создаёт пустой репозиторий.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) LatestSpin(_ context.Context) (*SpinConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.spins) - 1; i >= 0; i-- {
		if r.spins[i].IsPublished {
			return r.spins[i].Clone(), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) LatestBox(_ context.Context) (*BoxConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.boxes) - 1; i >= 0; i-- {
		if r.boxes[i].IsPublished {
			return r.boxes[i].Clone(), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) SaveSpin(_ context.Context, c *SpinConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = int64(len(r.spins) + 1)
	c.Version = len(r.spins) + 1
	c.UpdatedAt = time.Now()
	r.spins = append(r.spins, c.Clone())
	return nil
}

func (r *MemoryRepository) SaveBox(_ context.Context, c *BoxConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = int64(len(r.boxes) + 1)
	c.Version = len(r.boxes) + 1
	c.UpdatedAt = time.Now()
	r.boxes = append(r.boxes, c.Clone())
	return nil
}
