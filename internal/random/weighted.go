// Package random реализует взвешенный выбор исхода и источники случайности.
// Используется спином (таблица исходов) и боксом (таблица редкостей).
package random

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"serotonyl.ru/loyalty-backend/internal/common"
)

// Source отдаёт равномерное число в [0, 1).
type Source interface {
	Float64() float64
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	// 53 бита мантиссы
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// NewCryptoSource возвращает источник на crypto/rand (по умолчанию в проде).
func NewCryptoSource() Source { return cryptoSource{} }

// seededSource воспроизводим при одном и том же seed. Безопасен для горутин.
type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource нужен для тестов и симуляций.
func NewSeededSource(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Pick выбирает один элемент с вероятностью weight_i / Σweight.
//
// Алгоритм: r = rand * total, идём по списку и вычитаем вес;
// первый элемент, на котором r <= 0, выигрывает. Если из-за погрешности
// float до нуля не дошли, возвращается последний элемент с положительным весом.
//
// Отрицательные веса считаются нулевыми. Пустой список или нулевая сумма
// дают common.ErrConfig: вызывающий должен взять таблицу по умолчанию.
func Pick[T any](src Source, items []T, weight func(T) float64) (T, error) {
	var zero T
	if src == nil {
		src = NewCryptoSource()
	}

	total := 0.0
	last := -1
	for i, it := range items {
		if w := weight(it); w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 || total <= 0 {
		return zero, common.ErrConfig
	}

	r := src.Float64() * total
	for _, it := range items {
		w := weight(it)
		if w <= 0 {
			continue
		}
		r -= w
		if r <= 0 {
			return it, nil
		}
	}
	return items[last], nil
}

// Index возвращает равномерный индекс в [0, n). n должно быть > 0.
func Index(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	if src == nil {
		src = NewCryptoSource()
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
