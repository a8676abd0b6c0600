package gameconfig

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Provider отдаёт движкам активные настройки. Результат всегда не nil:
// если опубликованной версии нет, возвращаются значения по умолчанию.
type Provider interface {
	Spin(ctx context.Context) *SpinConfig
	Box(ctx context.Context) *BoxConfig

	// Значения по умолчанию: на них движок откатывается при вырожденной таблице.
	DefaultSpin() *SpinConfig
	DefaultBox() *BoxConfig
}

// CachedProvider держит последнюю опубликованную версию в памяти
// и обновляет её по Refresh (после правки админа, по крону или по сигналу Redis).
type CachedProvider struct {
	repo     Repository
	defaults *Defaults

	mu   sync.RWMutex
	spin *SpinConfig
	box  *BoxConfig
}

// NewCachedProvider создаёт провайдер. repo может быть nil, тогда
// всегда действуют значения по умолчанию.
func NewCachedProvider(repo Repository, defaults *Defaults) *CachedProvider {
	if defaults == nil {
		defaults = BuiltinDefaults()
	}
	return &CachedProvider{repo: repo, defaults: defaults}
}

// Spin возвращает копию активной таблицы спина.
func (p *CachedProvider) Spin(_ context.Context) *SpinConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.spin != nil {
		return p.spin.Clone()
	}
	return p.defaults.Spin.Clone()
}

// Box возвращает копию активных пулов бокса.
func (p *CachedProvider) Box(_ context.Context) *BoxConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.box != nil {
		return p.box.Clone()
	}
	return p.defaults.Box.Clone()
}

// DefaultSpin: таблица спина по умолчанию.
func (p *CachedProvider) DefaultSpin() *SpinConfig { return p.defaults.Spin.Clone() }

// DefaultBox: пулы бокса по умолчанию.
func (p *CachedProvider) DefaultBox() *BoxConfig { return p.defaults.Box.Clone() }

// Refresh перечитывает опубликованные версии из репозитория.
// При ошибке чтения кэш не меняется.
func (p *CachedProvider) Refresh(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}

	spin, err := p.repo.LatestSpin(ctx)
	if err != nil {
		return err
	}
	box, err := p.repo.LatestBox(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.spin = spin
	p.box = box
	p.mu.Unlock()

	fields := log.Fields{}
	if spin != nil {
		fields["spin_version"] = spin.Version
	}
	if box != nil {
		fields["box_version"] = box.Version
	}
	log.WithFields(fields).Debug("Настройки игр обновлены")
	return nil
}
