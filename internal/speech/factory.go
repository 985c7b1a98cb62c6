package speech

import (
	"fmt"
	"sync"
)

// Factory управляет созданием и переключением распознавателей.
type Factory struct {
	mu      sync.RWMutex
	current Recognizer
	cfg     Config
}

// NewFactory создаёт фабрику распознавателей.
func NewFactory() *Factory {
	return &Factory{}
}

// Create создаёт распознаватель для указанной конфигурации.
func (f *Factory) Create(cfg Config) (Recognizer, error) {
	switch cfg.Engine {
	case EngineOpenAI:
		return NewOpenAI(cfg), nil
	case EngineGoogle:
		return NewGoogle(cfg), nil
	default:
		return nil, fmt.Errorf("неизвестный сервис распознавания: %q", cfg.Engine)
	}
}

// Load создаёт распознаватель и атомарно делает его текущим (hot-swap).
// Идущее распознавание дорабатывает со старым экземпляром.
func (f *Factory) Load(cfg Config) error {
	rec, err := f.Create(cfg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.current = rec
	f.cfg = cfg
	f.mu.Unlock()

	return nil
}

// Current возвращает текущий распознаватель и язык (thread-safe).
func (f *Factory) Current() (Recognizer, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.cfg.Language
}

// CurrentEngine возвращает тип текущего сервиса.
func (f *Factory) CurrentEngine() Engine {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg.Engine
}

// IsLoaded проверяет, создан ли распознаватель.
func (f *Factory) IsLoaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current != nil
}
