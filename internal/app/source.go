package app

import (
	"context"
	"sync"

	"weathervoice/internal/weather"
)

// weatherSource позволяет заменить клиент погоды при изменении конфигурации.
type weatherSource struct {
	mu     sync.RWMutex
	client *weather.Client
}

func newWeatherSource(c *weather.Client) *weatherSource {
	return &weatherSource{client: c}
}

// Swap заменяет клиента. Идущий запрос дорабатывает со старым.
func (s *weatherSource) Swap(c *weather.Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// Lookup делегирует текущему клиенту.
func (s *weatherSource) Lookup(ctx context.Context, query string) (*weather.Report, error) {
	s.mu.RLock()
	c := s.client
	s.mu.RUnlock()
	return c.Lookup(ctx, query)
}
