// Package data fronts market data loaders with a per-symbol cache. One
// service may serve many concurrent backtests: readers share the cache,
// cache fills serialize.
package data

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tradepulse/gobacktester/common"
	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/log"
)

var (
	// ErrNoData is returned when a range filter leaves no bars to simulate
	ErrNoData = errors.New("no data in requested range")

	errNilLoader = errors.New("nil loader")
)

// Loader retrieves the historical series for a symbol intersecting the
// inclusive time range. Implementations surface a fatal error when the
// symbol cannot be served at all.
type Loader interface {
	Load(symbol string, start, end time.Time) (*kline.Series, error)
}

// Service caches loader results per symbol and answers range queries from
// the cache whenever the cached series spans them
type Service struct {
	loader Loader
	mu     sync.RWMutex
	cache  map[string]*kline.Series
}

// NewService returns a caching service delegating to loader
func NewService(loader Loader) (*Service, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	return &Service{
		loader: loader,
		cache:  make(map[string]*kline.Series),
	}, nil
}

// Get returns the bars for symbol within [start, end], both endpoints
// inclusive. A cached series covering the range is filtered and returned
// without touching the loader; otherwise the loader result replaces the
// cache entry.
func (s *Service) Get(symbol string, start, end time.Time) (*kline.Series, error) {
	if symbol == "" {
		return nil, common.ErrSymbolUnset
	}
	if start.IsZero() || end.IsZero() {
		return nil, common.ErrDateUnset
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %v after %v", common.ErrStartAfterEnd, start, end)
	}

	s.mu.RLock()
	cached, ok := s.cache[symbol]
	s.mu.RUnlock()
	if ok && spans(cached, start, end) {
		return filter(cached, symbol, start, end)
	}

	fresh, err := s.loader.Load(symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", symbol, err)
	}
	log.Debugf(log.Data, "cache fill for %q: %d bars", symbol, fresh.Len())

	s.mu.Lock()
	s.cache[symbol] = fresh
	s.mu.Unlock()

	return filter(fresh, symbol, start, end)
}

// Clear drops every cached series
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*kline.Series)
}

// Evict drops the cached series for symbol
func (s *Service) Evict(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, symbol)
}

// spans reports whether the series covers the inclusive range
func spans(series *kline.Series, start, end time.Time) bool {
	first, err := series.First()
	if err != nil {
		return false
	}
	last, err := series.Last()
	if err != nil {
		return false
	}
	return !first.Timestamp.After(start) && !last.Timestamp.Before(end)
}

func filter(series *kline.Series, symbol string, start, end time.Time) (*kline.Series, error) {
	sub := series.SubSeries(start, end)
	if sub.Len() == 0 {
		return nil, fmt.Errorf("%w: %q between %v and %v", ErrNoData, symbol, start, end)
	}
	return sub, nil
}
