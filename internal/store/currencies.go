package store

import (
	"context"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const currenciesKey = "currencies"

// CachedCurrencies serves the currency list from an LRU cache. The list is
// reference data, so a long TTL is fine.
type CachedCurrencies struct {
	inner CurrencyReader
	cache *cache.LRUCache[[]core.Currency]
}

func NewCachedCurrencies(inner CurrencyReader, ttl time.Duration) *CachedCurrencies {
	return &CachedCurrencies{inner: inner, cache: cache.NewLRUCache[[]core.Currency](1, ttl)}
}

func (c *CachedCurrencies) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	if list, ok := c.cache.Get(currenciesKey); ok {
		return append([]core.Currency(nil), list...), nil
	}
	list, err := c.inner.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(currenciesKey, append([]core.Currency(nil), list...))
	return list, nil
}

// Invalidate drops the cached list.
func (c *CachedCurrencies) Invalidate() {
	c.cache.Delete(currenciesKey)
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (c *CachedCurrencies) Cache() *cache.LRUCache[[]core.Currency] {
	return c.cache
}
