// services/settings_cache.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// Theme reads happen on every page render; the durable store is only hit
// on a cache miss or after a toggle.
const settingsCacheExpiration = 15 * time.Minute

// CachedSettingsService fronts a SettingsProvider with a loadable
// Ristretto cache via eko/gocache.
type CachedSettingsService struct {
	cache *cache.LoadableCache[bool]
	store SettingsProvider
}

func NewCachedSettingsService(settingsStore SettingsProvider) (*CachedSettingsService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (bool, []store.Option, error) {
		visitorID, ok := key.(string)
		if !ok {
			return false, nil, fmt.Errorf("invalid key type provided to settings cache: expected string, got %T", key)
		}

		log.Printf("CACHE MISS for visitor settings: %s. Loading from store.", visitorID)
		darkMode, err := settingsStore.GetDarkMode(ctx, visitorID)
		return darkMode, []store.Option{store.WithExpiration(settingsCacheExpiration)}, err
	}

	loadableCache := cache.NewLoadable[bool](
		loadFunction,
		cache.New[bool](ristrettoStore),
	)
	return &CachedSettingsService{
		cache: loadableCache,
		store: settingsStore,
	}, nil
}

func (s *CachedSettingsService) GetDarkMode(ctx context.Context, visitorID string) (bool, error) {
	if visitorID == "" {
		return false, nil
	}
	return s.cache.Get(ctx, visitorID)
}

// SetDarkMode updates the durable store and the in-memory cache as one
// operation; readers never observe a stale value past a toggle.
func (s *CachedSettingsService) SetDarkMode(ctx context.Context, visitorID string, darkMode bool) error {
	if err := s.store.SetDarkMode(ctx, visitorID, darkMode); err != nil {
		return err
	}
	return s.cache.Set(ctx, visitorID, darkMode, store.WithExpiration(settingsCacheExpiration))
}
