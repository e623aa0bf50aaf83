package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"
)

const (
	LimitByLogin  = "byLogin"
	LimitByAnyone = "byAnyone"
	LimitByUser   = "byUser"
	LimitByIP     = "byIP"
)

type Limit struct {
	Total     int
	Remaining int
	Reset     time.Time
	Exceeded  bool
}

// RateLimitStore counts hits for a key inside a fixed window.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
	Sweep(ctx context.Context) (int, error)
}

type memoryWindow struct {
	count int
	reset time.Time
}

type MemoryRateLimitStore struct {
	windows map[string]*memoryWindow
	mutex   sync.Mutex
	now     func() time.Time
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (store *MemoryRateLimitStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	now := store.now()

	w, exists := store.windows[key]

	if !exists || !w.reset.After(now) {
		w = &memoryWindow{reset: now.Add(window)}
		store.windows[key] = w
	}

	w.count++

	return w.count, w.reset, nil
}

// Sweep drops every window that has already reset.
func (store *MemoryRateLimitStore) Sweep(_ context.Context) (int, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	now := store.now()
	removed := 0

	for key, w := range store.windows {
		if !w.reset.After(now) {
			delete(store.windows, key)
			removed++
		}
	}

	return removed, nil
}

func (store *MemoryRateLimitStore) Len() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return len(store.windows)
}

type RateLimitService struct {
	strategies map[string]config.RateLimit
	store      RateLimitStore
}

func NewRateLimitService(strategies map[string]config.RateLimit, store RateLimitStore) *RateLimitService {
	return &RateLimitService{
		strategies: strategies,
		store:      store,
	}
}

func (service *RateLimitService) Init() error {
	for name, strategy := range service.strategies {
		if strategy.Max <= 0 || strategy.Duration <= 0 {
			tlog.App.Warn().Str("strategy", name).Msg("Rate limit strategy has no max or duration, it will be ignored")
		}
	}
	return nil
}

// Strategy returns the configured limit for a strategy name.
func (service *RateLimitService) Strategy(name string) (config.RateLimit, bool) {
	strategy, ok := service.strategies[name]

	if !ok || strategy.Max <= 0 || strategy.Duration <= 0 {
		return config.RateLimit{}, false
	}

	return strategy, true
}

func (service *RateLimitService) DeleteExpired(ctx context.Context) error {
	removed, err := service.store.Sweep(ctx)

	if err != nil {
		return fmt.Errorf("failed to sweep rate limit windows: %w", err)
	}

	tlog.App.Debug().Int("removed", removed).Msg("Removed expired rate limit windows")
	return nil
}

// Get records a hit for key and reports what is left of the current window.
func (service *RateLimitService) Get(ctx context.Context, key string, total int, window time.Duration) (Limit, error) {
	count, reset, err := service.store.Hit(ctx, key, window)

	if err != nil {
		return Limit{}, err
	}

	return Limit{
		Total:     total,
		Remaining: max(total-count, 0),
		Reset:     reset,
		Exceeded:  count > total,
	}, nil
}
