// Package feed publishes account and visit snapshots to subscribers. The
// engine functions are re-run by subscribers on every emission.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/visit"
)

// Snapshot is a point-in-time copy of every account and visit.
type Snapshot struct {
	Accounts []account.Account
	Visits   []visit.Visit
	LoadedAt time.Time
}

// Source loads snapshots.
type Source interface {
	Load(ctx context.Context) (Snapshot, error)
}

// StoreSource loads snapshots from the repositories.
type StoreSource struct {
	Accounts *account.Repository
	Visits   *visit.Repository
	Now      func() time.Time
}

// Load reads all accounts and visits.
func (s StoreSource) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	accounts, err := s.Accounts.List(account.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading accounts: %w", err)
	}
	visits, err := s.Visits.List(visit.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading visits: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	snap := Snapshot{
		Accounts: make([]account.Account, len(accounts)),
		Visits:   make([]visit.Visit, len(visits)),
		LoadedAt: now(),
	}
	for i, a := range accounts {
		snap.Accounts[i] = *a
	}
	for i, v := range visits {
		snap.Visits[i] = *v
	}
	return snap, nil
}

type subscriber struct {
	onData  func(Snapshot)
	onError func(error)
}

// Feed holds the latest snapshot and fans it out to subscribers.
//
// Callbacks run synchronously on the goroutine that triggered the emission
// and must not call Refresh or Subscribe.
type Feed struct {
	source Source
	logger *slog.Logger

	emitMu sync.Mutex // serializes emissions so subscribers see them in order

	mu      sync.Mutex
	subs    map[int]subscriber
	nextID  int
	current *Snapshot
}

// New creates a feed over source. A nil logger uses slog.Default().
func New(source Source, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		source: source,
		logger: logger,
		subs:   make(map[int]subscriber),
	}
}

// Subscribe registers callbacks and returns the function that removes them.
// When a snapshot has already been loaded, onData receives it before
// Subscribe returns. Either callback may be nil. Calling the returned
// function more than once is harmless.
func (f *Feed) Subscribe(onData func(Snapshot), onError func(error)) (unsubscribe func()) {
	if onData == nil {
		onData = func(Snapshot) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	f.emitMu.Lock()
	defer f.emitMu.Unlock()

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = subscriber{onData: onData, onError: onError}
	current := f.current
	f.mu.Unlock()

	if current != nil {
		onData(*current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Current returns the latest snapshot, if any has been loaded.
func (f *Feed) Current() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return Snapshot{}, false
	}
	return *f.current, true
}

// Subscribers returns the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Refresh loads a new snapshot and publishes it. A load error is delivered to
// every onError callback and returned; the previous snapshot stays current.
func (f *Feed) Refresh(ctx context.Context) error {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()

	snap, err := f.source.Load(ctx)

	f.mu.Lock()
	if err == nil {
		f.current = &snap
	}
	subs := make([]subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Error("snapshot refresh failed", "error", err, "subscribers", len(subs))
		for _, s := range subs {
			s.onError(err)
		}
		return fmt.Errorf("refreshing snapshot: %w", err)
	}

	f.logger.Debug("snapshot refreshed",
		"accounts", len(snap.Accounts),
		"visits", len(snap.Visits),
		"subscribers", len(subs),
	)
	for _, s := range subs {
		s.onData(snap)
	}
	return nil
}
