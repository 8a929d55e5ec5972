package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"faucetui/pkg/config"
	"faucetui/pkg/models"
	"faucetui/pkg/query"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when the configuration does not set one.
const DefaultPollInterval = 30 * time.Second

// DataSource defines the interface for fetching data. *query.Client
// implements it.
type DataSource interface {
	RecentRequests(ctx context.Context, chain models.Chain, network models.Network) ([]models.AirdropRequest, error)
	Analytics(ctx context.Context, chain models.Chain, network models.Network) (models.Analytics, error)
}

// Target is one chain/network pair polled by the watcher.
type Target struct {
	Chain   models.Chain   `json:"chain"`
	Network models.Network `json:"network,omitempty"`
}

func (t Target) String() string {
	if t.Network == "" {
		return string(t.Chain)
	}
	return fmt.Sprintf("%s/%s", t.Chain, t.Network)
}

// Targets lists every query key the configured chains expose. Single-network
// chains are polled without a network.
func Targets(chains []config.ChainConfig) []Target {
	var targets []Target
	for _, c := range chains {
		if !c.MultiNetwork() {
			targets = append(targets, Target{Chain: c.Chain})
			continue
		}
		for _, n := range c.Networks {
			targets = append(targets, Target{Chain: c.Chain, Network: n.ID})
		}
	}
	return targets
}

// Snapshot is the last known state of one target. Failed polls keep the
// previous data and record the error.
type Snapshot struct {
	Target
	RecentRequests []models.AirdropRequest `json:"recentRequests"`
	Analytics      *models.Analytics       `json:"analytics,omitempty"`
	RecentError    string                  `json:"recentError,omitempty"`
	AnalyticsError string                  `json:"analyticsError,omitempty"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// Watcher manages background polling and state.
type Watcher struct {
	targets  []Target
	interval time.Duration
	log      *zap.Logger

	snapshots map[Target]*Snapshot

	subscribers []Subscriber
	mu          sync.RWMutex
	stopChan    chan struct{}
	stopOnce    sync.Once
	clock       clock.Clock
	dataSource  DataSource
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(chains []config.ChainConfig, globalCfg config.GlobalConfig, ds DataSource, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	interval := time.Duration(globalCfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	targets := Targets(chains)
	snapshots := make(map[Target]*Snapshot, len(targets))
	for _, t := range targets {
		snapshots[t] = &Snapshot{Target: t}
	}
	return &Watcher{
		targets:    targets,
		interval:   interval,
		log:        log.Named("watcher"),
		snapshots:  snapshots,
		stopChan:   make(chan struct{}),
		clock:      clock.New(),
		dataSource: ds,
	}
}

// SetDataSource allows overriding the data source (useful for testing).
func (w *Watcher) SetDataSource(ds DataSource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataSource = ds
}

// SetClock replaces the clock driving the poll interval.
func (w *Watcher) SetClock(c clock.Clock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clock = c
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			w.log.Debug("dropping event for slow subscriber", zap.String("type", string(event.Type)))
		}
	}
}

// Start begins the polling loop.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.RLock()
	ticker := w.clock.Ticker(w.interval)
	w.mu.RUnlock()
	go w.pollingLoop(ctx, ticker)
}

// Stop stops the polling loop. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Watcher) pollingLoop(ctx context.Context, ticker *clock.Ticker) {
	defer ticker.Stop()

	w.fetchAll(ctx)
	for {
		select {
		case <-ticker.C:
			w.fetchAll(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) fetchAll(ctx context.Context) {
	w.mu.RLock()
	ds := w.dataSource
	w.mu.RUnlock()
	if ds == nil {
		return
	}

	var wg sync.WaitGroup
	for _, target := range w.targets {
		wg.Add(2)
		go func(t Target) {
			defer wg.Done()
			reqs, err := ds.RecentRequests(ctx, t.Chain, t.Network)
			w.applyRecent(t, reqs, err)
		}(target)
		go func(t Target) {
			defer wg.Done()
			a, err := ds.Analytics(ctx, t.Chain, t.Network)
			w.applyAnalytics(t, a, err)
		}(target)
	}
	wg.Wait()
}

func (w *Watcher) applyRecent(t Target, reqs []models.AirdropRequest, err error) {
	if err != nil {
		w.mu.Lock()
		w.snapshots[t].RecentError = err.Error()
		w.mu.Unlock()
		w.log.Warn("recent requests poll failed", zap.Stringer("target", t), zap.Error(err))
		w.notify(Event{Type: EventQueryFailed, Data: QueryFailure{Target: t, Kind: query.KindRecentRequests, Error: err.Error()}})
		return
	}
	w.mu.Lock()
	s := w.snapshots[t]
	s.RecentRequests = reqs
	s.RecentError = ""
	s.UpdatedAt = w.clock.Now()
	w.mu.Unlock()
	w.notify(Event{Type: EventRecentRequestsUpdated, Data: RecentRequestsUpdate{Target: t, Requests: reqs}})
}

func (w *Watcher) applyAnalytics(t Target, a models.Analytics, err error) {
	if err != nil {
		w.mu.Lock()
		w.snapshots[t].AnalyticsError = err.Error()
		w.mu.Unlock()
		w.log.Warn("analytics poll failed", zap.Stringer("target", t), zap.Error(err))
		w.notify(Event{Type: EventQueryFailed, Data: QueryFailure{Target: t, Kind: query.KindAnalytics, Error: err.Error()}})
		return
	}
	w.mu.Lock()
	s := w.snapshots[t]
	s.Analytics = &a
	s.AnalyticsError = ""
	s.UpdatedAt = w.clock.Now()
	w.mu.Unlock()
	w.notify(Event{Type: EventAnalyticsUpdated, Data: AnalyticsUpdate{Target: t, Analytics: a}})
}

// GetTargets returns the polled targets in configuration order.
func (w *Watcher) GetTargets() []Target {
	return append([]Target(nil), w.targets...)
}

// GetSnapshots returns a copy of every snapshot in target order.
func (w *Watcher) GetSnapshots() []Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Snapshot, 0, len(w.targets))
	for _, t := range w.targets {
		out = append(out, copySnapshot(w.snapshots[t]))
	}
	return out
}

// GetSnapshot returns the snapshot for one target.
func (w *Watcher) GetSnapshot(t Target) (Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.snapshots[t]
	if !ok {
		return Snapshot{}, false
	}
	return copySnapshot(s), true
}

func copySnapshot(s *Snapshot) Snapshot {
	cp := *s
	cp.RecentRequests = append([]models.AirdropRequest(nil), s.RecentRequests...)
	if s.Analytics != nil {
		a := *s.Analytics
		cp.Analytics = &a
	}
	return cp
}
