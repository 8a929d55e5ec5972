// Package query runs the read-only faucet queries (recent requests and
// analytics). Identical keys never overlap on the wire and results are kept
// for a stale time so switching back to a network renders immediately.
package query

import (
	"context"
	"fmt"
	"time"

	"faucetui/pkg/metrics"
	"faucetui/pkg/models"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a successful result is served from the cache.
const DefaultStaleTime = 30 * time.Second

// ErrService marks a query the service answered with an error envelope.
var ErrService = errors.New("faucet service reported an error")

// Kind names one of the read queries.
type Kind string

const (
	KindRecentRequests Kind = "recent_requests"
	KindAnalytics      Kind = "analytics"
)

// Key identifies a query. Network is empty for single-network chains.
type Key struct {
	Kind    Kind
	Chain   models.Chain
	Network models.Network
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Chain, k.Network)
}

// Source is the subset of the faucet service client the queries need.
type Source interface {
	RecentRequests(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[[]models.AirdropRequest], error)
	Analytics(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[models.Analytics], error)
}

// Client deduplicates and caches query fetches. It is safe for concurrent use.
type Client struct {
	source Source
	group  singleflight.Group
	cache  *ttlcache.Cache
	log    *zap.Logger
}

// NewClient creates a query client over source.
func NewClient(source Source, staleTime time.Duration, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	cache := ttlcache.NewCache()
	if err := cache.SetTTL(staleTime); err != nil {
		return nil, errors.Wrap(err, "set query cache ttl")
	}
	cache.SkipTTLExtensionOnHit(true)
	return &Client{source: source, cache: cache, log: log.Named("query")}, nil
}

// Close releases the cache's expiry goroutine.
func (c *Client) Close() error {
	return c.cache.Close()
}

// RecentRequests fetches the recent requests for chain and network.
func (c *Client) RecentRequests(ctx context.Context, chain models.Chain, network models.Network) ([]models.AirdropRequest, error) {
	key := Key{Kind: KindRecentRequests, Chain: chain, Network: network}
	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		env, err := c.source.RecentRequests(ctx, chain, network)
		if err != nil {
			return nil, err
		}
		if !env.OK() {
			return nil, serviceError(env.Message, "Failed to load recent requests")
		}
		return env.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.AirdropRequest), nil
}

// Analytics fetches the distribution statistics for chain and network.
func (c *Client) Analytics(ctx context.Context, chain models.Chain, network models.Network) (models.Analytics, error) {
	key := Key{Kind: KindAnalytics, Chain: chain, Network: network}
	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		env, err := c.source.Analytics(ctx, chain, network)
		if err != nil {
			return nil, err
		}
		if !env.OK() {
			return nil, serviceError(env.Message, "Failed to load analytics")
		}
		return env.Data, nil
	})
	if err != nil {
		return models.Analytics{}, err
	}
	return v.(models.Analytics), nil
}

// CachedRecentRequests returns the last successful result still within the
// stale time.
func (c *Client) CachedRecentRequests(chain models.Chain, network models.Network) ([]models.AirdropRequest, bool) {
	v, ok := c.cached(Key{Kind: KindRecentRequests, Chain: chain, Network: network})
	if !ok {
		return nil, false
	}
	return v.([]models.AirdropRequest), true
}

// CachedAnalytics returns the last successful analytics still within the
// stale time.
func (c *Client) CachedAnalytics(chain models.Chain, network models.Network) (models.Analytics, bool) {
	v, ok := c.cached(Key{Kind: KindAnalytics, Chain: chain, Network: network})
	if !ok {
		return models.Analytics{}, false
	}
	return v.(models.Analytics), true
}

// Invalidate drops both cached queries for chain and network.
func (c *Client) Invalidate(chain models.Chain, network models.Network) {
	for _, kind := range []Kind{KindRecentRequests, KindAnalytics} {
		_ = c.cache.Remove(Key{Kind: kind, Chain: chain, Network: network}.String())
	}
}

// RecentRequestsFunc adapts RecentRequests for a Query.
func (c *Client) RecentRequestsFunc() FetchFunc[[]models.AirdropRequest] {
	return func(ctx context.Context, key Key) ([]models.AirdropRequest, error) {
		return c.RecentRequests(ctx, key.Chain, key.Network)
	}
}

// AnalyticsFunc adapts Analytics for a Query.
func (c *Client) AnalyticsFunc() FetchFunc[models.Analytics] {
	return func(ctx context.Context, key Key) (models.Analytics, error) {
		return c.Analytics(ctx, key.Chain, key.Network)
	}
}

// Snapshot is the outcome of refreshing both queries of a page.
type Snapshot struct {
	Recent       []models.AirdropRequest
	RecentErr    error
	Analytics    models.Analytics
	AnalyticsErr error
}

// RefetchAll refreshes both queries concurrently. A failure of one query does
// not cancel the other; the returned error is the first one observed.
func (c *Client) RefetchAll(ctx context.Context, chain models.Chain, network models.Network) (Snapshot, error) {
	var snap Snapshot
	var g errgroup.Group
	g.Go(func() error {
		snap.Recent, snap.RecentErr = c.RecentRequests(ctx, chain, network)
		return snap.RecentErr
	})
	g.Go(func() error {
		snap.Analytics, snap.AnalyticsErr = c.Analytics(ctx, chain, network)
		return snap.AnalyticsErr
	})
	return snap, g.Wait()
}

func (c *Client) fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.String()
	v, err, shared := c.group.Do(id, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			metrics.QueryFetchesTotal.WithLabelValues(string(key.Kind), string(key.Chain), string(key.Network), "error").Inc()
			c.log.Debug("query failed", zap.Stringer("key", key), zap.Error(err))
			return nil, err
		}
		metrics.QueryFetchesTotal.WithLabelValues(string(key.Kind), string(key.Chain), string(key.Network), "ok").Inc()
		if err := c.cache.Set(id, v); err != nil {
			c.log.Warn("query cache write failed", zap.Stringer("key", key), zap.Error(err))
		}
		return v, nil
	})
	if shared {
		metrics.QueryDeduplicatedTotal.WithLabelValues(string(key.Kind), string(key.Chain), string(key.Network)).Inc()
	}
	return v, err
}

func (c *Client) cached(key Key) (any, bool) {
	v, err := c.cache.Get(key.String())
	if err != nil {
		return nil, false
	}
	return v, true
}

func serviceError(message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return errors.Mark(errors.New(message), ErrService)
}
