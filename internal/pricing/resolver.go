package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// ErrThrottled is returned when a fetch was skipped by the local limiter.
var ErrThrottled = errors.New("pricing: fetch throttled")

// ErrOffline is returned by fetches when the resolver has no client.
var ErrOffline = errors.New("pricing: offline")

// FetchInterval bounds how often the price list may be requested.
const FetchInterval = time.Minute

// NewLimiter returns the limiter used to space out price list fetches. Share
// one across resolvers so a failing network is not retried every refresh.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(FetchInterval), 1)
}

// Options configures a Resolver.
type Options struct {
	CachePath  string
	BaseURL    string
	Offline    bool
	Overrides  map[string]ModelPricing
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Now        func() time.Time
}

// Resolver resolves model prices. Safe for concurrent use.
type Resolver struct {
	cachePath string
	client    *Client
	limiter   *rate.Limiter
	overrides map[string]ModelPricing
	now       func() time.Time

	mu     sync.Mutex
	table  *PriceTable
	loaded bool
}

// NewResolver creates a resolver. Nothing is read until first use.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		cachePath: opts.CachePath,
		limiter:   opts.Limiter,
		overrides: opts.Overrides,
		now:       opts.Now,
	}
	if !opts.Offline {
		r.client = NewClient(opts.BaseURL, opts.HTTPClient)
	}
	if r.limiter == nil {
		r.limiter = NewLimiter()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// LoadCache reads the persisted price table into memory. A missing or expired
// file leaves the resolver on fallback prices.
func (r *Resolver) LoadCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Resolver) loadLocked() error {
	r.loaded = true
	if r.cachePath == "" {
		return nil
	}
	t, err := LoadTable(r.cachePath, r.now())
	if err != nil {
		return err
	}
	r.table = t
	return nil
}

func (r *Resolver) ensureLoadedLocked() {
	if r.loaded {
		return
	}
	if err := r.loadLocked(); err != nil {
		slog.Warn("loading price table", "path", r.cachePath, "err", err)
	}
}

// validTableLocked returns the in-memory table if it has not expired.
func (r *Resolver) validTableLocked() *PriceTable {
	if r.table == nil || r.table.Expired(r.now()) {
		return nil
	}
	return r.table
}

// ResolveCached resolves prices without touching the network.
func (r *Resolver) ResolveCached(name string) ModelPricing {
	return r.Catalog().Lookup(name)
}

// Resolve resolves prices, fetching the remote table first when the cached
// one is missing or expired. Fetch failures fall back silently.
func (r *Resolver) Resolve(ctx context.Context, name string) ModelPricing {
	if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrOffline) {
		slog.Warn("refreshing price table", "model", name, "err", err)
	}
	return r.ResolveCached(name)
}

// Refresh fetches the remote table when the cached one is missing or expired.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.ensureLoadedLocked()
	valid := r.validTableLocked() != nil
	r.mu.Unlock()
	if valid {
		return nil
	}
	return r.fetch(ctx)
}

// ForceRefresh fetches the remote table regardless of its age.
func (r *Resolver) ForceRefresh(ctx context.Context) error {
	return r.fetch(ctx)
}

func (r *Resolver) fetch(ctx context.Context) error {
	if r.client == nil {
		return ErrOffline
	}
	if !r.limiter.Allow() {
		return ErrThrottled
	}
	models, err := r.client.FetchModels(ctx)
	if err != nil {
		return err
	}
	t := &PriceTable{Models: models, Timestamp: r.now().Unix()}
	if r.cachePath != "" {
		if err := SaveTable(r.cachePath, t); err != nil {
			slog.Warn("saving price table", "path", r.cachePath, "err", err)
		}
	}

	r.mu.Lock()
	r.table = t
	r.loaded = true
	r.mu.Unlock()
	slog.Debug("price table refreshed", "models", len(models))
	return nil
}

// Catalog returns the current prices as a value that can be handed to another
// goroutine. Tables are replaced on fetch, never mutated.
func (r *Resolver) Catalog() Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked()
	return Catalog{table: r.validTableLocked(), overrides: r.overrides}
}

// CostCached prices a record without touching the network. A positive billed
// cost from the log wins; billed reports whether it was used.
func (r *Resolver) CostCached(name string, u model.TokenUsage, costUSD float64) (cost float64, billed bool) {
	return r.Catalog().Cost(name, u, costUSD)
}

// Catalog is a read-only price snapshot.
type Catalog struct {
	table     *PriceTable
	overrides map[string]ModelPricing
}

// FallbackCatalog prices everything from the built-in constants.
func FallbackCatalog() Catalog { return Catalog{} }

// Lookup resolves prices: overrides, then the table, then tier fallback.
func (c Catalog) Lookup(name string) ModelPricing {
	if p, ok := c.overrides[name]; ok {
		return p
	}
	if p, ok := c.table.Lookup(name); ok {
		return p.WithDefaults()
	}
	return Fallback(name)
}

// Cost prices one record. See Resolver.CostCached.
func (c Catalog) Cost(name string, u model.TokenUsage, costUSD float64) (cost float64, billed bool) {
	if costUSD > 0 {
		return costUSD, true
	}
	return c.Lookup(name).Cost(u), false
}

// Source describes where prices currently come from.
func (c Catalog) Source() string {
	if c.table == nil {
		return "built-in"
	}
	return fmt.Sprintf("price table (%d models, fetched %s)",
		len(c.table.Models), c.table.FetchedAt().Format(time.RFC3339))
}

// Models lists the table's model ids in order.
func (c Catalog) Models() []string {
	if c.table == nil {
		return nil
	}
	ids := lo.Keys(c.table.Models)
	slices.Sort(ids)
	return ids
}
