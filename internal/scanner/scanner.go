// Package scanner coordinates price scans: it fetches both marketplaces for a product,
// records the observations, evaluates the pair and reconciles the opportunity registry.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"arbfinder/internal/alerting"
	"arbfinder/internal/catalog"
	"arbfinder/internal/engine"
	"arbfinder/internal/fetcher"
	"arbfinder/internal/history"
	"arbfinder/internal/market"
	"arbfinder/internal/metrics"
	"arbfinder/internal/monitor"
	"arbfinder/internal/registry"
)

// State is the stage a scan reached.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateRecording  State = "recording"
	StateEvaluating State = "evaluating"
	StateReconciled State = "reconciled"
	// StatePartial means only one marketplace produced an observation; the registry is untouched.
	StatePartial State = "partial"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
)

var (
	// ErrProductNotFound is returned by synchronous scans of untracked products.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct rejects product definitions whose URLs do not match their marketplace.
	ErrInvalidProduct = errors.New("invalid product")
)

// Result summarises one scan.
type Result struct {
	ProductID    string
	State        State
	Observations []market.PriceObservation
	Opportunity  *market.Opportunity
	FetchErrors  map[market.Marketplace]error
	// Discarded is set when the product was removed while its scan was in flight.
	Discarded bool
}

// Options tune the coordinator.
type Options struct {
	Engine        engine.Config
	FetchTimeout  time.Duration
	MaxConcurrent int64
	Detector      *market.Detector
}

// Dependencies are the stores and collaborators the coordinator drives.
type Dependencies struct {
	Catalog  *catalog.Catalog
	History  *history.Store
	Registry *registry.Registry
	Fetcher  fetcher.PriceFetcher
	Monitor  monitor.Monitor
	Notifier alerting.Notifier
	Metrics  *metrics.Recorder
}

// Coordinator is the only writer of the price history and the only caller of
// Registry.Upsert. Scans of one product run one at a time; different products scan
// in parallel.
type Coordinator struct {
	catalog  *catalog.Catalog
	history  *history.Store
	registry *registry.Registry
	fetcher  fetcher.PriceFetcher
	monitor  monitor.Monitor
	notifier alerting.Notifier
	metrics  *metrics.Recorder
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time

	scanLocks   *keyedMutex
	commitLocks *keyedMutex
	sem         *semaphore.Weighted

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// New constructs a Coordinator.
func New(deps Dependencies, opts Options, logger zerolog.Logger) *Coordinator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 60 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Detector == nil {
		opts.Detector = market.NewDetector(nil)
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.New()
	}
	if deps.History == nil {
		deps.History = history.NewStore(history.DefaultCapacity)
	}
	if deps.Registry == nil {
		deps.Registry = registry.New(opts.Engine.MinMarginPct)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		catalog:     deps.Catalog,
		history:     deps.History,
		registry:    deps.Registry,
		fetcher:     deps.Fetcher,
		monitor:     deps.Monitor,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		opts:        opts,
		logger:      logger.With().Str("component", "scanner").Logger(),
		now:         time.Now,
		scanLocks:   newKeyedMutex(),
		commitLocks: newKeyedMutex(),
		sem:         semaphore.NewWeighted(opts.MaxConcurrent),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Scan runs a scan for productID and waits for it to finish. Only an unknown product is
// reported as an error; every other failure is reflected in the Result.
func (c *Coordinator) Scan(ctx context.Context, productID string) (Result, error) {
	res := c.scan(ctx, productID)
	if res.State == StateSkipped && !res.Discarded {
		return res, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return res, nil
}

// Enqueue schedules a background scan and returns immediately. It reports false once the
// coordinator is shutting down.
func (c *Coordinator) Enqueue(productID string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if err := c.sem.Acquire(c.baseCtx, 1); err != nil {
			return
		}
		defer c.sem.Release(1)

		res := c.scan(c.baseCtx, productID)
		c.logger.Debug().
			Str("product_id", productID).
			Str("state", string(res.State)).
			Msg("background scan finished")
	}()
	return true
}

// EnqueueAll schedules one background scan per tracked product and returns how many
// were scheduled.
func (c *Coordinator) EnqueueAll() int {
	n := 0
	for _, id := range c.catalog.IDs() {
		if c.Enqueue(id) {
			n++
		}
	}
	c.logger.Info().Int("products", n).Msg("bulk scan scheduled")
	return n
}

// HandleMonitorEvent resolves a monitor id and schedules a scan for its product.
// Unknown monitors are ignored.
func (c *Coordinator) HandleMonitorEvent(monitorID string) (string, bool) {
	productID, ok := c.catalog.ResolveMonitor(monitorID)
	if !ok {
		c.metrics.Webhook("ignored")
		c.logger.Info().Str("monitor_id", monitorID).Msg("monitor event for unknown product ignored")
		return "", false
	}
	if !c.Enqueue(productID) {
		c.metrics.Webhook("rejected")
		return productID, false
	}
	c.metrics.Webhook("accepted")
	return productID, true
}

// Shutdown stops accepting background scans and waits for in-flight ones until ctx expires,
// after which outstanding scans are cancelled.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Coordinator) scan(ctx context.Context, productID string) (res Result) {
	started := time.Now()
	res = Result{ProductID: productID, State: StateIdle}
	defer func() {
		c.metrics.ObserveScan(string(res.State), time.Since(started))
	}()

	unlock := c.scanLocks.Lock(productID)
	defer unlock()

	product, err := c.catalog.Get(productID)
	if err != nil {
		res.State = StateSkipped
		c.logger.Debug().Str("product_id", productID).Msg("scan skipped: product not tracked")
		return res
	}

	res.State = StateFetching
	observations, fetchErrs := c.fetchAll(ctx, product)
	res.FetchErrors = fetchErrs

	res = c.commit(product, observations, res)

	if res.State == StateReconciled && res.Opportunity != nil && c.notifier != nil {
		if err := c.notifier.Notify(ctx, alerting.Notification{Opportunity: *res.Opportunity}); err != nil {
			c.logger.Error().Err(err).Str("product_id", productID).Msg("failed to dispatch opportunity alert")
		}
	}
	return res
}

// commit records a freshly fetched observation set and reconciles the registry. It holds
// the product's commit lock so a concurrent Untrack either runs entirely before (and the
// scan is discarded) or entirely after.
func (c *Coordinator) commit(product market.Product, observations []market.PriceObservation, res Result) Result {
	unlock := c.commitLocks.Lock(product.ID)
	defer unlock()

	if !c.catalog.Contains(product.ID) {
		res.State = StateSkipped
		res.Discarded = true
		c.logger.Info().Str("product_id", product.ID).Msg("product removed during scan; results discarded")
		return res
	}

	c.catalog.MarkScanned(product.ID, c.now())

	if len(observations) == 0 {
		res.State = StateFailed
		c.logger.Error().Str("product_id", product.ID).Msg("scan produced no observations")
		return res
	}

	res.State = StateRecording
	c.history.Append(product.ID, observations...)
	res.Observations = observations

	if len(observations) < len(market.All) {
		res.State = StatePartial
		c.logger.Warn().
			Str("product_id", product.ID).
			Str("marketplace", observations[0].Marketplace.String()).
			Msg("only one marketplace observed; opportunity left unchanged")
		return res
	}

	res.State = StateEvaluating
	opp := engine.Evaluate(product.ID, product.Name, observations[0], observations[1], c.opts.Engine)
	c.registry.Upsert(product.ID, opp)
	c.metrics.SetOpportunities(c.registry.Len())

	res.Opportunity = opp
	res.State = StateReconciled

	event := c.logger.Info().Str("product_id", product.ID)
	if opp != nil {
		event = event.Str("margin_pct", opp.MarginPct.String()).Str("risk_score", opp.RiskScore.String())
	}
	event.Bool("opportunity", opp != nil).Msg("scan reconciled")
	return res
}

// fetchAll fetches every marketplace concurrently. Observations come back in market.All
// order, skipping marketplaces that failed.
func (c *Coordinator) fetchAll(ctx context.Context, product market.Product) ([]market.PriceObservation, map[market.Marketplace]error) {
	type outcome struct {
		obs market.PriceObservation
		err error
	}
	outcomes := make([]outcome, len(market.All))

	var wg sync.WaitGroup
	for i, m := range market.All {
		wg.Add(1)
		go func(i int, m market.Marketplace) {
			defer wg.Done()
			obs, err := c.fetchOne(ctx, product, m)
			outcomes[i] = outcome{obs: obs, err: err}
		}(i, m)
	}
	wg.Wait()

	observations := make([]market.PriceObservation, 0, len(market.All))
	var errs map[market.Marketplace]error
	for i, m := range market.All {
		if err := outcomes[i].err; err != nil {
			if errs == nil {
				errs = make(map[market.Marketplace]error)
			}
			errs[m] = err
			c.metrics.FetchFailed(m.String())
			c.logger.Warn().Err(err).Str("product_id", product.ID).Str("marketplace", m.String()).Msg("price fetch failed")
			continue
		}
		observations = append(observations, outcomes[i].obs)
	}
	return observations, errs
}

func (c *Coordinator) fetchOne(ctx context.Context, product market.Product, m market.Marketplace) (market.PriceObservation, error) {
	url := product.URL(m)
	if url == "" {
		return market.PriceObservation{}, fmt.Errorf("no %s url configured", m)
	}
	if c.fetcher == nil {
		return market.PriceObservation{}, errors.New("price fetcher not configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	obs, err := c.fetcher.Fetch(fetchCtx, url, product.ID)
	if err != nil {
		return market.PriceObservation{}, err
	}
	if obs.Marketplace != m {
		return market.PriceObservation{}, fmt.Errorf("%w: %s url resolved to %q", market.ErrUnknownMarketplace, m, obs.Marketplace)
	}
	obs.ProductID = product.ID
	return obs, nil
}
