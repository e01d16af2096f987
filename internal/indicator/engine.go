// Package indicator computes named, parameterized indicator values over
// time-windowed tick data. It owns the per-bucket value cache, the
// circuit breaker around slow or failing recomputation, and load-time
// validation of variant parameters and cross-variant dependencies.
package indicator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

const (
	defaultComputeTimeout = 5 * time.Second
	defaultMaxWindowAge   = time.Hour
)

// Value is an evaluated indicator value together with how it was obtained.
type Value struct {
	Value     float64
	Freshness domain.Freshness
}

// Sample converts the value into its decision-snapshot form.
func (v Value) Sample() domain.IndicatorSample {
	return domain.IndicatorSample{Value: v.Value, Freshness: v.Freshness}
}

// Config holds the engine's tunables.
type Config struct {
	// ComputeTimeout bounds a single recomputation before the circuit breaker
	// falls back to the last known value. Defaults to 5s.
	ComputeTimeout time.Duration
	// MaxWindowAge bounds retained tick history per symbol. Defaults to 1h.
	MaxWindowAge time.Duration
	Logger       ports.Logger
}

type cacheKey struct {
	variantID string
	symbol    string
	bucket    int64
}

type lastGoodKey struct {
	variantID string
	symbol    string
}

// Engine evaluates indicator variants against the tick window store.
// Cache writes are last-write-wins: a concurrent recomputation of the same
// (variant, symbol, bucket) key simply recomputes the same value twice.
type Engine struct {
	cfg     Config
	logger  ports.Logger
	windows *WindowStore

	variants atomic.Value // map[string]*Variant

	cache    sync.Map // cacheKey -> float64
	lastGood sync.Map // lastGoodKey -> float64

	failMu   sync.Mutex
	failures map[string]int
}

// New creates an indicator engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for the indicator engine")
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = defaultComputeTimeout
	}
	if cfg.MaxWindowAge <= 0 {
		cfg.MaxWindowAge = defaultMaxWindowAge
	}
	e := &Engine{
		cfg:      cfg,
		logger:   cfg.Logger,
		windows:  NewWindowStore(cfg.MaxWindowAge),
		failures: make(map[string]int),
	}
	e.variants.Store(map[string]*Variant{})
	return e, nil
}

// LoadVariants validates raw variant definitions (parameter schemas, duplicate
// ids, dependency cycles) and atomically swaps them in as the active set.
// On any error the previous set stays active and nothing is partially loaded.
func (e *Engine) LoadVariants(raw []*domain.IndicatorVariant) error {
	parsed := make(map[string]*Variant, len(raw))
	for _, rv := range raw {
		v, err := ParseVariant(rv)
		if err != nil {
			return err
		}
		if _, exists := parsed[v.ID]; exists {
			return fmt.Errorf("%w: %s", ports.ErrDuplicateVariant, v.ID)
		}
		parsed[v.ID] = v
	}
	if err := validateGraph(parsed); err != nil {
		return err
	}
	e.variants.Store(parsed)
	return nil
}

// Variant returns the active parsed variant by id.
func (e *Engine) Variant(id string) (*Variant, bool) {
	v, ok := e.variants.Load().(map[string]*Variant)[id]
	return v, ok
}

// Append feeds a tick into the window store.
func (e *Engine) Append(tick domain.Tick) {
	e.windows.Append(tick)
}

// FailureCount returns how many recomputations have failed for a variant.
func (e *Engine) FailureCount(variantID string) int {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.failures[variantID]
}

// Evaluate resolves the variant, serves from the current cache bucket when
// possible, and otherwise recomputes over the tick window relative to the
// given virtual now. On recomputation failure or timeout, the last
// successfully computed value for (variant, symbol) is returned with
// freshness=degraded; only when no such value exists does Evaluate error.
func (e *Engine) Evaluate(ctx context.Context, variantID, symbol string, now time.Time) (Value, error) {
	v, ok := e.Variant(variantID)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ports.ErrDanglingVariant, variantID)
	}
	if !v.AppliesTo(symbol) {
		return Value{}, fmt.Errorf("%w: variant %s is not scoped to symbol %s", ports.ErrInvalidRequest, variantID, symbol)
	}

	bucket := now.UnixNano() / int64(v.BucketSize())
	key := cacheKey{variantID: variantID, symbol: symbol, bucket: bucket}
	if cached, hit := e.cache.Load(key); hit {
		return Value{Value: cached.(float64), Freshness: domain.FreshnessCached}, nil
	}

	val, err := e.computeBounded(ctx, v, symbol, now)
	if err != nil {
		e.recordFailure(ctx, v, symbol, err)
		if last, ok := e.lastGood.Load(lastGoodKey{variantID: variantID, symbol: symbol}); ok {
			return Value{Value: last.(float64), Freshness: domain.FreshnessDegraded}, nil
		}
		return Value{}, fmt.Errorf("%w: variant %s on %s: %v", ports.ErrCircuitOpen, variantID, symbol, err)
	}

	e.cache.Store(key, val)
	e.lastGood.Store(lastGoodKey{variantID: variantID, symbol: symbol}, val)
	return Value{Value: val, Freshness: domain.FreshnessComputed}, nil
}

type computeResult struct {
	val float64
	err error
}

// computeBounded runs one recomputation under the circuit-breaker timeout so
// a slow calculation never blocks the evaluation loop indefinitely.
func (e *Engine) computeBounded(ctx context.Context, v *Variant, symbol string, now time.Time) (float64, error) {
	resCh := make(chan computeResult, 1)
	go func() {
		val, err := e.compute(ctx, v, symbol, now)
		resCh <- computeResult{val: val, err: err}
	}()

	timer := time.NewTimer(e.cfg.ComputeTimeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		return res.val, res.err
	case <-timer.C:
		return 0, fmt.Errorf("%w: recomputation exceeded %s", ports.ErrTimeout, e.cfg.ComputeTimeout)
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ports.ErrContextCanceled, ctx.Err())
	}
}

func (e *Engine) compute(ctx context.Context, v *Variant, symbol string, now time.Time) (float64, error) {
	if v.BaseType == BaseSmooth {
		return e.computeSmooth(ctx, v, symbol, now)
	}

	from, to := v.Params.Window.Bounds(now)
	ticks := e.windows.Range(symbol, from, to)

	switch v.BaseType {
	case BaseLastPrice:
		return calcLastPrice(ticks)
	case BaseSMA:
		return calcSMA(ticks)
	case BaseVWAP:
		return calcVWAP(ticks)
	case BaseRSI:
		return calcRSI(ticks)
	case BaseVolumeSum:
		return calcVolumeSum(ticks)
	case BaseVolumeSurge:
		span := v.Params.Window.T1 - v.Params.Window.T2
		prior := e.windows.Range(symbol, from.Add(-span), from.Add(-time.Nanosecond))
		return calcVolumeSurge(ticks, prior)
	case BaseVolatility:
		return calcVolatility(ticks)
	case BasePriceChange:
		return calcPriceChange(ticks)
	}
	return 0, fmt.Errorf("%w: %s", ports.ErrUnknownBaseType, v.BaseType)
}

// computeSmooth averages the source variant evaluated at a series of earlier
// virtual times. The dependency edge was cycle-checked at load.
func (e *Engine) computeSmooth(ctx context.Context, v *Variant, symbol string, now time.Time) (float64, error) {
	var sum float64
	for i := 0; i < v.Params.Samples; i++ {
		at := now.Add(-time.Duration(i) * v.Params.Step)
		res, err := e.Evaluate(ctx, v.Params.SourceVariantID, symbol, at)
		if err != nil {
			return 0, fmt.Errorf("smooth source %s at %s: %w", v.Params.SourceVariantID, at, err)
		}
		sum += res.Value
	}
	return sum / float64(v.Params.Samples), nil
}

func (e *Engine) recordFailure(ctx context.Context, v *Variant, symbol string, err error) {
	e.failMu.Lock()
	e.failures[v.ID]++
	count := e.failures[v.ID]
	e.failMu.Unlock()

	e.logger.Warn(ctx, "Indicator recomputation failed, serving degraded value if available", map[string]interface{}{
		"variantID": v.ID,
		"symbol":    symbol,
		"failures":  count,
		"error":     err.Error(),
	})
}
