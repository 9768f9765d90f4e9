package app

import (
	"context"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

// pathAgg is the running aggregate of one path signature.
type pathAgg struct {
	attempts  int
	successes int
	gasSum    float64
}

// welford tracks running mean and variance of realised slippage.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

func (w *welford) stddev() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// Recorder ingests transaction outcomes and keeps lightweight aggregates the
// scorer and predictor consult.
type Recorder struct {
	log    OutcomeLog
	logger logger.LoggerInterface
	now    func() time.Time

	mu    sync.RWMutex
	paths map[string]*pathAgg
	pairs map[string]*welford

	recorded metric.Int64Counter
}

// NewRecorder creates a recorder appending to log. log may be nil.
func NewRecorder(log OutcomeLog, lg logger.LoggerInterface) *Recorder {
	recorded, _ := otel.Meter(meterName).Int64Counter(
		"routing_outcomes_recorded_total",
		metric.WithDescription("Transaction outcomes recorded"),
	)
	return &Recorder{
		log:      log,
		logger:   lg,
		now:      time.Now,
		paths:    make(map[string]*pathAgg),
		pairs:    make(map[string]*welford),
		recorded: recorded,
	}
}

// Record ingests o. It never fails; sink errors are logged.
func (r *Recorder) Record(ctx context.Context, o domain.TransactionOutcome) {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = r.now()
	}
	r.apply(o)

	if r.log != nil {
		if err := r.log.Append(ctx, o); err != nil {
			r.logger.Warn(ctx, "failed to persist outcome", "path", o.PathSignature(), "error", err)
		}
	}
	if r.recorded != nil {
		r.recorded.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", o.Success)))
	}
}

func (r *Recorder) apply(o domain.TransactionOutcome) {
	sig := o.PathSignature()

	r.mu.Lock()
	defer r.mu.Unlock()

	if sig != "" {
		agg, ok := r.paths[sig]
		if !ok {
			agg = &pathAgg{}
			r.paths[sig] = agg
		}
		agg.attempts++
		if o.Success {
			agg.successes++
		}
		agg.gasSum += float64(o.GasCost)
	}

	if key := domain.PairKey(o.From, o.To); key != "" && o.Success && !math.IsNaN(o.Slippage) && !math.IsInf(o.Slippage, 0) {
		w, ok := r.pairs[key]
		if !ok {
			w = &welford{}
			r.pairs[key] = w
		}
		w.add(o.Slippage)
	}
}

// PathStats returns the aggregate for a path signature.
func (r *Recorder) PathStats(signature string) (domain.PathStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.paths[signature]
	if !ok {
		return domain.PathStats{}, false
	}
	return domain.PathStats{
		Attempts:  agg.attempts,
		Successes: agg.successes,
		MeanGas:   agg.gasSum / float64(agg.attempts),
	}, true
}

// PairVolatility returns the standard deviation of realised slippage for
// successful swaps of the pair and the sample count.
func (r *Recorder) PairVolatility(from, to *asset.Asset) (float64, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.pairs[domain.PairKey(from, to)]
	if !ok {
		return 0, 0
	}
	return w.stddev(), w.n
}

// Restore replays up to limit persisted outcomes into the aggregates.
func (r *Recorder) Restore(ctx context.Context, limit int) (int, error) {
	if r.log == nil {
		return 0, nil
	}
	outcomes, err := r.log.Load(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, o := range outcomes {
		r.apply(o)
	}
	return len(outcomes), nil
}
