package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/metrics"
)

type fakeRepo struct {
	mu      sync.Mutex
	results []*domain.PricingResult
	saveErr error
	inTx    bool
}

type txKey struct{}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (r *fakeRepo) SaveResult(ctx context.Context, result *domain.PricingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.inTx = ctx.Value(txKey{}) != nil
	result.ID = uint(len(r.results) + 1)
	r.results = append(r.results, result)
	return nil
}

func (r *fakeRepo) GetLatest(_ context.Context, symbol string) (*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].Symbol == symbol {
			return r.results[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetHistory(_ context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PricingResult
	for i := len(r.results) - 1; i >= 0 && len(out) < limit; i-- {
		if r.results[i].Symbol == symbol {
			out = append(out, r.results[i])
		}
	}
	return out, nil
}

type publishedEvent struct {
	eventType string
	key       string
	event     any
	inTx      bool
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, eventType, key string, event any) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, event: event})
	return nil
}

func (p *fakePublisher) PublishInTx(ctx context.Context, eventType, key string, event any) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, event: event, inTx: ctx.Value(txKey{}) != nil})
	return nil
}

func (p *fakePublisher) ofType(eventType string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeCache struct {
	entries map[string]*domain.PricingResult
	gets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.PricingResult)}
}

func (c *fakeCache) Get(_ context.Context, fingerprint string) (*domain.PricingResult, error) {
	c.gets++
	return c.entries[fingerprint], nil
}

func (c *fakeCache) Set(_ context.Context, fingerprint string, result *domain.PricingResult, _ time.Duration) error {
	c.entries[fingerprint] = result
	return nil
}

// pricingRecorder 只记录定价指标的状态
type pricingRecorder struct {
	metrics.Noop
	statuses []string
}

func (r *pricingRecorder) RecordPricing(_, status string, _ time.Duration) {
	r.statuses = append(r.statuses, status)
}

var atmMarket = domain.MarketParameters{Spot: 100, Rate: 0.05, Volatility: 0.2, Maturity: 1}

func newTestService() (*PricingService, *fakeRepo, *fakePublisher, *fakeCache) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	cache := newFakeCache()
	return NewPricingService(repo, pub, cache, nil, DefaultOptions()), repo, pub, cache
}

func latticeCommand(symbol string) PriceOptionCommand {
	return PriceOptionCommand{
		Symbol:   symbol,
		Model:    domain.ModelLattice,
		Market:   atmMarket,
		Contract: domain.ContractSpec{Strike: 100, Type: domain.OptionTypeCall},
		Steps:    200,
	}
}

func TestPriceOption_LatticePersistsAndPublishes(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	res, err := svc.PriceOption(context.Background(), latticeCommand("AAPL-C100"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	price := res.OptionPrice.InexactFloat64()
	if price < 10.3 || price > 10.6 {
		t.Fatalf("lattice price = %v, want ≈10.45", price)
	}
	if res.ExerciseStyle != domain.ExerciseEuropean || res.PayoffStyle != domain.PayoffVanilla {
		t.Fatalf("defaults not applied: %s %s", res.ExerciseStyle, res.PayoffStyle)
	}
	if res.Paths != 0 || res.Seed != 0 || res.ConfidenceLevel != 0 {
		t.Fatalf("lattice result carries simulation fields: %+v", res)
	}
	if len(repo.results) != 1 || !repo.inTx {
		t.Fatalf("result not saved in tx: %d saved, inTx=%v", len(repo.results), repo.inTx)
	}
	priced := pub.ofType(domain.OptionPricedEventType)
	if len(priced) != 1 || !priced[0].inTx || priced[0].key != "AAPL-C100" {
		t.Fatalf("priced events = %+v", priced)
	}
}

func TestPriceOption_MonteCarloFillsInterval(t *testing.T) {
	svc, _, _, _ := newTestService()
	cmd := PriceOptionCommand{
		Symbol:   "MC",
		Model:    domain.ModelMonteCarlo,
		Market:   atmMarket,
		Contract: domain.ContractSpec{Strike: 100, Type: domain.OptionTypePut},
		Steps:    1,
		Paths:    20000,
	}
	res, err := svc.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Seed != domain.DefaultPricingSeed || res.ConfidenceLevel != domain.DefaultConfidenceLevel {
		t.Fatalf("defaults not applied: seed=%d level=%v", res.Seed, res.ConfidenceLevel)
	}
	if !res.StdErr.IsPositive() {
		t.Fatalf("std err = %s", res.StdErr)
	}
	if !res.LowerBound.LessThan(res.OptionPrice) || !res.UpperBound.GreaterThan(res.OptionPrice) {
		t.Fatalf("interval [%s, %s] does not bracket %s", res.LowerBound, res.UpperBound, res.OptionPrice)
	}
}

func TestPriceOption_BlackScholesGreeks(t *testing.T) {
	svc, _, _, _ := newTestService()
	cmd := latticeCommand("BS")
	cmd.Model = domain.ModelBlackScholes
	res, err := svc.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Greeks == nil {
		t.Fatal("missing greeks")
	}
	if res.Steps != 0 {
		t.Fatalf("steps = %d, want 0", res.Steps)
	}
	if d := res.Greeks.Delta.InexactFloat64(); d < 0.6 || d > 0.66 {
		t.Fatalf("delta = %v", d)
	}
}

func TestPriceOption_CacheHitSkipsCompute(t *testing.T) {
	svc, repo, _, cache := newTestService()
	ctx := context.Background()
	first, err := svc.PriceOption(ctx, latticeCommand("CACHED"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.PriceOption(ctx, latticeCommand("CACHED"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Fatal("second call did not return cached result")
	}
	if len(repo.results) != 1 {
		t.Fatalf("saved %d results, want 1", len(repo.results))
	}
	if cache.gets != 2 {
		t.Fatalf("cache gets = %d, want 2", cache.gets)
	}
}

func TestPriceOption_CacheHitRecordsMetric(t *testing.T) {
	recorder := &pricingRecorder{}
	svc := NewPricingService(&fakeRepo{}, nil, newFakeCache(), recorder, DefaultOptions())
	for i := 0; i < 2; i++ {
		if _, err := svc.PriceOption(context.Background(), latticeCommand("CACHED")); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(recorder.statuses) != 2 || recorder.statuses[0] != "success" || recorder.statuses[1] != "cached" {
		t.Fatalf("pricing statuses = %v", recorder.statuses)
	}
}

func TestPriceOption_Failures(t *testing.T) {
	barrier := &domain.BarrierSpec{Level: 120, Direction: domain.BarrierUp, Activation: domain.BarrierOut}
	tests := []struct {
		name    string
		mutate  func(*PriceOptionCommand)
		wantErr error
	}{
		{"missing symbol", func(c *PriceOptionCommand) { c.Symbol = "" }, domain.ErrInvalidParameter},
		{"negative spot", func(c *PriceOptionCommand) { c.Market.Spot = -1 }, domain.ErrInvalidParameter},
		{"too many steps", func(c *PriceOptionCommand) { c.Steps = 10_000 }, domain.ErrInvalidParameter},
		{"arbitrage", func(c *PriceOptionCommand) {
			c.Market.Rate, c.Market.Volatility, c.Steps = 0.5, 0.01, 1
		}, domain.ErrArbitrageViolation},
		{"lattice barrier", func(c *PriceOptionCommand) {
			c.Contract.Payoff, c.Contract.Barrier = domain.PayoffBarrier, barrier
		}, domain.ErrInvalidParameter},
		{"unknown model", func(c *PriceOptionCommand) { c.Model = "BINOMIAL" }, domain.ErrInvalidParameter},
		{"monte carlo single path", func(c *PriceOptionCommand) {
			c.Model, c.Paths = domain.ModelMonteCarlo, 1
		}, domain.ErrDegenerateStatistic},
		{"monte carlo too many paths", func(c *PriceOptionCommand) {
			c.Model, c.Paths = domain.ModelMonteCarlo, 2_000_000
		}, domain.ErrInvalidParameter},
		{"lattice zero steps", func(c *PriceOptionCommand) { c.Steps = 0 }, domain.ErrInvalidParameter},
		{"monte carlo zero paths", func(c *PriceOptionCommand) {
			c.Model, c.Paths = domain.ModelMonteCarlo, 0
		}, domain.ErrInvalidParameter},
		{"monte carlo zero confidence level", func(c *PriceOptionCommand) {
			level := 0.0
			c.Model, c.Paths, c.ConfidenceLevel = domain.ModelMonteCarlo, 100, &level
		}, domain.ErrInvalidParameter},
		{"american monte carlo too many path points", func(c *PriceOptionCommand) {
			c.Model, c.Paths, c.Steps = domain.ModelMonteCarlo, 1_000_000, 5000
			c.Contract.Type, c.Contract.Exercise = domain.OptionTypePut, domain.ExerciseAmerican
		}, domain.ErrInvalidParameter},
		{"black scholes american", func(c *PriceOptionCommand) {
			c.Model, c.Contract.Exercise = domain.ModelBlackScholes, domain.ExerciseAmerican
		}, domain.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub, _ := newTestService()
			cmd := latticeCommand("ERR")
			tt.mutate(&cmd)
			_, err := svc.PriceOption(context.Background(), cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(repo.results) != 0 {
				t.Fatal("failed pricing was persisted")
			}
			failed := pub.ofType(domain.PricingErrorEventType)
			if len(failed) != 1 {
				t.Fatalf("pricing error events = %d, want 1", len(failed))
			}
			ev := failed[0].event.(domain.PricingErrorEvent)
			if ev.ErrorCode != domain.ErrorCode(tt.wantErr) {
				t.Fatalf("event code = %s", ev.ErrorCode)
			}
		})
	}
}

func TestPriceOption_SaveFailureIsReturned(t *testing.T) {
	svc, repo, _, cache := newTestService()
	repo.saveErr = errors.New("db down")
	_, err := svc.PriceOption(context.Background(), latticeCommand("X"))
	if err == nil || !errors.Is(err, repo.saveErr) {
		t.Fatalf("err = %v", err)
	}
	if len(cache.entries) != 0 {
		t.Fatal("unsaved result was cached")
	}
}

func TestPriceOption_CanceledContext(t *testing.T) {
	svc, _, pub, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.PriceOption(ctx, latticeCommand("X")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("events published for canceled request: %d", len(pub.events))
	}
}

func TestSimulatePaths(t *testing.T) {
	svc, _, _, _ := newTestService()
	barrier := &domain.BarrierSpec{Level: 110, Direction: domain.BarrierUp, Activation: domain.BarrierOut}
	res, err := svc.SimulatePaths(context.Background(), SimulatePathsCommand{Market: atmMarket, Paths: 20, Steps: 50, Barrier: barrier})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Seed != domain.DefaultSampleSeed {
		t.Fatalf("seed = %d", res.Seed)
	}
	if len(res.Paths) != 20 || len(res.Breached) != 20 {
		t.Fatalf("paths=%d breached=%d", len(res.Paths), len(res.Breached))
	}
	for i, p := range res.Paths {
		if len(p) != 51 || p[0] != 100 {
			t.Fatalf("path %d malformed: len=%d start=%v", i, len(p), p[0])
		}
		if res.Breached[i] != domain.Breached(p, *barrier) {
			t.Fatalf("path %d breach flag mismatch", i)
		}
	}

	again, _ := svc.SimulatePaths(context.Background(), SimulatePathsCommand{Market: atmMarket, Paths: 20, Steps: 50})
	if again.Breached != nil {
		t.Fatal("breach flags without barrier")
	}
	for i := range res.Paths {
		for j := range res.Paths[i] {
			if res.Paths[i][j] != again.Paths[i][j] {
				t.Fatalf("paths differ at %d/%d for the same seed", i, j)
			}
		}
	}
}

func TestSimulatePaths_Limits(t *testing.T) {
	svc, _, _, _ := newTestService()
	tests := []struct {
		name string
		cmd  SimulatePathsCommand
	}{
		{"too many paths", SimulatePathsCommand{Market: atmMarket, Paths: 201, Steps: 10}},
		{"too many steps", SimulatePathsCommand{Market: atmMarket, Paths: 1, Steps: 6000}},
		{"zero paths", SimulatePathsCommand{Market: atmMarket, Paths: 0, Steps: 10}},
		{"bad barrier", SimulatePathsCommand{Market: atmMarket, Paths: 1, Steps: 10, Barrier: &domain.BarrierSpec{Level: -1, Direction: domain.BarrierUp, Activation: domain.BarrierIn}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SimulatePaths(context.Background(), tt.cmd); !errors.Is(err, domain.ErrInvalidParameter) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestBatchPriceOptions(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	bad := latticeCommand("BAD")
	bad.Market.Volatility = 0
	cmd := BatchPriceOptionsCommand{Commands: []PriceOptionCommand{latticeCommand("A"), bad, latticeCommand("B")}}

	res, err := svc.BatchPriceOptions(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.BatchID == "" {
		t.Fatal("batch id not assigned")
	}
	if res.SuccessCount != 2 || res.FailureCount != 1 || len(res.Results) != 2 {
		t.Fatalf("counts: %+v", res)
	}
	if f := res.Failures[0]; f.Index != 1 || f.Symbol != "BAD" || f.Code != domain.CodeInvalidParameter {
		t.Fatalf("failure = %+v", f)
	}
	if len(repo.results) != 2 {
		t.Fatalf("saved %d", len(repo.results))
	}
	done := pub.ofType(domain.BatchPricingCompletedEventType)
	if len(done) != 1 {
		t.Fatalf("batch events = %d", len(done))
	}
	ev := done[0].event.(domain.BatchPricingCompletedEvent)
	if ev.TotalContracts != 3 || len(ev.Symbols) != 3 || ev.BatchID != res.BatchID {
		t.Fatalf("batch event = %+v", ev)
	}
}

func TestBatchPriceOptions_Rejects(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{}); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("empty batch err = %v", err)
	}
	cmds := make([]PriceOptionCommand, 101)
	if _, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{Commands: cmds}); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("oversized batch err = %v", err)
	}
}

func TestQuery(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.GetLatestResult(ctx, "NONE"); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	for _, steps := range []int{10, 20, 30} {
		cmd := latticeCommand("HIST")
		cmd.Steps = steps
		if _, err := svc.PriceOption(ctx, cmd); err != nil {
			t.Fatalf("price: %v", err)
		}
	}
	latest, err := svc.GetLatestResult(ctx, "HIST")
	if err != nil || latest.Steps != 30 {
		t.Fatalf("latest = %+v, err = %v", latest, err)
	}
	history, err := svc.GetHistory(ctx, "HIST", 2)
	if err != nil || len(history) != 2 {
		t.Fatalf("history len = %d, err = %v", len(history), err)
	}
	all, _ := svc.GetHistory(ctx, "HIST", 0)
	if len(all) != 3 {
		t.Fatalf("default limit returned %d", len(all))
	}
	if _, err := svc.GetHistory(ctx, "HIST", 1001); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("oversized limit err = %v", err)
	}
	if _, err := svc.GetHistory(ctx, "", 10); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("empty symbol err = %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := latticeCommand("A")
	b := latticeCommand("A")
	b.RequestID = "req-1"
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("request id must not affect fingerprint")
	}
	b.Steps++
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("different steps share a fingerprint")
	}
}

func TestToPricingResultDTO(t *testing.T) {
	svc, _, _, _ := newTestService()
	res, err := svc.PriceOption(context.Background(), latticeCommand("DTO"))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	dto := ToPricingResultDTO(res)
	if dto.StdErr != nil || dto.Lower != nil || dto.Greeks != nil {
		t.Fatalf("lattice dto carries monte carlo fields: %+v", dto)
	}
	if dto.Price.Exponent() < -pricePlaces {
		t.Fatalf("price not rounded: %s", dto.Price)
	}
	if ToPricingResultDTO(nil) != nil {
		t.Fatal("nil result should map to nil")
	}
}
