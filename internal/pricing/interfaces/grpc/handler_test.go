package grpc

import (
	"context"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

type memoryRepo struct {
	mu      sync.Mutex
	results []*domain.PricingResult
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *memoryRepo) SaveResult(_ context.Context, res *domain.PricingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *memoryRepo) GetLatest(_ context.Context, symbol string) (*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].Symbol == symbol {
			return r.results[i], nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) GetHistory(_ context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
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

func newTestClient(t *testing.T) *PricingClient {
	t.Helper()
	app := application.NewPricingService(&memoryRepo{}, nil, nil, nil, application.DefaultOptions())
	srv := NewServer(NewGRPCHandler(app), ServerOptions{})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewPricingClient(conn)
}

var atmMarket = application.MarketRequest{Spot: 100, Rate: 0.05, Volatility: 0.2, Maturity: 1}

func ptr[T any](v T) *T { return &v }

func TestPriceOption(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	dto, err := client.PriceOption(ctx, &application.PriceOptionRequest{
		Symbol:     "AAPL",
		Model:      "black_scholes",
		Market:     atmMarket,
		OptionType: "CALL",
		Strike:     100,
	})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p := dto.Price.InexactFloat64(); p < 10.44 || p > 10.46 {
		t.Fatalf("price = %v", p)
	}
	if dto.Greeks == nil {
		t.Fatal("missing greeks")
	}

	latest, err := client.GetLatestResult(ctx, &GetLatestResultRequest{Symbol: "AAPL"})
	if err != nil || latest.PricingModel != string(domain.ModelBlackScholes) {
		t.Fatalf("latest = %+v, err = %v", latest, err)
	}
	history, err := client.GetHistory(ctx, &GetHistoryRequest{Symbol: "AAPL"})
	if err != nil || len(history.Results) != 1 {
		t.Fatalf("history = %+v, err = %v", history, err)
	}
}

func TestErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"validation", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{Market: atmMarket, OptionType: "CALL", Strike: 100})
			return err
		}, codes.InvalidArgument},
		{"arbitrage", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "LATTICE", OptionType: "PUT", Strike: 100, Steps: ptr(1),
				Market: application.MarketRequest{Spot: 100, Rate: 0.5, Volatility: 0.01, Maturity: 1},
			})
			return err
		}, codes.FailedPrecondition},
		{"degenerate", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "MONTE_CARLO", OptionType: "PUT", Strike: 100, Steps: ptr(1), Paths: ptr(1), Market: atmMarket,
			})
			return err
		}, codes.InvalidArgument},
		{"explicit zero paths", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "MONTE_CARLO", OptionType: "PUT", Strike: 100, Paths: ptr(0), Market: atmMarket,
			})
			return err
		}, codes.InvalidArgument},
		{"explicit zero steps", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "LATTICE", OptionType: "PUT", Strike: 100, Steps: ptr(0), Market: atmMarket,
			})
			return err
		}, codes.InvalidArgument},
		{"explicit zero confidence level", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "MONTE_CARLO", OptionType: "PUT", Strike: 100, Paths: ptr(100), ConfidenceLevel: ptr(0.0), Market: atmMarket,
			})
			return err
		}, codes.InvalidArgument},
		{"american monte carlo too many path points", func() error {
			_, err := client.PriceOption(ctx, &application.PriceOptionRequest{
				Symbol: "X", Model: "MONTE_CARLO", OptionType: "PUT", Strike: 100, ExerciseStyle: "AMERICAN",
				Steps: ptr(5000), Paths: ptr(1_000_000), Market: atmMarket,
			})
			return err
		}, codes.InvalidArgument},
		{"not found", func() error {
			_, err := client.GetLatestResult(ctx, &GetLatestResultRequest{Symbol: "NONE"})
			return err
		}, codes.NotFound},
		{"empty batch", func() error {
			_, err := client.BatchPriceOptions(ctx, &application.BatchPriceOptionsRequest{})
			return err
		}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(tt.call()); got != tt.want {
				t.Fatalf("code = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSimulatePathsAndBatch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	paths, err := client.SimulatePaths(ctx, &application.SimulatePathsRequest{Market: atmMarket, Paths: ptr(3), Steps: ptr(4)})
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if len(paths.Paths) != 3 || len(paths.Paths[0].Prices) != 5 || paths.Paths[0].Breached != nil {
		t.Fatalf("paths = %+v", paths)
	}

	batch, err := client.BatchPriceOptions(ctx, &application.BatchPriceOptionsRequest{
		BatchID: "batch-1",
		Contracts: []application.PriceOptionRequest{
			{Symbol: "A", Market: atmMarket, OptionType: "CALL", Strike: 100, Steps: ptr(50)},
			{Symbol: "B", Market: atmMarket, OptionType: "PUT", Strike: 100, Steps: ptr(50), ExerciseStyle: "AMERICAN"},
		},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if batch.BatchID != "batch-1" || batch.SuccessCount != 2 || len(batch.Results) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
}

func TestToStatus(t *testing.T) {
	if status.Code(toStatus(context.DeadlineExceeded)) != codes.DeadlineExceeded {
		t.Fatal("deadline mapping")
	}
	if st := status.Convert(toStatus(assertErr{})); st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("internal mapping = %v", st)
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
