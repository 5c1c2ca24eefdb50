package domain

import (
	"errors"
	"testing"
)

func TestSimulatePaths_Shape(t *testing.T) {
	paths, err := SimulatePaths(atm, SimulationConfig{Paths: 7, Steps: 12, Seed: 3})
	if err != nil {
		t.Fatalf("simulate err: %v", err)
	}
	if len(paths) != 7 {
		t.Fatalf("expected 7 paths, got %d", len(paths))
	}
	for i, p := range paths {
		if len(p) != 13 {
			t.Fatalf("path %d: expected 13 prices, got %d", i, len(p))
		}
		if p[0] != atm.Spot {
			t.Fatalf("path %d starts at %v", i, p[0])
		}
		for j, s := range p {
			if !(s > 0) {
				t.Fatalf("path %d step %d non-positive price %v", i, j, s)
			}
		}
	}
}

func TestSimulatePaths_Deterministic(t *testing.T) {
	cfg := SimulationConfig{Paths: 1000, Steps: 50, Seed: 42}

	first, err := NewPathSimulator(1).Simulate(atm, cfg)
	if err != nil {
		t.Fatalf("simulate err: %v", err)
	}
	for _, workers := range []int{1, 3, 8, 64} {
		again, err := NewPathSimulator(workers).Simulate(atm, cfg)
		if err != nil {
			t.Fatalf("simulate err: %v", err)
		}
		for i := range first {
			for j := range first[i] {
				if first[i][j] != again[i][j] {
					t.Fatalf("workers=%d path %d step %d: %v != %v", workers, i, j, first[i][j], again[i][j])
				}
			}
		}
	}
}

func TestSimulatePaths_SeedChangesOutput(t *testing.T) {
	a, _ := SimulatePaths(atm, SimulationConfig{Paths: 2, Steps: 5, Seed: 1})
	b, _ := SimulatePaths(atm, SimulationConfig{Paths: 2, Steps: 5, Seed: 2})
	if a[0].Terminal() == b[0].Terminal() {
		t.Fatalf("different seeds produced identical terminal price %v", a[0].Terminal())
	}
}

func TestSimulatePayoffs_MatchesMaterializedPaths(t *testing.T) {
	cfg := SimulationConfig{Paths: 300, Steps: 20, Seed: 9}
	evaluator, err := NewPayoffEvaluator(ContractSpec{Strike: 100, Type: OptionTypeCall, Payoff: PayoffAsian})
	if err != nil {
		t.Fatalf("evaluator err: %v", err)
	}
	sim := NewPathSimulator(4)
	paths, _ := sim.Simulate(atm, cfg)
	want, err := evaluator.EvaluateBatch(paths)
	if err != nil {
		t.Fatalf("batch err: %v", err)
	}
	got, err := sim.SimulatePayoffs(atm, cfg, evaluator)
	if err != nil {
		t.Fatalf("payoffs err: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("payoff %d: streamed=%v materialized=%v", i, got[i], want[i])
		}
	}
}

func TestSimulatePaths_InvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		market MarketParameters
		cfg    SimulationConfig
	}{
		{"zero paths", atm, SimulationConfig{Paths: 0, Steps: 10}},
		{"zero steps", atm, SimulationConfig{Paths: 10, Steps: 0}},
		{"negative spot", MarketParameters{Spot: -1, Rate: 0, Volatility: 0.2, Maturity: 1}, SimulationConfig{Paths: 1, Steps: 1}},
		{"zero maturity", MarketParameters{Spot: 100, Rate: 0, Volatility: 0.2, Maturity: 0}, SimulationConfig{Paths: 1, Steps: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SimulatePaths(tc.market, tc.cfg)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected invalid parameter, got %v", err)
			}
		})
	}
}
