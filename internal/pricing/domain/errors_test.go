package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{invalidParameter("spot", "must be positive"), CodeInvalidParameter},
		{fmt.Errorf("wrapped: %w", arbitrageViolation("p=%v", 1.2)), CodeArbitrageViolation},
		{degenerateStatistic("n=%d", 1), CodeDegenerateStatistic},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}

func TestPricingError_Field(t *testing.T) {
	_, err := PriceLattice(MarketParameters{Spot: 100, Rate: 0.05, Volatility: -0.2, Maturity: 1}, ContractSpec{Strike: 100, Type: OptionTypeCall}, 10)
	var pe *PricingError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PricingError, got %T", err)
	}
	if pe.Field != "volatility" {
		t.Fatalf("field mismatch: got=%q", pe.Field)
	}
}

func TestParsers(t *testing.T) {
	if typ, err := ParseOptionType(" put "); err != nil || typ != OptionTypePut {
		t.Fatalf("ParseOptionType: %v %v", typ, err)
	}
	if _, err := ParseOptionType("swap"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("ParseOptionType accepted garbage: %v", err)
	}
	if ex, err := ParseExerciseStyle(""); err != nil || ex != ExerciseEuropean {
		t.Fatalf("ParseExerciseStyle default: %v %v", ex, err)
	}
	if p, err := ParsePayoffStyle("asian"); err != nil || p != PayoffAsian {
		t.Fatalf("ParsePayoffStyle: %v %v", p, err)
	}
	if m, err := ParsePricingModel("monte_carlo"); err != nil || m != ModelMonteCarlo {
		t.Fatalf("ParsePricingModel: %v %v", m, err)
	}
	if _, err := ParsePricingModel("heston"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("ParsePricingModel accepted garbage: %v", err)
	}
}
