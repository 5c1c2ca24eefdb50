package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

type memoryStore struct {
	data map[string][]byte
	ttl  map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (m *memoryStore) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memoryStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.ttl[key] = ttl
	return nil
}

func TestPricingCache(t *testing.T) {
	store := newMemoryStore()
	c := NewPricingCache(store)
	ctx := context.Background()

	got, err := c.Get(ctx, "abc")
	if err != nil || got != nil {
		t.Fatalf("miss = %v, %v", got, err)
	}

	res := &domain.PricingResult{
		Symbol:       "AAPL",
		PricingModel: domain.ModelBlackScholes,
		OptionPrice:  decimal.RequireFromString("10.450584"),
		Greeks:       &domain.Greeks{Delta: decimal.RequireFromString("0.636831")},
	}
	if err := c.Set(ctx, "abc", res, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if store.ttl["pricing:result:abc"] != time.Minute {
		t.Fatalf("stored keys = %v", store.ttl)
	}

	got, err = c.Get(ctx, "abc")
	if err != nil || got == nil {
		t.Fatalf("hit = %v, %v", got, err)
	}
	if !got.OptionPrice.Equal(res.OptionPrice) || got.Greeks == nil || !got.Greeks.Delta.Equal(res.Greeks.Delta) {
		t.Fatalf("cached result = %+v", got)
	}
}

func TestPricingCache_Error(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	if _, err := NewPricingCache(store).Get(context.Background(), "x"); !errors.Is(err, store.err) {
		t.Fatalf("err = %v", err)
	}
}
