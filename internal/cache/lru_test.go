package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[[]float64](2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float64{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float64{4, 5})
	c.Set("c", []float64{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestLRU_getRefreshesRecency(t *testing.T) {
	c := NewLRU[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("a was recently used and should remain")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should be evicted")
	}
}

func TestLRU_invalidate(t *testing.T) {
	c := NewLRU[int](10)
	c.Set(WeightsKey("cat1", "en"), 1)
	c.Set(WeightsKey("cat1", "de"), 2)
	c.Set(WeightsKey("cat2", "en"), 3)
	c.Set(LexiconKey("en"), 4)

	c.Invalidate(LexiconKey("en"))
	if _, ok := c.Get(LexiconKey("en")); ok {
		t.Error("lexicon key should be gone")
	}
	if n := c.InvalidatePrefix(PrefixWeights + "cat1:"); n != 2 {
		t.Errorf("InvalidatePrefix dropped %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after purge = %d", c.Len())
	}
}

func TestLRU_concurrent(t *testing.T) {
	c := NewLRU[int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(key, j)
				c.Get(key)
				if j%50 == 0 {
					c.InvalidatePrefix("a")
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}

type fakeBus struct {
	published [][]string
	err       error
}

func (b *fakeBus) Publish(_ context.Context, prefixes ...string) error {
	b.published = append(b.published, prefixes)
	return b.err
}
func (b *fakeBus) Subscribe(context.Context, func([]string)) error { return nil }
func (b *fakeBus) Close() error                                    { return nil }

func TestInvalidator_fansOut(t *testing.T) {
	a := NewLRU[int](4)
	b := NewLRU[string](4)
	a.Set(ModelKey("en"), 1)
	b.Set(ModelKey("en"), "x")
	b.Set(ModelKey("de"), "y")

	bus := &fakeBus{err: errors.New("offline")}
	inv := NewInvalidator(bus, nil)
	inv.Register(a)
	inv.Register(b)
	inv.Invalidate(context.Background(), ModelKey("en"))

	if a.Len() != 0 || b.Len() != 1 {
		t.Errorf("after invalidate: a=%d b=%d", a.Len(), b.Len())
	}
	if len(bus.published) != 1 || bus.published[0][0] != ModelKey("en") {
		t.Errorf("published = %v", bus.published)
	}
}

func TestInvalidator_nilSafe(t *testing.T) {
	var inv *Invalidator
	inv.Invalidate(context.Background(), "x")
	if err := inv.Start(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestRedisBus_roundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus tests")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := NewRedisBus(addr, "bunrui:test:invalidate", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()
	receiver, err := NewRedisBus(addr, "bunrui:test:invalidate", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()

	got := make(chan []string, 1)
	if err := receiver.Subscribe(ctx, func(p []string) { got <- p }); err != nil {
		t.Fatal(err)
	}
	if err := sender.Publish(ctx, LexiconKey("en")); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-got:
		if len(p) != 1 || p[0] != LexiconKey("en") {
			t.Errorf("received %v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation received")
	}
}
