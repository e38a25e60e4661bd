package pets

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, prober Prober) (*Engine, *Registry) {
	t.Helper()
	registry := loadedRegistry(t, newFlakyStore())
	return NewEngine(registry, prober, testEndpoint, 50*time.Millisecond), registry
}

func TestResolveZeroCountShortCircuits(t *testing.T) {
	prober := &fakeProber{}
	engine, _ := newTestEngine(t, prober)

	_, err := engine.Resolve(context.Background(), "pinto")
	if !errors.Is(err, ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}
	if calls := prober.calls(); len(calls) != 0 {
		t.Fatalf("expected no probes, got %v", calls)
	}
}

func TestResolveRotatesThroughAllItems(t *testing.T) {
	prober := &fakeProber{existing: map[string]bool{
		testEndpoint + "/pinto-0001.jpg": true,
		testEndpoint + "/pinto-0002.gif": true,
		testEndpoint + "/pinto-0003.MOV": true,
	}}
	engine, registry := newTestEngine(t, prober)
	registry.SetItemCount("pinto", 3)

	want := []string{
		testEndpoint + "/pinto-0001.jpg",
		testEndpoint + "/pinto-0002.gif",
		testEndpoint + "/pinto-0003.MOV",
		testEndpoint + "/pinto-0001.jpg",
	}
	for i, url := range want {
		res, err := engine.Resolve(context.Background(), "PINTO")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if res.URL != url || res.Index != (i%3)+1 {
			t.Fatalf("call %d: got %s (index %d), want %s", i, res.URL, res.Index, url)
		}
		if res.Emblem != "<:pintocool:1391935318797844500>" || res.Keyword != "pinto" {
			t.Fatalf("unexpected resolution %+v", res)
		}
	}
}

func TestResolveProbesInOrderAndStopsAtFirstHit(t *testing.T) {
	prober := &fakeProber{existing: map[string]bool{
		testEndpoint + "/ellie-0001.gif": true,
		testEndpoint + "/ellie-0001.mp4": true,
	}}
	engine, registry := newTestEngine(t, prober)
	registry.SetItemCount("ellie", 1)

	res, err := engine.Resolve(context.Background(), "ellie")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.URL != testEndpoint+"/ellie-0001.gif" {
		t.Fatalf("unexpected URL %s", res.URL)
	}
	calls := prober.calls()
	if len(calls) != 4 || calls[3] != res.URL {
		t.Fatalf("expected jpg, png, jpeg, gif probes; got %v", calls)
	}
}

func TestResolveProbeExhausted(t *testing.T) {
	prober := &fakeProber{}
	engine, registry := newTestEngine(t, prober)
	registry.SetItemCount("murph", 2)

	res, err := engine.Resolve(context.Background(), "murph")
	if !errors.Is(err, ErrProbeExhausted) {
		t.Fatalf("expected ErrProbeExhausted, got %v", err)
	}
	if res.Index != 1 {
		t.Fatalf("resolution should carry the computed index, got %d", res.Index)
	}
	if calls := prober.calls(); len(calls) != 12 {
		t.Fatalf("expected the full candidate list to be probed, got %d", len(calls))
	}
}

func TestResolveTimedOutProbeCountsAsAbsent(t *testing.T) {
	prober := &fakeProber{
		existing: map[string]bool{testEndpoint + "/murph-0001.jpg": true},
		delay:    time.Second,
	}
	engine, registry := newTestEngine(t, prober)
	registry.SetItemCount("murph", 1)

	started := time.Now()
	_, err := engine.Resolve(context.Background(), "murph")
	if !errors.Is(err, ErrProbeExhausted) {
		t.Fatalf("expected ErrProbeExhausted, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("probes were not bounded by the per-attempt timeout: %v", elapsed)
	}
}

func TestResolveStopsWhenContextCancelled(t *testing.T) {
	prober := &fakeProber{}
	engine, registry := newTestEngine(t, prober)
	registry.SetItemCount("pinto", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Resolve(ctx, "pinto"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls := prober.calls(); len(calls) != 0 {
		t.Fatalf("expected no probes after cancellation, got %v", calls)
	}
}

func TestResolveUnknownKeyword(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeProber{})
	if _, err := engine.Resolve(context.Background(), "rex"); !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("expected ErrUnknownKeyword, got %v", err)
	}
}

func TestResolveUsesProbeCache(t *testing.T) {
	prober := &fakeProber{existing: map[string]bool{testEndpoint + "/pinto-0001.png": true}}
	engine, registry := newTestEngine(t, prober)
	cache := &fakeCache{urls: make(map[string]string)}
	engine.WithCache(cache)
	registry.SetItemCount("pinto", 1)

	first, err := engine.Resolve(context.Background(), "pinto")
	if err != nil || first.Cached {
		t.Fatalf("first Resolve = %+v, %v", first, err)
	}
	probes := len(prober.calls())

	second, err := engine.Resolve(context.Background(), "pinto")
	if err != nil || !second.Cached || second.URL != first.URL {
		t.Fatalf("second Resolve = %+v, %v", second, err)
	}
	if len(prober.calls()) != probes {
		t.Fatalf("cache hit should skip probing")
	}
}

func TestResolveCacheErrorsFallBackToProbing(t *testing.T) {
	prober := &fakeProber{existing: map[string]bool{testEndpoint + "/pinto-0001.jpg": true}}
	engine, registry := newTestEngine(t, prober)
	engine.WithCache(&fakeCache{err: errors.New("redis down")})
	registry.SetItemCount("pinto", 1)

	res, err := engine.Resolve(context.Background(), "pinto")
	if err != nil || res.URL != testEndpoint+"/pinto-0001.jpg" {
		t.Fatalf("Resolve = %+v, %v", res, err)
	}
}
