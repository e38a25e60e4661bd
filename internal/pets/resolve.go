package pets

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Prober checks whether a candidate URL exists. Any failure counts as absent.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// ProbeCache remembers the URL that resolved for a keyword index.
type ProbeCache interface {
	Lookup(ctx context.Context, keyword string, index int) (string, bool, error)
	Store(ctx context.Context, keyword string, index int, url string) error
}

// Resolution is a successful lookup.
type Resolution struct {
	Keyword string
	Emblem  string
	Index   int
	URL     string
	Cached  bool
}

// Engine advances keyword cursors and resolves the index to a stored URL.
type Engine struct {
	registry     *Registry
	prober       Prober
	cache        ProbeCache
	endpoint     string
	probeTimeout time.Duration
}

func NewEngine(registry *Registry, prober Prober, endpoint string, probeTimeout time.Duration) *Engine {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	return &Engine{
		registry:     registry,
		prober:       prober,
		endpoint:     endpoint,
		probeTimeout: probeTimeout,
	}
}

// WithCache enables the probe cache. A nil cache disables it.
func (e *Engine) WithCache(cache ProbeCache) *Engine {
	e.cache = cache
	return e
}

// Resolve advances the cursor of keyword and returns the first candidate that
// exists. ErrNoMedia is returned without probing when nothing is stored;
// ErrProbeExhausted when every candidate was absent. On ErrProbeExhausted the
// returned Resolution still carries the computed index.
func (e *Engine) Resolve(ctx context.Context, keyword string) (Resolution, error) {
	current, err := e.registry.Advance(keyword)
	if err != nil {
		return Resolution{Keyword: current.Name, Emblem: current.Emblem}, err
	}
	res := Resolution{Keyword: current.Name, Emblem: current.Emblem, Index: current.Cursor}

	if e.cache != nil {
		url, ok, err := e.cache.Lookup(ctx, res.Keyword, res.Index)
		if err != nil {
			log.Printf("pets: probe cache lookup %s-%04d: %v", res.Keyword, res.Index, err)
		} else if ok {
			res.URL = url
			res.Cached = true
			return res, nil
		}
	}

	for _, candidate := range Candidates(e.endpoint, res.Keyword, res.Index) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.probe(ctx, candidate) {
			res.URL = candidate
			if e.cache != nil {
				if err := e.cache.Store(ctx, res.Keyword, res.Index, candidate); err != nil {
					log.Printf("pets: probe cache store %s-%04d: %v", res.Keyword, res.Index, err)
				}
			}
			return res, nil
		}
	}
	return res, fmt.Errorf("%s index %04d: %w", res.Keyword, res.Index, ErrProbeExhausted)
}

func (e *Engine) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()
	return e.prober.Exists(ctx, url)
}
