package pets

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"pintopics/api/internal/blob"
)

// CountObserver is told the reconciled item count of each keyword.
type CountObserver func(keyword string, count int)

// Reconciler refreshes registry item counts from the bucket listing.
//
// The item count is the number of objects under the keyword prefix, while
// the next free index is the highest parsed index plus one. The two only
// agree when indices are dense from 1; a gap leaves the highest items
// unreachable by rotation.
type Reconciler struct {
	store    blob.Store
	registry *Registry
	observe  CountObserver
	// listLimit bounds concurrent listings during a full rescan.
	listLimit int
	mu        sync.Mutex
}

func NewReconciler(store blob.Store, registry *Registry) *Reconciler {
	return &Reconciler{store: store, registry: registry, listLimit: 4}
}

// OnCount installs an observer called after every count update.
func (r *Reconciler) OnCount(observe CountObserver) {
	r.observe = observe
}

// Reconcile recounts one keyword, rewinds its cursor and persists the registry.
func (r *Reconciler) Reconcile(ctx context.Context, keyword string) (int, error) {
	keyword = Normalize(keyword)
	if _, ok := r.registry.Get(keyword); !ok {
		return 0, fmt.Errorf("reconcile %s: %w", keyword, ErrUnknownKeyword)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.count(ctx, keyword)
	if err != nil {
		return 0, err
	}
	r.apply(keyword, count)
	if err := r.registry.Save(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// ReconcileAll recounts every registered keyword and persists once. Listings
// run concurrently; counts are applied only when every listing succeeded.
func (r *Reconciler) ReconcileAll(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.registry.Names()
	found := make([]int, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.listLimit)
	for i, keyword := range names {
		g.Go(func() error {
			count, err := r.count(gctx, keyword)
			if err != nil {
				return err
			}
			found[i] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(names))
	for i, keyword := range names {
		r.apply(keyword, found[i])
		counts[keyword] = found[i]
	}
	if err := r.registry.Save(ctx); err != nil {
		return nil, err
	}
	log.Printf("pets: item counts updated: %v", counts)
	return counts, nil
}

// NextFreeIndex returns max(parsed index)+1 for the keyword, or 1 when
// nothing is stored. Keys whose index does not parse are skipped.
func (r *Reconciler) NextFreeIndex(ctx context.Context, keyword string) (int, error) {
	objects, err := r.list(ctx, Normalize(keyword))
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, obj := range objects {
		index, ok := ParseIndex(obj.Key)
		if !ok {
			continue
		}
		if index > highest {
			highest = index
		}
	}
	return highest + 1, nil
}

func (r *Reconciler) count(ctx context.Context, keyword string) (int, error) {
	objects, err := r.list(ctx, keyword)
	if err != nil {
		return 0, err
	}
	return len(objects), nil
}

func (r *Reconciler) list(ctx context.Context, keyword string) ([]blob.Object, error) {
	prefix := KeyPrefix(keyword)
	objects, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", prefix, ErrStorageUnavailable, err)
	}
	return objects, nil
}

func (r *Reconciler) apply(keyword string, count int) {
	r.registry.SetItemCount(keyword, count)
	if r.observe != nil {
		r.observe(keyword, count)
	}
}
