package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pintopics/api/internal/blob"
	"pintopics/api/internal/chat"
	"pintopics/api/internal/config"
	"pintopics/api/internal/metrics"
	"pintopics/api/internal/pets"
	"pintopics/api/internal/rbac"
	"pintopics/api/internal/store"
)

type eventLog interface {
	Record(context.Context, store.Event) error
	Recent(context.Context, int) ([]store.Event, error)
	Ping(context.Context) error
}

type probeCache interface {
	pets.ProbeCache
	Ping(context.Context) error
}

// Deps are the collaborators built by main. Cache, Events and Metrics are
// optional.
type Deps struct {
	Blob    blob.Store
	Prober  pets.Prober
	Cache   probeCache
	Poster  chat.Poster
	Events  eventLog
	Metrics *metrics.Metrics
}

type Service struct {
	cfg        config.Config
	blob       blob.Store
	registry   *pets.Registry
	suppress   *pets.SuppressionList
	reconciler *pets.Reconciler
	engine     *pets.Engine
	uploader   *pets.Uploader
	poster     chat.Poster
	cache      probeCache
	events     eventLog
	metrics    *metrics.Metrics
	allow      rbac.AllowList
}

func New(cfg config.Config, deps Deps) *Service {
	registry := pets.NewRegistry(deps.Blob, cfg.DefaultEmblem, pets.BuiltinDefaults)
	reconciler := pets.NewReconciler(deps.Blob, registry)
	reconciler.OnCount(deps.Metrics.SetItems)

	engine := pets.NewEngine(registry, deps.Prober, cfg.ContentEndpoint, cfg.ProbeTimeout)
	if deps.Cache != nil {
		engine.WithCache(deps.Cache)
	}

	poster := deps.Poster
	if poster == nil {
		poster = chat.LogPoster{}
	}

	return &Service{
		cfg:        cfg,
		blob:       deps.Blob,
		registry:   registry,
		suppress:   pets.NewSuppressionList(deps.Blob),
		reconciler: reconciler,
		engine:     engine,
		uploader:   pets.NewUploader(deps.Blob, registry, reconciler),
		poster:     poster,
		cache:      deps.Cache,
		events:     deps.Events,
		metrics:    deps.Metrics,
		allow:      rbac.NewAllowList(cfg.AdminIDs),
	}
}

// Bootstrap restores persisted state and reconciles counts. Any failure
// should abort startup: serving with unknown counts rotates over wrong items.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}
	if err := s.suppress.Load(ctx); err != nil {
		return err
	}
	if _, err := s.reconciler.ReconcileAll(ctx); err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	return nil
}

// HandleMessage resolves every registered keyword mentioned in the event, in
// registry order, and posts the URL plus an acknowledgment for each hit. A
// failure for one keyword never stops the others.
func (s *Service) HandleMessage(ctx context.Context, event chat.MessageEvent) int {
	if event.AuthorIsBot {
		return 0
	}
	if s.suppress.ContainsAny(event.Text) {
		return 0
	}

	lowered := strings.ToLower(event.Text)
	posted := 0
	for _, entry := range s.registry.List() {
		if !strings.Contains(lowered, entry.Name) {
			continue
		}
		posted += s.resolveAndPost(ctx, event, entry.Name)
	}
	return posted
}

func (s *Service) resolveAndPost(ctx context.Context, event chat.MessageEvent, keyword string) int {
	res, err := s.engine.Resolve(ctx, keyword)
	switch {
	case errors.Is(err, pets.ErrNoMedia):
		log.Printf("app: [user %s] [%s] no media uploaded yet", event.Author, keyword)
		s.metrics.RecordResolution(keyword, metrics.OutcomeNoMedia, false)
		return 0
	case errors.Is(err, pets.ErrProbeExhausted):
		log.Printf("app: [user %s] [%s] media not found index %04d", event.Author, keyword, res.Index)
		s.metrics.RecordResolution(keyword, metrics.OutcomeProbeExhausted, false)
		return 0
	case err != nil:
		log.Printf("app: [user %s] [%s] resolve failed: %v", event.Author, keyword, err)
		s.metrics.RecordResolution(keyword, metrics.OutcomeError, false)
		return 0
	}

	log.Printf("app: [user %s] [%s] found %s", event.Author, keyword, res.URL)
	s.metrics.RecordResolution(keyword, metrics.OutcomeFound, res.Cached)

	posted := 0
	for _, text := range []string{res.URL, chat.Acknowledgment(res.Emblem, res.Keyword)} {
		if err := s.poster.Post(ctx, event.ChannelID, text, s.cfg.PostExpiry); err != nil {
			log.Printf("app: [user %s] [%s] post to channel %s failed: %v", event.Author, keyword, event.ChannelID, err)
			return posted
		}
		posted++
	}
	return posted
}

func (s *Service) Upload(ctx context.Context, caller string, input pets.UploadInput) (map[string]any, error) {
	if !s.allow.Allows(caller, rbac.ActionUpload) {
		return nil, errUnauthorized("upload media")
	}

	key, err := s.uploader.Upload(ctx, input)
	if err != nil {
		var validationErr *pets.ValidationError
		if errors.As(err, &validationErr) {
			s.metrics.RecordUpload("rejected")
		} else {
			s.metrics.RecordUpload("failed")
			log.Printf("app: [user %s] upload for %s failed: %v", caller, input.Keyword, err)
		}
		return nil, asDomainError(err)
	}
	s.metrics.RecordUpload("stored")

	keyword := pets.Normalize(input.Keyword)
	s.record(ctx, store.Event{Kind: store.EventUpload, Keyword: keyword, Detail: key, Actor: caller})

	entry, _ := s.registry.Get(keyword)
	return map[string]any{
		"key":       key,
		"keyword":   keyword,
		"itemCount": entry.ItemCount,
	}, nil
}

func (s *Service) ListKeywords(caller string) ([]map[string]any, error) {
	if !s.allow.Allows(caller, rbac.ActionList) {
		return nil, errUnauthorized("list keywords")
	}
	entries := s.registry.List()
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"name":      entry.Name,
			"emblem":    entry.Emblem,
			"itemCount": entry.ItemCount,
		})
	}
	return out, nil
}

// RegisterKeyword is the explicit opt-in step for new keywords; chat text
// never registers keywords on its own.
func (s *Service) RegisterKeyword(ctx context.Context, caller, name, emblem string) (map[string]any, error) {
	if !s.allow.Allows(caller, rbac.ActionUpload) {
		return nil, errUnauthorized("register keywords")
	}
	name = pets.Normalize(name)
	if name == "" {
		return nil, errValidation("name is required")
	}

	created, err := s.registry.Upsert(ctx, name, strings.TrimSpace(emblem))
	if err != nil {
		return nil, asDomainError(err)
	}
	if created {
		s.record(ctx, store.Event{Kind: store.EventRegister, Keyword: name, Actor: caller})
	}
	entry, _ := s.registry.Get(name)
	return map[string]any{
		"name":      entry.Name,
		"emblem":    entry.Emblem,
		"itemCount": entry.ItemCount,
		"created":   created,
	}, nil
}

func (s *Service) SetEmblem(ctx context.Context, caller, keyword, emblem string) error {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return errUnauthorized("set emblems")
	}
	keyword = pets.Normalize(keyword)
	emblem = strings.TrimSpace(emblem)
	if keyword == "" || emblem == "" {
		return errValidation("keyword and emblem are required")
	}
	if err := s.registry.SetEmblem(ctx, keyword, emblem); err != nil {
		return asDomainError(err)
	}
	s.record(ctx, store.Event{Kind: store.EventSetEmblem, Keyword: keyword, Detail: emblem, Actor: caller})
	return nil
}

func (s *Service) Suppressions(caller string) ([]string, error) {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return nil, errUnauthorized("view suppressed terms")
	}
	return s.suppress.Terms(), nil
}

// SuppressAdd reports false when the term was already present.
func (s *Service) SuppressAdd(ctx context.Context, caller, term string) (bool, error) {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return false, errUnauthorized("suppress terms")
	}
	added, err := s.suppress.Add(ctx, term)
	if err != nil {
		return false, asDomainError(err)
	}
	if added {
		s.record(ctx, store.Event{Kind: store.EventSuppressAdd, Detail: pets.Normalize(term), Actor: caller})
	}
	return added, nil
}

// SuppressRemove reports false when the term was not present.
func (s *Service) SuppressRemove(ctx context.Context, caller, term string) (bool, error) {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return false, errUnauthorized("unsuppress terms")
	}
	removed, err := s.suppress.Remove(ctx, term)
	if err != nil {
		return false, asDomainError(err)
	}
	if removed {
		s.record(ctx, store.Event{Kind: store.EventSuppressRemove, Detail: pets.Normalize(term), Actor: caller})
	}
	return removed, nil
}

// Reconcile forces a full rescan of the bucket.
func (s *Service) Reconcile(ctx context.Context, caller string) (map[string]int, error) {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return nil, errUnauthorized("reconcile")
	}
	counts, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Printf("app: [user %s] reconcile failed: %v", caller, err)
		return nil, asDomainError(err)
	}
	s.record(ctx, store.Event{Kind: store.EventReconcile, Detail: fmt.Sprint(counts), Actor: caller})
	return counts, nil
}

func (s *Service) RecentEvents(ctx context.Context, caller string, limit int) ([]store.Event, error) {
	if !s.allow.Allows(caller, rbac.ActionAdmin) {
		return nil, errUnauthorized("view the audit log")
	}
	if s.events == nil {
		return nil, domainError(404, "AUDIT_DISABLED", "Audit log is not configured", nil)
	}
	events, err := s.events.Recent(ctx, limit)
	if err != nil {
		log.Printf("app: list audit events: %v", err)
		return nil, domainError(503, "AUDIT_UNAVAILABLE", "Audit log is unavailable", nil)
	}
	return events, nil
}

// Ready checks every configured backend.
func (s *Service) Ready(ctx context.Context) (map[string]any, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ready := true
	checks := map[string]any{}
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}

	check("storage", s.blob.Ping)
	if s.cache != nil {
		check("cache", s.cache.Ping)
	}
	if s.events != nil {
		check("database", s.events.Ping)
	}
	return checks, ready
}

// record writes an audit event; failures are logged only.
func (s *Service) record(ctx context.Context, event store.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, event); err != nil {
		log.Printf("app: record %s event: %v", event.Kind, err)
	}
}
