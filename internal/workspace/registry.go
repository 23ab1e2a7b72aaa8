package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/metrics"
	"github.com/dgallion1/closereader/internal/paginator"
	"github.com/dgallion1/closereader/internal/reader"
)

// hydrateConcurrency bounds parallel remote fetches when a workspace is
// first built.
const hydrateConcurrency = 4

// Registry holds one Workspace per user. Idle workspaces expire after the
// configured TTL; every Get pushes the expiry back.
type Registry struct {
	items    *gocache.Cache
	building singleflight.Group // one build per user at a time
	ttl      time.Duration
	catalog  *catalog.Catalog
	pages    *paginator.Cache
	pageSize int
	remote   Persistence
	sync     Syncer
	log      *slog.Logger
}

// RegistryConfig carries a Registry's collaborators.
type RegistryConfig struct {
	TTL      time.Duration
	PageSize int
	Catalog  *catalog.Catalog
	Pages    *paginator.Cache
	Remote   Persistence
	Sync     Syncer
	Logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.PageSize <= 0 {
		cfg.PageSize = paginator.DefaultPageSize
	}
	if cfg.Pages == nil {
		cfg.Pages = paginator.NewCache(time.Hour, 10*time.Minute)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cleanup := cfg.TTL / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	items := gocache.New(cfg.TTL, cleanup)
	items.OnEvicted(func(string, interface{}) {
		metrics.Workspaces.Dec()
	})
	return &Registry{
		items:    items,
		ttl:      cfg.TTL,
		catalog:  cfg.Catalog,
		pages:    cfg.Pages,
		pageSize: cfg.PageSize,
		remote:   cfg.Remote,
		sync:     cfg.Sync,
		log:      cfg.Logger,
	}
}

// Get returns the workspace of userID, building and hydrating it on first
// use. Hydration failures are logged; the workspace starts from whatever
// loaded.
func (r *Registry) Get(ctx context.Context, userID string) *Workspace {
	if v, ok := r.items.Get(userID); ok {
		w := v.(*Workspace)
		r.items.Set(userID, w, gocache.DefaultExpiration)
		return w
	}

	// Callers for the same user share one build; the build outlives a
	// caller whose request is cancelled.
	ctx = context.WithoutCancel(ctx)
	v, _, _ := r.building.Do(userID, func() (interface{}, error) {
		if v, ok := r.items.Get(userID); ok {
			return v, nil
		}
		w := r.newWorkspace(userID)
		if err := r.hydrate(ctx, w); err != nil {
			r.log.Warn("workspace hydration incomplete", "user_id", userID, "error", err)
		}
		r.items.Set(userID, w, gocache.DefaultExpiration)
		metrics.Workspaces.Inc()
		return w, nil
	})
	return v.(*Workspace)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

func (r *Registry) newWorkspace(userID string) *Workspace {
	return &Workspace{
		UserID:      userID,
		annotations: annotation.NewStore(),
		argument:    argument.NewStore(uuid.NewString),
		sessions:    make(map[string]*reader.Session),
		loaded:      make(map[string]bool),
		dropped:     make(map[string]bool),
		catalog:     r.catalog,
		pages:       r.pages,
		pageSize:    r.pageSize,
		remote:      r.remote,
		sync:        r.sync,
		log:         r.log.With("user_id", userID),
	}
}

// hydrate fetches the outline and the annotations of every catalogued text
// in parallel. Each text loads independently; the first error is returned
// after all fetches finish.
func (r *Registry) hydrate(ctx context.Context, w *Workspace) error {
	if r.remote == nil {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(hydrateConcurrency)

	g.Go(func() error { return w.LoadOutline(ctx) })
	for _, t := range r.catalog.List() {
		g.Go(func() error { return w.LoadText(ctx, t.ID) })
	}
	return g.Wait()
}
