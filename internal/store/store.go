package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/metrics"
	"github.com/locvowork/conductores_admin/internal/upload"
)

// Layout is how the browser renders the listing.
type Layout string

const (
	LayoutGrid Layout = "grid"
	LayoutList Layout = "list"
)

// ParseLayout returns the layout for s and false when s is not a known layout.
func ParseLayout(s string) (Layout, bool) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutGrid:
		return LayoutGrid, true
	case LayoutList:
		return LayoutList, true
	}
	return "", false
}

// Pagination mirrors the paging fields of the last list response.
type Pagination struct {
	Count       int `json:"count"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

// Snapshot is a consistent copy of a view's state.
type Snapshot struct {
	ID         string                 `json:"vista_id"`
	Records    []domain.Conductor     `json:"data"`
	Pagination Pagination             `json:"pagination"`
	Selection  domain.FilterSelection `json:"selection"`
	Sort       domain.SortDescriptor  `json:"sort"`
	Layout     Layout                 `json:"layout"`
	Loaded     bool                   `json:"loaded"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// RecordStore caches the latest list response for one view.
// Contents are replaced wholesale; the last Replace wins.
type RecordStore struct {
	id      string
	staging *upload.Staging

	mu         sync.RWMutex
	records    []domain.Conductor
	pagination Pagination
	selection  domain.FilterSelection
	sort       domain.SortDescriptor
	layout     Layout
	loaded     bool
	updatedAt  time.Time
	lastSeen   time.Time
}

func newRecordStore(id string, now time.Time) *RecordStore {
	return &RecordStore{
		id:       id,
		staging:  upload.NewStaging(),
		layout:   LayoutGrid,
		lastSeen: now,
	}
}

func (s *RecordStore) ID() string {
	return s.id
}

// Staging returns the view's staged uploads.
func (s *RecordStore) Staging() *upload.Staging {
	return s.staging
}

// Replace swaps records, pagination, selection and sort in one step.
func (s *RecordStore) Replace(result *domain.ListResult, params domain.ListParams) {
	records := make([]domain.Conductor, len(result.Data))
	copy(records, result.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.pagination = Pagination{
		Count:       result.Count,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		Limit:       params.Limit,
	}
	s.selection = params.Selection
	s.sort = params.Sort
	s.loaded = true
	s.updatedAt = time.Now()
}

// SetLayout changes the rendering flag.
func (s *RecordStore) SetLayout(l Layout) {
	s.mu.Lock()
	s.layout = l
	s.mu.Unlock()
}

// Snapshot copies the current state. Records may be reordered by the caller.
func (s *RecordStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.Conductor, len(s.records))
	copy(records, s.records)
	return Snapshot{
		ID:         s.id,
		Records:    records,
		Pagination: s.pagination,
		Selection:  s.selection,
		Sort:       s.sort,
		Layout:     s.layout,
		Loaded:     s.loaded,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *RecordStore) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *RecordStore) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

// Registry owns every view's RecordStore.
type Registry struct {
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	views map[string]*RecordStore
}

func NewRegistry(ttl time.Duration, m *metrics.Metrics) *Registry {
	return &Registry{
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
		views:   make(map[string]*RecordStore),
	}
}

// Acquire returns the store for id, creating it when absent. An empty or
// malformed id gets a fresh uuid; callers must echo the returned store's ID.
func (r *Registry) Acquire(id string) *RecordStore {
	now := r.now()
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.views[id]
	if !ok {
		s = newRecordStore(id, now)
		r.views[id] = s
		r.metrics.SetActiveViews(len(r.views), 0)
	}
	s.touch(now)
	return s
}

// Lookup returns an existing store without creating one.
func (r *Registry) Lookup(id string) (*RecordStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.views[id]
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Evict drops views idle for longer than the TTL and returns how many went.
func (r *Registry) Evict() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.views {
		if s.idleSince(now) > r.ttl {
			delete(r.views, id)
			evicted++
		}
	}
	r.metrics.SetActiveViews(len(r.views), evicted)
	return evicted
}

// Run evicts idle views every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				logger.DebugLog(ctx, "evicted %d idle views", n)
			}
		}
	}
}
