package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/conductores_admin/internal/domain"
)

func page(names ...string) *domain.ListResult {
	data := make([]domain.Conductor, len(names))
	for i, n := range names {
		data[i] = domain.Conductor{ID: int64(i + 1), Nombre: n}
	}
	return &domain.ListResult{Success: true, Data: data, Count: len(names), CurrentPage: 1, TotalPages: 1}
}

func TestRecordStoreReplace(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	s := r.Acquire("")

	snap := s.Snapshot()
	assert.False(t, snap.Loaded)
	assert.Equal(t, LayoutGrid, snap.Layout)

	params := domain.ListParams{
		Page:  1,
		Limit: 10,
		Selection: domain.FilterSelection{
			Search: "Pérez",
			Facets: map[string][]string{domain.FacetEstado: {"disponible"}},
		},
		Sort: domain.SortDescriptor{Field: "apellido", Direction: domain.SortAsc},
	}
	s.Replace(page("Ana", "Beto"), params)
	s.Replace(page("Carla"), params)

	snap = s.Snapshot()
	require.True(t, snap.Loaded)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Carla", snap.Records[0].Nombre)
	assert.Equal(t, 10, snap.Pagination.Limit)
	assert.Equal(t, "Pérez", snap.Selection.Search)

	snap.Records[0].Nombre = "mutated"
	assert.Equal(t, "Carla", s.Snapshot().Records[0].Nombre)
}

func TestRegistryAcquire(t *testing.T) {
	r := NewRegistry(time.Minute, nil)

	t.Run("Malformed id gets a fresh uuid", func(t *testing.T) {
		s := r.Acquire("not-a-uuid")
		_, err := uuid.Parse(s.ID())
		require.NoError(t, err)
	})

	t.Run("Known id returns the same store", func(t *testing.T) {
		id := uuid.NewString()
		a := r.Acquire(id)
		b := r.Acquire(id)
		assert.Same(t, a, b)
		got, ok := r.Lookup(id)
		require.True(t, ok)
		assert.Same(t, a, got)
	})

	t.Run("Unknown lookup", func(t *testing.T) {
		_, ok := r.Lookup(uuid.NewString())
		assert.False(t, ok)
	})
}

func TestRegistryEvict(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := NewRegistry(10*time.Minute, nil)
	r.now = func() time.Time { return now }

	idle := r.Acquire("")
	now = now.Add(8 * time.Minute)
	fresh := r.Acquire("")
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, r.Evict())
	_, ok := r.Lookup(idle.ID())
	assert.False(t, ok)
	_, ok = r.Lookup(fresh.ID())
	assert.True(t, ok)
}

func TestRecordStoreConcurrentReplace(t *testing.T) {
	s := NewRegistry(0, nil).Acquire("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Replace(page("A", "B", "C"), domain.ListParams{Limit: 3})
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().Records, 3)
}

func TestParseLayout(t *testing.T) {
	l, ok := ParseLayout(" LIST ")
	assert.True(t, ok)
	assert.Equal(t, LayoutList, l)
	_, ok = ParseLayout("mosaic")
	assert.False(t, ok)
}
