package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}}
}

func (m *memBackend) Name() string { return "memory" }

func (m *memBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memBackend) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) Close() error { return nil }

type MockBackend struct{ mock.Mock }

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBackend) Save(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockBackend) Close() error { return nil }

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func newTestStore(t *testing.T, backend domain.Backend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs())}, opts...)
	return New(context.Background(), backend, logger.NewNop(), opts...)
}

func maize() *domain.Listing {
	return &domain.Listing{
		Title:         "Maize",
		Category:      domain.CategoryFood,
		Description:   "Two bags, dry",
		Price:         "KES 3000",
		SellerName:    "Sarah",
		ContactMethod: domain.ContactPhone,
		Location: &domain.Location{
			Coordinates: &domain.Coordinates{Latitude: 0.2, Longitude: 35.1, Accuracy: 12},
			Source:      domain.SourceGPS,
			Landmark:    "Posta",
		},
		CreatedAt:    fixedNow.Add(-time.Hour),
		LastModified: fixedNow.Add(-time.Hour),
	}
}

func TestStore_AddRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	in := maize()
	added, err := s.Add(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "id-1", added.ID)
	assert.Empty(t, in.ID, "caller's record must not be mutated")

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	want := maize()
	want.ID = added.ID
	assert.Equal(t, want, all[0])
}

func TestStore_ReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	s := newTestStore(t, backend)

	_, err := s.Add(ctx, maize())
	require.NoError(t, err)
	goat := &domain.Listing{Title: "Goat", Category: domain.CategoryLivestock, SellerName: "Kip"}
	_, err = s.Add(ctx, goat)
	require.NoError(t, err)

	before, err := s.GetAll(ctx)
	require.NoError(t, err)

	reopened := newTestStore(t, backend)
	after, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, reopened.Reload(ctx))
	again, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(backend.data[ListingsKey], &raw))
	assert.Len(t, raw, 2)
	assert.Equal(t, "Maize", raw[0]["title"])
}

func TestStore_GetAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	for _, title := range []string{"c", "a", "b"} {
		_, err := s.Add(ctx, &domain.Listing{Title: title, Category: domain.CategoryTools, SellerName: "x"})
		require.NoError(t, err)
	}

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	titles := []string{all[0].Title, all[1].Title, all[2].Title}
	assert.Equal(t, []string{"c", "a", "b"}, titles)
}

func TestStore_AddDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	_, err := s.Add(ctx, &domain.Listing{ID: "fixed", Title: "a"})
	require.NoError(t, err)
	_, err = s.Add(ctx, &domain.Listing{ID: "fixed", Title: "b"})
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	added, err := s.Add(ctx, maize())
	require.NoError(t, err)
	other, err := s.Add(ctx, &domain.Listing{Title: "Hoe", Category: domain.CategoryTools, SellerName: "Ann"})
	require.NoError(t, err)

	t.Run("existing id", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, added.ID))
		all, _ := s.GetAll(ctx)
		for _, l := range all {
			assert.NotEqual(t, added.ID, l.ID)
		}
	})

	t.Run("unknown id leaves the collection unchanged", func(t *testing.T) {
		before, _ := s.GetAll(ctx)
		err := s.Delete(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
		after, _ := s.GetAll(ctx)
		assert.Equal(t, before, after)
		assert.Equal(t, other.ID, after[0].ID)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	added, err := s.Add(ctx, maize())
	require.NoError(t, err)

	t.Run("replaces record and preserves createdAt", func(t *testing.T) {
		edit := added.Clone()
		edit.Title = "Maize (white)"
		edit.CreatedAt = time.Time{}

		updated, err := s.Update(ctx, edit)
		require.NoError(t, err)
		assert.Equal(t, "Maize (white)", updated.Title)
		assert.Equal(t, added.CreatedAt, updated.CreatedAt)
		assert.Equal(t, fixedNow, updated.LastModified)
	})

	t.Run("unknown id", func(t *testing.T) {
		before, _ := s.GetAll(ctx)
		_, err := s.Update(ctx, &domain.Listing{ID: "missing", Title: "x"})
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
		after, _ := s.GetAll(ctx)
		assert.Equal(t, before, after)
	})
}

func TestStore_Mutate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())
	added, err := s.Add(ctx, maize())
	require.NoError(t, err)

	got, err := s.Mutate(ctx, added.ID, func(l *domain.Listing) error {
		l.Views++
		l.ID = "hijacked"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)
	assert.Equal(t, added.ID, got.ID)

	boom := errors.New("boom")
	_, err = s.Mutate(ctx, added.ID, func(l *domain.Listing) error {
		l.Views = 100
		return boom
	})
	assert.ErrorIs(t, err, boom)
	stored, _ := s.Get(ctx, added.ID)
	assert.Equal(t, 1, stored.Views)

	_, err = s.Mutate(ctx, "missing", func(*domain.Listing) error { return nil })
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())
	added, err := s.Add(ctx, maize())
	require.NoError(t, err)

	got, _ := s.Get(ctx, added.ID)
	got.Title = "changed"
	got.Location.Coordinates.Latitude = 45

	again, _ := s.Get(ctx, added.ID)
	assert.Equal(t, "Maize", again.Title)
	assert.Equal(t, 0.2, again.Location.Coordinates.Latitude)
}

func TestStore_DegradesOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	backend.On("Load", mock.Anything, mock.Anything).Return(nil, nil)
	backend.On("Save", mock.Anything, ListingsKey, mock.Anything).Return(errors.New("disk full")).Once()

	hookCalls := 0
	s := newTestStore(t, backend, WithDegradedHook(func(error) { hookCalls++ }))
	assert.False(t, s.Status().Degraded)

	first, err := s.Add(ctx, maize())
	require.NoError(t, err)
	assert.False(t, first.PostedOffline)

	second, err := s.Add(ctx, maize())
	require.NoError(t, err)
	assert.True(t, second.PostedOffline)

	st := s.Status()
	assert.True(t, st.Degraded)
	assert.Equal(t, 2, st.Count)
	assert.Contains(t, st.LastError, "disk full")
	assert.Equal(t, 1, hookCalls)
	backend.AssertNumberOfCalls(t, "Save", 1)

	assert.ErrorIs(t, s.Reload(ctx), domain.ErrPersistenceUnavailable)
	all, _ := s.GetAll(ctx)
	assert.Len(t, all, 2)
}

func TestStore_DegradesOnLoadFailure(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Load", mock.Anything, ListingsKey).Return(nil, errors.New("connection refused"))

	s := newTestStore(t, backend)

	st := s.Status()
	assert.True(t, st.Degraded)
	assert.Equal(t, "mock", st.Backend)

	_, err := s.Add(context.Background(), maize())
	require.NoError(t, err)
	backend.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_NilBackend(t *testing.T) {
	s := newTestStore(t, nil)

	st := s.Status()
	assert.True(t, st.Degraded)
	assert.Equal(t, "none", st.Backend)

	added, err := s.Add(context.Background(), maize())
	require.NoError(t, err)
	assert.True(t, added.PostedOffline)
}

func TestStore_CorruptPayloadStartsEmpty(t *testing.T) {
	backend := newMemBackend()
	backend.data[ListingsKey] = []byte("{not json")

	s := newTestStore(t, backend)

	assert.False(t, s.Status().Degraded)
	all, _ := s.GetAll(context.Background())
	assert.Empty(t, all)
}

func TestStore_NullRecordsAreDropped(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	backend.data[ListingsKey] = []byte(`[null, {"id":"keep","title":"Maize","category":"food","sellerName":"Sarah"}, null]`)

	s := newTestStore(t, backend)
	assert.False(t, s.Status().Degraded)
	assert.Equal(t, 1, s.Status().Count)

	added, err := s.Add(ctx, maize())
	require.NoError(t, err)

	got, err := s.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "Maize", got.Title)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, added.ID, all[1].ID)
	assert.NotContains(t, string(backend.data[ListingsKey]), "null")
}

func TestStore_Expire(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemBackend())

	old := maize()
	old.CreatedAt = fixedNow.AddDate(0, 0, -31)
	oldAdded, err := s.Add(ctx, old)
	require.NoError(t, err)
	fresh, err := s.Add(ctx, maize())
	require.NoError(t, err)
	require.NoError(t, s.AddFavorite(ctx, oldAdded.ID))

	removed, err := s.Expire(ctx, fixedNow.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, []string{oldAdded.ID}, removed)

	all, _ := s.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, fresh.ID, all[0].ID)

	favs, _ := s.Favorites(ctx)
	assert.Empty(t, favs)

	removed, err = s.Expire(ctx, fixedNow.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestStore_Favorites(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	s := newTestStore(t, backend)

	a, _ := s.Add(ctx, maize())
	b, _ := s.Add(ctx, maize())

	assert.ErrorIs(t, s.AddFavorite(ctx, "missing"), domain.ErrListingNotFound)
	require.NoError(t, s.AddFavorite(ctx, a.ID))
	require.NoError(t, s.AddFavorite(ctx, a.ID))
	require.NoError(t, s.AddFavorite(ctx, b.ID))

	favs, _ := s.Favorites(ctx)
	assert.Equal(t, []string{a.ID, b.ID}, favs)

	reopened := newTestStore(t, backend)
	favs, _ = reopened.Favorites(ctx)
	assert.Equal(t, []string{a.ID, b.ID}, favs)

	require.NoError(t, s.Delete(ctx, a.ID))
	require.NoError(t, s.RemoveFavorite(ctx, "never-marked"))
	favs, _ = s.Favorites(ctx)
	assert.Equal(t, []string{b.ID}, favs)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	s := New(ctx, backend, logger.NewNop())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Add(ctx, &domain.Listing{Title: fmt.Sprintf("item %d", i), Category: domain.CategoryOther, SellerName: "x"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Status().Count)

	var persisted []*domain.Listing
	require.NoError(t, json.Unmarshal(backend.data[ListingsKey], &persisted))
	assert.Len(t, persisted, n)

	seen := map[string]bool{}
	for _, l := range persisted {
		assert.False(t, seen[l.ID], "duplicate id %s", l.ID)
		seen[l.ID] = true
	}
}
