package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/db"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/geo"
)

func newTestRepo(t *testing.T) interfaces.Repository {
	t.Helper()
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, database.Connect(ctx))
	require.NoError(t, database.Migrate(ctx, db.AllSchemas()))

	profiles := database.Repository(entities.ProfileSchema)
	_, err := profiles.Create(ctx, map[string]interface{}{
		"id":           "user-1",
		"display_name": "María",
	})
	require.NoError(t, err)

	return database.Repository(entities.AnimalSchema)
}

func seedAnimals(t *testing.T, repo interfaces.Repository, n int, status string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := repo.Create(ctx, map[string]interface{}{
			"name":        fmt.Sprintf("Animal %02d", i),
			"species":     entities.SpeciesDog,
			"status":      status,
			"age":         "2 años",
			"size":        "mediano",
			"description": "amistoso",
			"location":    "San Juan",
			"image_url":   "https://cdn.example.com/a.jpg",
			"user_id":     "user-1",
		})
		require.NoError(t, err)
	}
}

func TestStoreFirstPage(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 10, entities.StatusAvailable)

	s := NewStore(repo, 8, nil)
	list, err := s.Refresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, list, 8)
	assert.True(t, s.HasMore())
}

func TestStoreLoadMoreAppends(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 10, entities.StatusAvailable)

	ctx := context.Background()
	s := NewStore(repo, 8, nil)
	_, err := s.Refresh(ctx)
	require.NoError(t, err)

	list, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 10)
	assert.False(t, s.HasMore())

	// Further calls are no-ops once the last page was reached.
	list, err = s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}

func TestStoreHasMoreOnExactMultiple(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 16, entities.StatusAvailable)

	ctx := context.Background()
	s := NewStore(repo, 8, nil)
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, s.HasMore())

	list, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 16)
	// Second page was full but the total is exhausted.
	assert.False(t, s.HasMore())
}

func TestStoreNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 3, entities.StatusAvailable)

	s := NewStore(repo, 8, nil)
	list, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt),
			"feed must be ordered newest first")
	}
}

func TestStoreSetFilterResetsPagination(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 10, entities.StatusAvailable)
	seedAnimals(t, repo, 3, entities.StatusLost)

	ctx := context.Background()
	s := NewStore(repo, 8, nil)
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	_, err = s.LoadMore(ctx)
	require.NoError(t, err)

	tab := TabLost
	list, err := s.SetFilter(ctx, FilterPatch{Tab: &tab})
	require.NoError(t, err)

	assert.Len(t, list, 3)
	assert.False(t, s.HasMore())
	for _, a := range list {
		assert.Equal(t, entities.StatusLost, a.Status)
	}
}

func TestStoreProximityShrinksPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Four lost reports near the anchor, four far, interleaved so each
	// raw page contains both.
	lat := -31.5375
	for i := 0; i < 8; i++ {
		recordLat := lat
		if i%2 == 1 {
			recordLat = lat + 0.5
		}
		_, err := repo.Create(ctx, map[string]interface{}{
			"name":        fmt.Sprintf("Perdido %d", i),
			"species":     entities.SpeciesDog,
			"status":      entities.StatusLost,
			"age":         "1 año",
			"size":        "chico",
			"description": "visto por última vez en el parque",
			"location":    "San Juan",
			"latitude":    recordLat,
			"longitude":   -68.5364,
			"image_url":   "https://cdn.example.com/p.jpg",
			"user_id":     "user-1",
		})
		require.NoError(t, err)
	}

	s := NewStore(repo, 8, nil)
	prox := true
	tab := TabLost
	anchor := geo.Point{Lat: lat, Lng: -68.5364}
	list, err := s.SetFilter(ctx, FilterPatch{
		Tab:       &tab,
		Proximity: &prox,
		Anchor:    &anchor,
	})
	require.NoError(t, err)

	// The raw page held 8 rows; only the 4 near ones survive.
	assert.Len(t, list, 4)
	for _, a := range list {
		require.NotNil(t, a.Latitude)
		assert.InDelta(t, lat, *a.Latitude, 0.001)
	}
}

func TestStoreSearchMatchesLocationOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Neither name nor description contains the search text.
	_, err := repo.Create(ctx, map[string]interface{}{
		"name":        "Luna",
		"species":     entities.SpeciesCat,
		"status":      entities.StatusAvailable,
		"age":         "2 años",
		"size":        "chico",
		"description": "muy tranquila",
		"location":    "Rawson, San Juan",
		"image_url":   "https://cdn.example.com/l.jpg",
		"user_id":     "user-1",
	})
	require.NoError(t, err)

	s := NewStore(repo, 8, nil)
	search := "rawson"
	list, err := s.SetFilter(ctx, FilterPatch{Search: &search})
	require.NoError(t, err)

	require.Len(t, list, 1, "record matching search only in location must be visible")
	assert.Equal(t, "Luna", list[0].Name)
}

// snoopRepo observes the store from inside a fetch.
type snoopRepo struct {
	interfaces.Repository
	onFindMany func()
}

func (r *snoopRepo) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if r.onFindMany != nil {
		r.onFindMany()
	}
	return r.Repository.FindMany(ctx, q)
}

func TestStoreSetFilterClearsListBeforeFetchResolves(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 5, entities.StatusAvailable)

	ctx := context.Background()
	s := NewStore(repo, 8, nil)
	_, err := s.Refresh(ctx)
	require.NoError(t, err)

	snoop := &snoopRepo{Repository: repo}
	snoop.onFindMany = func() {
		list, _, _ := s.Snapshot()
		assert.Empty(t, list, "stale rows must not show while the new filter's fetch is in flight")
	}
	s.repo = snoop

	tab := TabLost
	_, err = s.SetFilter(ctx, FilterPatch{Tab: &tab})
	require.NoError(t, err)
}

type failingRepo struct {
	interfaces.Repository
}

func (f *failingRepo) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	return nil, errors.New("backend unavailable")
}

func TestStoreFetchErrorKeepsList(t *testing.T) {
	repo := newTestRepo(t)
	seedAnimals(t, repo, 5, entities.StatusAvailable)

	ctx := context.Background()
	s := NewStore(repo, 8, nil)
	list, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)

	s.repo = &failingRepo{Repository: repo}
	list, err = s.Refresh(ctx)
	assert.Error(t, err)
	assert.Len(t, list, 5, "failed refresh leaves the previous list visible")
}

func TestComposeQuerySearch(t *testing.T) {
	f := DefaultFilter()
	f.Search = "toby"
	q := ComposeQuery(f, 8, 2)

	require.NotNil(t, q.Limit)
	require.NotNil(t, q.Offset)
	assert.Equal(t, 8, *q.Limit)
	assert.Equal(t, 16, *q.Offset)
	assert.Len(t, q.Where.OR, 3, "search spans name, description, and location")
	assert.Equal(t, []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}}, q.OrderBy)
}
