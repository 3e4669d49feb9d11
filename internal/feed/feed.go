package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// DefaultPageSize is the number of records fetched per feed page.
const DefaultPageSize = 8

// Store is a paginated, filterable view over the animals table. It is
// safe for concurrent use; the realtime bridge refreshes it from its
// own goroutine while API handlers read it.
type Store struct {
	repo     interfaces.Repository
	pageSize int
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	filter  Filter
	list    []entities.Animal
	page    int
	hasMore bool
	loading bool
}

func NewStore(repo interfaces.Repository, pageSize int, logger *zap.SugaredLogger) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		repo:     repo,
		pageSize: pageSize,
		logger:   logger,
		filter:   DefaultFilter(),
		hasMore:  true,
	}
}

// Snapshot returns the current list, filter, and whether another page is
// available. The returned slice is a copy.
func (s *Store) Snapshot() ([]entities.Animal, Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]entities.Animal, len(s.list))
	copy(list, s.list)
	return list, s.filter, s.hasMore
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetBaseFilter replaces the whole filter without fetching. Used by
// per-request stores that refresh immediately afterwards.
func (s *Store) SetBaseFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.list = nil
	s.page = 0
	s.hasMore = true
}

// SetFilter merges the patch into the active filter, discards the
// current list, and fetches page one under the new filter. The list is
// cleared before the fetch so a slow query never shows stale rows under
// the new filter.
func (s *Store) SetFilter(ctx context.Context, patch FilterPatch) ([]entities.Animal, error) {
	s.mu.Lock()
	s.filter = patch.Apply(s.filter)
	s.list = nil
	s.page = 0
	s.hasMore = true
	s.mu.Unlock()

	return s.fetchPage(ctx, 0, true)
}

// LoadMore appends the next page to the list. It is a no-op while a
// fetch is in flight or when the last page was already reached.
func (s *Store) LoadMore(ctx context.Context) ([]entities.Animal, error) {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		list := make([]entities.Animal, len(s.list))
		copy(list, s.list)
		s.mu.Unlock()
		return list, nil
	}
	next := s.page + 1
	s.mu.Unlock()

	return s.fetchPage(ctx, next, false)
}

// Refresh re-fetches page one under the current filter, replacing the
// list. The realtime bridge calls this on every change event.
func (s *Store) Refresh(ctx context.Context) ([]entities.Animal, error) {
	return s.fetchPage(ctx, 0, true)
}

// ComposeQuery translates the filter into a backend query for one page.
// Proximity and size cannot be pushed down, so they are applied
// client-side after the fetch; everything else filters on the server.
func ComposeQuery(f Filter, pageSize, page int) *interfaces.Query {
	limit := pageSize
	offset := page * pageSize

	where := &interfaces.Filters{}

	statuses := f.Statuses()
	in := make([]interface{}, len(statuses))
	for i, status := range statuses {
		in[i] = status
	}
	where.Conditions = append(where.Conditions, interfaces.Filter{
		Field:    "status",
		Operator: &interfaces.FilterOperator{In: in},
	})

	if f.Species != "" && f.Species != FilterAll {
		where.Conditions = append(where.Conditions, interfaces.Filter{
			Field: "species",
			Value: f.Species,
		})
	}

	caseInsensitive := false
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		for _, field := range []string{"name", "description", "location"} {
			where.OR = append(where.OR, &interfaces.Filters{Conditions: []interfaces.Filter{{
				Field:    field,
				Operator: &interfaces.FilterOperator{Like: pattern, CaseSensitive: &caseInsensitive},
			}}})
		}
	}

	if f.Location != "" {
		where.Conditions = append(where.Conditions, interfaces.Filter{
			Field:    "location",
			Operator: &interfaces.FilterOperator{Like: "%" + f.Location + "%", CaseSensitive: &caseInsensitive},
		})
	}

	return &interfaces.Query{
		Where:   where,
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}},
		Limit:   &limit,
		Offset:  &offset,
	}
}

// fetchPage loads one page, applies the client-side predicates, and
// merges the result into the list. On error the list is left untouched.
func (s *Store) fetchPage(ctx context.Context, page int, replace bool) ([]entities.Animal, error) {
	s.mu.Lock()
	if s.loading {
		list := make([]entities.Animal, len(s.list))
		copy(list, s.list)
		s.mu.Unlock()
		return list, nil
	}
	s.loading = true
	filter := s.filter
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	result, err := s.repo.FindMany(ctx, ComposeQuery(filter, s.pageSize, page))
	if err != nil {
		if s.logger != nil {
			s.logger.Errorw("Feed page fetch failed", "page", page, "error", err)
		}
		s.mu.Lock()
		list := make([]entities.Animal, len(s.list))
		copy(list, s.list)
		s.mu.Unlock()
		return list, err
	}

	// A page can shrink below pageSize after the proximity and size
	// predicates run; hasMore is judged on the raw server page so a
	// thinned page does not end pagination early.
	fetched := make([]entities.Animal, 0, len(result.Data))
	for _, record := range result.Data {
		animal := entities.AnimalFromRecord(record)
		if filter.Matches(animal) {
			fetched = append(fetched, animal)
		}
	}

	offset := page * s.pageSize
	more := len(result.Data) == s.pageSize && int64(offset+s.pageSize) < result.Total

	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		s.list = fetched
	} else {
		s.list = append(s.list, fetched...)
	}
	s.page = page
	s.hasMore = more

	list := make([]entities.Animal, len(s.list))
	copy(list, s.list)
	return list, nil
}

// HasMore reports whether another page is available.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}
