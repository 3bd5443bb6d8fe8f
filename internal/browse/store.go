// Package browse holds the paginated, filtered movie collections.
//
// Three collections share one parameterized shape: popular, top rated and
// search. Each tracks its own page, genre filter, loading flag and error.
// The store serializes every state transition behind a mutex; readers get
// value snapshots and never see a half-applied update.
//
// Fetches are generation-stamped. Changing a collection's parameters bumps
// its generation, and a fetch completion is applied only if its generation
// is still current — an older response arriving after a newer parameter
// change is discarded instead of overwriting fresher state.
package browse

import (
	"context"
	"sync"

	"github.com/bryan-buckman/cinevore/internal/model"
)

// Top-rated post-filter: entries below the vote floor are dropped and the
// result is capped, in case the plain top-rated endpoint ignores the
// vote-count query parameter.
const (
	topRatedMinVotes = 100
	topRatedMaxItems = 40
)

// Kind selects one of the three collections.
type Kind int

const (
	Popular Kind = iota
	TopRated
	Search
)

func (k Kind) String() string {
	switch k {
	case TopRated:
		return "toprated"
	case Search:
		return "search"
	default:
		return "popular"
	}
}

// API is the slice of the TMDB client the store needs.
type API interface {
	PopularMovies(ctx context.Context, page int, genre *int) ([]model.Movie, error)
	TopRatedMovies(ctx context.Context, page int, genre *int) ([]model.Movie, error)
	SearchMovies(ctx context.Context, query string, page int) ([]model.Movie, error)
	Genres(ctx context.Context) ([]model.Genre, error)
}

// Snapshot is a read-only copy of one collection's state.
type Snapshot struct {
	Items         []model.Movie
	CurrentPage   int
	SelectedGenre *int
	Query         string
	Loading       bool
	Err           string
}

// collection is the shared state shape behind each Kind.
type collection struct {
	items      []model.Movie
	page       int
	genre      *int
	query      string // search only
	loading    bool
	err        string
	generation uint64
}

// Store owns the three collections and the genre catalog.
type Store struct {
	api API

	mu       sync.Mutex
	popular  collection
	topRated collection
	search   collection
	genres   []model.Genre
}

// New creates a Store with every collection at page 1 and no filter.
func New(api API) *Store {
	return &Store{
		api:      api,
		popular:  collection{page: 1},
		topRated: collection{page: 1},
		search:   collection{page: 1},
	}
}

func (s *Store) coll(k Kind) *collection {
	switch k {
	case TopRated:
		return &s.topRated
	case Search:
		return &s.search
	default:
		return &s.popular
	}
}

// SetPage sets the collection's current page (minimum 1) and invalidates
// in-flight fetches.
func (s *Store) SetPage(k Kind, page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(k)
	c.page = page
	c.generation++
}

// SetGenre sets or clears the collection's genre filter. Changing the
// filter resets the page to 1.
func (s *Store) SetGenre(k Kind, genre *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(k)
	c.genre = genre
	c.page = 1
	c.generation++
}

// SetQuery sets the search collection's query text and resets its page.
func (s *Store) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search.query = query
	s.search.page = 1
	s.search.generation++
}

// ClearSearch empties the search collection, used to leave search mode.
func (s *Store) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = collection{page: 1, generation: s.search.generation + 1}
}

// Fetch loads the collection for its current (page, genre) parameters.
//
// On success the items are replaced wholesale; on failure the error text is
// recorded and the previous items are kept. A completion whose generation
// is no longer current is discarded entirely.
func (s *Store) Fetch(ctx context.Context, k Kind) {
	s.mu.Lock()
	c := s.coll(k)
	c.loading = true
	c.err = ""
	c.generation++
	gen := c.generation
	page, genre, query := c.page, c.genre, c.query
	s.mu.Unlock()

	var items []model.Movie
	var err error
	switch k {
	case TopRated:
		items, err = s.api.TopRatedMovies(ctx, page, genre)
		if err == nil {
			items = filterTopRated(items)
		}
	case Search:
		items, err = s.api.SearchMovies(ctx, query, page)
	default:
		items, err = s.api.PopularMovies(ctx, page, genre)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c = s.coll(k)
	if c.generation != gen {
		// A newer fetch or parameter change superseded this one.
		return
	}
	c.loading = false
	if err != nil {
		c.err = err.Error()
		return
	}
	c.items = items
}

// filterTopRated drops entries below the vote floor and caps the result.
func filterTopRated(items []model.Movie) []model.Movie {
	out := make([]model.Movie, 0, len(items))
	for _, m := range items {
		if m.VoteCount < topRatedMinVotes {
			continue
		}
		out = append(out, m)
		if len(out) == topRatedMaxItems {
			break
		}
	}
	return out
}

// Snapshot returns a copy of the collection's current state.
func (s *Store) Snapshot(k Kind) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(k)
	snap := Snapshot{
		Items:       make([]model.Movie, len(c.items)),
		CurrentPage: c.page,
		Query:       c.query,
		Loading:     c.loading,
		Err:         c.err,
	}
	copy(snap.Items, c.items)
	if c.genre != nil {
		g := *c.genre
		snap.SelectedGenre = &g
	}
	return snap
}

// LoadGenres fetches the genre catalog once. Later calls are no-ops after
// a successful load.
func (s *Store) LoadGenres(ctx context.Context) error {
	s.mu.Lock()
	loaded := len(s.genres) > 0
	s.mu.Unlock()
	if loaded {
		return nil
	}

	genres, err := s.api.Genres(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.genres = genres
	s.mu.Unlock()
	return nil
}

// Genres returns the loaded genre catalog.
func (s *Store) Genres() []model.Genre {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Genre, len(s.genres))
	copy(out, s.genres)
	return out
}

// GenreName resolves a genre id to its name, or an empty string.
func (s *Store) GenreName(id int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.genres {
		if g.ID == id {
			return g.Name
		}
	}
	return ""
}
