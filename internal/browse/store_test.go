package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bryan-buckman/cinevore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI lets each test script the remote responses.
type fakeAPI struct {
	popularFn  func(page int, genre *int) ([]model.Movie, error)
	topRatedFn func(page int, genre *int) ([]model.Movie, error)
	searchFn   func(query string, page int) ([]model.Movie, error)
	genresFn   func() ([]model.Genre, error)

	mu          sync.Mutex
	genresCalls int
}

func (f *fakeAPI) PopularMovies(_ context.Context, page int, genre *int) ([]model.Movie, error) {
	if f.popularFn == nil {
		return nil, nil
	}
	return f.popularFn(page, genre)
}

func (f *fakeAPI) TopRatedMovies(_ context.Context, page int, genre *int) ([]model.Movie, error) {
	if f.topRatedFn == nil {
		return nil, nil
	}
	return f.topRatedFn(page, genre)
}

func (f *fakeAPI) SearchMovies(_ context.Context, query string, page int) ([]model.Movie, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(query, page)
}

func (f *fakeAPI) Genres(_ context.Context) ([]model.Genre, error) {
	f.mu.Lock()
	f.genresCalls++
	f.mu.Unlock()
	if f.genresFn == nil {
		return nil, nil
	}
	return f.genresFn()
}

// moviesOf builds n movies with sequential ids and the given vote count.
func moviesOf(n, voteCount int) []model.Movie {
	out := make([]model.Movie, n)
	for i := range out {
		out[i] = model.Movie{
			ID:        i + 1,
			Title:     fmt.Sprintf("Movie %d", i+1),
			VoteCount: voteCount,
		}
	}
	return out
}

func TestFetchPopularSuccess(t *testing.T) {
	api := &fakeAPI{
		popularFn: func(page int, genre *int) ([]model.Movie, error) {
			assert.Equal(t, 1, page)
			assert.Nil(t, genre)
			return moviesOf(20, 500), nil
		},
	}
	s := New(api)

	s.Fetch(context.Background(), Popular)

	snap := s.Snapshot(Popular)
	assert.Len(t, snap.Items, 20)
	assert.Empty(t, snap.Err)
	assert.False(t, snap.Loading)
}

func TestFetchErrorKeepsPriorItems(t *testing.T) {
	calls := 0
	api := &fakeAPI{
		popularFn: func(page int, genre *int) ([]model.Movie, error) {
			calls++
			if calls == 1 {
				return moviesOf(5, 500), nil
			}
			return nil, errors.New("upstream unavailable")
		},
	}
	s := New(api)

	s.Fetch(context.Background(), Popular)
	s.Fetch(context.Background(), Popular)

	snap := s.Snapshot(Popular)
	assert.Len(t, snap.Items, 5, "items from the last fulfilled fetch survive a failure")
	assert.Equal(t, "upstream unavailable", snap.Err)
	assert.False(t, snap.Loading)
}

func TestTopRatedDropsLowVoteEntries(t *testing.T) {
	items := moviesOf(25, 500)
	for i := 0; i < 5; i++ {
		items[i*5].VoteCount = 50
	}
	api := &fakeAPI{
		topRatedFn: func(page int, genre *int) ([]model.Movie, error) {
			require.NotNil(t, genre)
			assert.Equal(t, 28, *genre)
			return items, nil
		},
	}
	s := New(api)
	g := 28
	s.SetGenre(TopRated, &g)

	s.Fetch(context.Background(), TopRated)

	snap := s.Snapshot(TopRated)
	assert.Len(t, snap.Items, 20)
	for _, m := range snap.Items {
		assert.GreaterOrEqual(t, m.VoteCount, 100)
	}
}

func TestTopRatedCapsAtForty(t *testing.T) {
	api := &fakeAPI{
		topRatedFn: func(page int, genre *int) ([]model.Movie, error) {
			return moviesOf(55, 500), nil
		},
	}
	s := New(api)

	s.Fetch(context.Background(), TopRated)

	assert.Len(t, s.Snapshot(TopRated).Items, 40)
}

func TestSetGenreResetsPage(t *testing.T) {
	s := New(&fakeAPI{})
	s.SetPage(Popular, 7)
	require.Equal(t, 7, s.Snapshot(Popular).CurrentPage)

	g := 12
	s.SetGenre(Popular, &g)

	snap := s.Snapshot(Popular)
	assert.Equal(t, 1, snap.CurrentPage)
	require.NotNil(t, snap.SelectedGenre)
	assert.Equal(t, 12, *snap.SelectedGenre)
}

func TestSetPageFloorsAtOne(t *testing.T) {
	s := New(&fakeAPI{})
	s.SetPage(Popular, -3)
	assert.Equal(t, 1, s.Snapshot(Popular).CurrentPage)
}

func TestSearchQueryAndClear(t *testing.T) {
	api := &fakeAPI{
		searchFn: func(query string, page int) ([]model.Movie, error) {
			assert.Equal(t, "matrix", query)
			return moviesOf(3, 100), nil
		},
	}
	s := New(api)
	s.SetQuery("matrix")
	s.Fetch(context.Background(), Search)
	require.Len(t, s.Snapshot(Search).Items, 3)

	s.ClearSearch()

	snap := s.Snapshot(Search)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Query)
	assert.Equal(t, 1, snap.CurrentPage)
}

// TestStaleResponseDiscarded pins the reorder guard: a fetch that resolves
// after a newer parameter change must not overwrite the newer results.
func TestStaleResponseDiscarded(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	api := &fakeAPI{}
	api.popularFn = func(page int, genre *int) ([]model.Movie, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return moviesOf(5, 100), nil // stale payload
		}
		return moviesOf(9, 100), nil // fresh payload
	}
	s := New(api)

	done := make(chan struct{})
	go func() {
		s.Fetch(context.Background(), Popular)
		close(done)
	}()
	<-firstStarted

	// A newer parameter change and fetch complete while the first request
	// is still in flight.
	s.SetPage(Popular, 2)
	s.Fetch(context.Background(), Popular)
	require.Len(t, s.Snapshot(Popular).Items, 9)

	close(releaseFirst)
	<-done

	snap := s.Snapshot(Popular)
	assert.Len(t, snap.Items, 9, "stale completion must not overwrite fresher state")
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
}

func TestLoadGenresOnce(t *testing.T) {
	api := &fakeAPI{
		genresFn: func() ([]model.Genre, error) {
			return []model.Genre{{ID: 28, Name: "Action"}}, nil
		},
	}
	s := New(api)

	require.NoError(t, s.LoadGenres(context.Background()))
	require.NoError(t, s.LoadGenres(context.Background()))

	assert.Equal(t, 1, api.genresCalls)
	assert.Equal(t, "Action", s.GenreName(28))
	assert.Equal(t, "", s.GenreName(99))
}

func TestLoadGenresError(t *testing.T) {
	api := &fakeAPI{
		genresFn: func() ([]model.Genre, error) {
			return nil, errors.New("boom")
		},
	}
	s := New(api)

	require.Error(t, s.LoadGenres(context.Background()))
	assert.Empty(t, s.Genres())
}
