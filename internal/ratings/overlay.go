// Package ratings maintains the personal-rating overlay.
//
// The overlay is a movie-id → rating map superimposed on otherwise
// anonymous movie records. It is rebuilt wholesale on each refresh — never
// merged incrementally — so after a refresh it contains exactly what the
// remote API reported. Mutations pass straight through to the remote API;
// there is no optimistic local update, callers re-refresh to observe the
// result.
package ratings

import (
	"context"
	"errors"
	"sync"

	"github.com/bryan-buckman/cinevore/internal/model"
)

// ErrAuthRequired is returned when an operation needs a session and none
// exists. The operation is aborted before any network call.
var ErrAuthRequired = errors.New("ratings: authentication required")

// API is the slice of the TMDB client the overlay needs.
type API interface {
	RatedMovies(ctx context.Context, sessionID string) ([]model.RatedMovie, error)
	RateMovie(ctx context.Context, movieID int, value float64, sessionID string) error
	DeleteRating(ctx context.Context, movieID int, sessionID string) error
}

// Overlay holds the id → rating map and the rated-movie records backing it.
type Overlay struct {
	api API

	mu    sync.RWMutex
	byID  map[int]float64
	rated []model.RatedMovie
}

// New creates an empty overlay.
func New(api API) *Overlay {
	return &Overlay{api: api, byID: make(map[int]float64)}
}

// Refresh rebuilds the overlay from the remote rated-movies listing. The
// old map is fully replaced. Requires an authenticated session.
func (o *Overlay) Refresh(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrAuthRequired
	}
	rated, err := o.api.RatedMovies(ctx, sessionID)
	if err != nil {
		return err
	}

	byID := make(map[int]float64, len(rated))
	for _, m := range rated {
		byID[m.ID] = m.Rating
	}

	o.mu.Lock()
	o.byID = byID
	o.rated = rated
	o.mu.Unlock()
	return nil
}

// Rate upserts a rating. The value is not pre-validated; an out-of-range
// value is rejected by the remote API and that rejection is returned as-is.
func (o *Overlay) Rate(ctx context.Context, movieID int, value float64, sessionID string) error {
	if sessionID == "" {
		return ErrAuthRequired
	}
	return o.api.RateMovie(ctx, movieID, value, sessionID)
}

// Unrate removes a rating.
func (o *Overlay) Unrate(ctx context.Context, movieID int, sessionID string) error {
	if sessionID == "" {
		return ErrAuthRequired
	}
	return o.api.DeleteRating(ctx, movieID, sessionID)
}

// RatingFor returns the personal rating for a movie id. The second return
// distinguishes "no personal rating" from a rating of zero.
func (o *Overlay) RatingFor(movieID int) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.byID[movieID]
	return v, ok
}

// Apply returns a copy of movies with personal ratings merged in.
func (o *Overlay) Apply(movies []model.Movie) []model.Movie {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.Movie, len(movies))
	copy(out, movies)
	for i := range out {
		if v, ok := o.byID[out[i].ID]; ok {
			out[i].UserRating = v
		}
	}
	return out
}

// Rated returns the rated-movie records from the last refresh.
func (o *Overlay) Rated() []model.RatedMovie {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.RatedMovie, len(o.rated))
	copy(out, o.rated)
	return out
}

// Clear empties the overlay, used on sign-out.
func (o *Overlay) Clear() {
	o.mu.Lock()
	o.byID = make(map[int]float64)
	o.rated = nil
	o.mu.Unlock()
}
