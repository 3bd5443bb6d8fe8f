// Package tmdb wraps the TMDB HTTP API behind typed functions.
//
// Every method performs exactly one HTTP round trip (RatedMovies performs
// two: account resolution, then the rated-movies page) and returns parsed
// results or an *APIError. There are no retries; failures are surfaced
// directly to the caller.
//
// The bearer credential is attached at call time. If it is empty the
// request still fires and the remote side rejects it — configuration
// absence is a startup warning, not a fatal error.
package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bryan-buckman/cinevore/internal/model"
)

// DefaultBaseURL is the production TMDB API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// topRatedMinVotes is the vote-count floor requested from the discover
// endpoint when a genre filter is active on the top-rated listing.
const topRatedMinVotes = 100

// APIError describes a non-2xx response from the remote API.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tmdb: %s failed: %s", e.Op, e.Status)
}

// Client is a TMDB API client. Create with NewClient.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client against the production API using the given
// bearer token. An empty token is allowed; calls will fail remotely.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, DefaultBaseURL)
}

// NewClientWithBaseURL creates a Client against an arbitrary API root.
// Used by tests to point at a local server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RequestToken issues a new short-lived request token for the delegated
// sign-in handshake.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	var result struct {
		RequestToken string `json:"request_token"`
	}
	if err := c.get(ctx, "request token", "/authentication/token/new", &result); err != nil {
		return "", err
	}
	return result.RequestToken, nil
}

// ValidateLogin approves a request token directly against user credentials.
//
// No caller uses this in the current build — sign-in goes through the
// hosted approval page instead. Kept because the remote API supports it
// as the alternate, non-redirect approval path.
func (c *Client) ValidateLogin(ctx context.Context, requestToken, username, password string) error {
	body := map[string]string{
		"username":      username,
		"password":      password,
		"request_token": requestToken,
	}
	return c.do(ctx, "validate login", http.MethodPost, "/authentication/token/validate_with_login", body, nil)
}

// CreateSession exchanges an externally approved request token for a
// long-lived session identifier.
func (c *Client) CreateSession(ctx context.Context, requestToken string) (string, error) {
	body := map[string]string{"request_token": requestToken}
	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, "create session", http.MethodPost, "/authentication/session/new", body, &result); err != nil {
		return "", err
	}
	return result.SessionID, nil
}

// PopularMovies fetches one page of popular movies. With a genre filter it
// switches to the discover endpoint sorted by popularity; without one it
// uses the plain popular listing.
func (c *Client) PopularMovies(ctx context.Context, page int, genre *int) ([]model.Movie, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	path := "/movie/popular"
	if genre != nil {
		path = "/discover/movie"
		q.Set("sort_by", "popularity.desc")
		q.Set("with_genres", strconv.Itoa(*genre))
	}

	var result struct {
		Results []model.Movie `json:"results"`
	}
	if err := c.get(ctx, "popular movies", path+"?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// TopRatedMovies fetches one page of top-rated movies. With a genre filter
// it switches to the discover endpoint sorted by vote average, requesting a
// minimum vote count so obscure entries don't dominate the ranking.
func (c *Client) TopRatedMovies(ctx context.Context, page int, genre *int) ([]model.Movie, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	path := "/movie/top_rated"
	if genre != nil {
		path = "/discover/movie"
		q.Set("sort_by", "vote_average.desc")
		q.Set("vote_count.gte", strconv.Itoa(topRatedMinVotes))
		q.Set("with_genres", strconv.Itoa(*genre))
	}

	var result struct {
		Results []model.Movie `json:"results"`
	}
	if err := c.get(ctx, "top rated movies", path+"?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Genres fetches the static movie genre catalog.
func (c *Client) Genres(ctx context.Context) ([]model.Genre, error) {
	var result struct {
		Genres []model.Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", "/genre/movie/list", &result); err != nil {
		return nil, err
	}
	return result.Genres, nil
}

// SearchMovies runs a free-text movie search, paginated.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) ([]model.Movie, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))

	var result struct {
		Results []model.Movie `json:"results"`
	}
	if err := c.get(ctx, "search movies", "/search/movie?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// MovieDetails fetches the full detail record for one movie, with credits,
// reviews and recommendations appended in the same round trip.
func (c *Client) MovieDetails(ctx context.Context, movieID int) (*model.MovieDetails, error) {
	path := fmt.Sprintf("/movie/%d?append_to_response=credits,reviews,recommendations", movieID)
	var details model.MovieDetails
	if err := c.get(ctx, "movie details", path, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// RatedMovies lists every movie the session's account has rated. Two round
// trips: the account id is resolved first, then its rated-movies page.
func (c *Client) RatedMovies(ctx context.Context, sessionID string) ([]model.RatedMovie, error) {
	var account struct {
		ID int `json:"id"`
	}
	if err := c.get(ctx, "account", "/account?session_id="+url.QueryEscape(sessionID), &account); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/account/%d/rated/movies?session_id=%s", account.ID, url.QueryEscape(sessionID))
	var result struct {
		Results []model.RatedMovie `json:"results"`
	}
	if err := c.get(ctx, "rated movies", path, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// RateMovie upserts the account's rating for a movie. The remote API
// enforces the valid range (0.5–10 in half steps); values outside it are
// rejected there and surfaced as an *APIError.
func (c *Client) RateMovie(ctx context.Context, movieID int, value float64, sessionID string) error {
	path := fmt.Sprintf("/movie/%d/rating?session_id=%s", movieID, url.QueryEscape(sessionID))
	body := map[string]float64{"value": value}
	return c.do(ctx, "rate movie", http.MethodPost, path, body, nil)
}

// DeleteRating removes the account's rating for a movie.
func (c *Client) DeleteRating(ctx context.Context, movieID int, sessionID string) error {
	path := fmt.Sprintf("/movie/%d/rating?session_id=%s", movieID, url.QueryEscape(sessionID))
	return c.do(ctx, "delete rating", http.MethodDelete, path, nil, nil)
}

// get performs a GET round trip and decodes the JSON response into dst.
func (c *Client) get(ctx context.Context, op, path string, dst interface{}) error {
	return c.do(ctx, op, http.MethodGet, path, nil, dst)
}

// do performs one HTTP round trip. body (if non-nil) is sent as JSON;
// dst (if non-nil) receives the decoded response.
func (c *Client) do(ctx context.Context, op, method, path string, body, dst interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("tmdb: encode %s request: %w", op, err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("tmdb: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: decode %s response: %w", op, err)
	}
	return nil
}
