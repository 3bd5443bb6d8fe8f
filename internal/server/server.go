// Package server provides the HTTP server and handlers.
package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/bryan-buckman/cinevore/internal/browse"
	"github.com/bryan-buckman/cinevore/internal/config"
	"github.com/bryan-buckman/cinevore/internal/database"
	"github.com/bryan-buckman/cinevore/internal/ratings"
	"github.com/bryan-buckman/cinevore/internal/session"
	"github.com/bryan-buckman/cinevore/internal/tmdb"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the main HTTP server.
type Server struct {
	client    *tmdb.Client
	session   *session.Manager
	browse    *browse.Store
	ratings   *ratings.Overlay
	router    chi.Router
	templates *template.Template
}

// New creates a new server wired to the given store and TMDB client.
func New(cfg *config.Config, db database.Store, client *tmdb.Client) (*Server, error) {
	s := &Server{
		client:  client,
		session: session.NewManager(client, db, cfg.CallbackURL),
		browse:  browse.New(client),
		ratings: ratings.New(client),
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"genreName": func(id int) string { return s.browse.GenreName(id) },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = tmpl

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages.
	r.Get("/", s.handleIndex)
	r.Get("/home", s.handleHome)
	r.Get("/movie/{movieID}", s.handleMovie)
	r.Get("/myratings", s.handleMyRatings)
	r.Get("/signin", s.handleSignIn)
	r.Get("/auth/callback", s.handleAuthCallback)

	// Actions.
	r.Post("/signin/start", s.handleSignInStart)
	r.Post("/signout", s.handleSignOut)
	r.Post("/rate", s.handleRate)
	r.Post("/unrate", s.handleUnrate)

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
	})

	s.router = r
}

// Handler returns the root HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server.
func (s *Server) Start(addr string) error {
	logrus.WithField("addr", addr).Info("server starting")
	return http.ListenAndServe(addr, s.router)
}

// Session exposes the session manager. Used by tests.
func (s *Server) Session() *session.Manager {
	return s.session
}

// --- Page Handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home", http.StatusFound)
}

// handleHome renders the browse page in one of three views: popular, top
// rated or search. Page, genre filter and query ride in the URL; applying
// them mutates the corresponding collection before it is fetched.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("clear") == "1" {
		s.browse.ClearSearch()
		http.Redirect(w, r, "/home?view=popular", http.StatusFound)
		return
	}

	view := q.Get("view")
	kind := browse.Popular
	switch view {
	case "toprated":
		kind = browse.TopRated
	case "search":
		kind = browse.Search
	default:
		view = "popular"
	}

	if query := q.Get("q"); query != "" {
		kind = browse.Search
		view = "search"
		s.browse.SetQuery(query)
	}

	if kind != browse.Search {
		if g := q.Get("genre"); g != "" {
			if id, err := strconv.Atoi(g); err == nil {
				s.browse.SetGenre(kind, &id)
			}
		} else {
			snap := s.browse.Snapshot(kind)
			if snap.SelectedGenre != nil {
				s.browse.SetGenre(kind, nil)
			}
		}
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil {
			s.browse.SetPage(kind, page)
		}
	}

	// The genre catalog is static; load failures only cost the filter UI.
	if err := s.browse.LoadGenres(r.Context()); err != nil {
		logrus.WithError(err).Warn("could not load genre catalog")
	}

	s.browse.Fetch(r.Context(), kind)
	snap := s.browse.Snapshot(kind)

	if s.session.IsAuthenticated() {
		if err := s.ratings.Refresh(r.Context(), s.session.SessionID()); err != nil {
			logrus.WithError(err).Warn("could not refresh personal ratings")
		}
	}
	items := s.ratings.Apply(snap.Items)

	genreID := 0
	if snap.SelectedGenre != nil {
		genreID = *snap.SelectedGenre
	}
	data := map[string]interface{}{
		"View":          view,
		"Items":         items,
		"CurrentPage":   snap.CurrentPage,
		"PrevPage":      snap.CurrentPage - 1,
		"NextPage":      snap.CurrentPage + 1,
		"SelectedGenre": genreID,
		"Query":         snap.Query,
		"Error":         snap.Err,
		"Genres":        s.browse.Genres(),
		"Authenticated": s.session.IsAuthenticated(),
	}
	s.render(w, "home.html", data)
}

func (s *Server) handleMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil {
		http.Error(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	details, err := s.client.MovieDetails(r.Context(), movieID)
	if err != nil {
		s.renderError(w, fmt.Sprintf("Failed to load movie details: %v", err))
		return
	}
	if v, ok := s.ratings.RatingFor(details.ID); ok {
		details.UserRating = v
	}

	cast := details.Credits.Cast
	if len(cast) > 5 {
		cast = cast[:5]
	}
	reviews := details.Reviews.Results
	if len(reviews) > 5 {
		reviews = reviews[:5]
	}
	recs := s.ratings.Apply(details.Recommendations.Results)
	if len(recs) > 20 {
		recs = recs[:20]
	}

	data := map[string]interface{}{
		"Movie":         details,
		"Cast":          cast,
		"Reviews":       reviews,
		"Recs":          recs,
		"Authenticated": s.session.IsAuthenticated(),
	}
	s.render(w, "movie.html", data)
}

func (s *Server) handleMyRatings(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Authenticated": s.session.IsAuthenticated(),
	}
	if s.session.IsAuthenticated() {
		if err := s.ratings.Refresh(r.Context(), s.session.SessionID()); err != nil {
			data["Error"] = "Failed to load rated movies."
		} else {
			data["Rated"] = s.ratings.Rated()
		}
	}
	s.render(w, "myratings.html", data)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signin.html", map[string]interface{}{
		"Authenticated": s.session.IsAuthenticated(),
	})
}

// handleAuthCallback finishes the handshake when the hosted approval page
// redirects back. Anything short of an explicit approval renders a
// terminal error; the user retries from the sign-in page.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("request_token")
	approved := r.URL.Query().Get("approved")

	err := s.session.Complete(r.Context(), token, approved)
	if errors.Is(err, session.ErrCallbackDenied) {
		s.renderError(w, "Authorization was not approved or request token is missing.")
		return
	}
	if err != nil {
		s.renderError(w, fmt.Sprintf("Error creating session: %v", err))
		return
	}
	http.Redirect(w, r, "/home", http.StatusFound)
}

// --- Action Handlers ---

func (s *Server) handleSignInStart(w http.ResponseWriter, r *http.Request) {
	redirect, err := s.session.Begin(r.Context())
	if err != nil {
		s.renderError(w, fmt.Sprintf("Sign-in failed: %v", err))
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.session.SignOut()
	s.ratings.Clear()
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(r.FormValue("movie_id"))
	if err != nil {
		http.Error(w, "Invalid movie id", http.StatusBadRequest)
		return
	}
	value, err := strconv.ParseFloat(r.FormValue("rating"), 64)
	if err != nil {
		http.Error(w, "Invalid rating value", http.StatusBadRequest)
		return
	}

	err = s.ratings.Rate(r.Context(), movieID, value, s.session.SessionID())
	if errors.Is(err, ratings.ErrAuthRequired) {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err != nil {
		s.renderError(w, fmt.Sprintf("Failed to submit rating: %v", err))
		return
	}
	http.Redirect(w, r, backURL(r, fmt.Sprintf("/movie/%d", movieID)), http.StatusFound)
}

func (s *Server) handleUnrate(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(r.FormValue("movie_id"))
	if err != nil {
		http.Error(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	err = s.ratings.Unrate(r.Context(), movieID, s.session.SessionID())
	if errors.Is(err, ratings.ErrAuthRequired) {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err != nil {
		s.renderError(w, fmt.Sprintf("Failed to delete rating: %v", err))
		return
	}
	http.Redirect(w, r, backURL(r, "/myratings"), http.StatusFound)
}

// --- API Handlers ---

// handleState reports the auth state and a summary of each collection.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	summary := func(k browse.Kind) map[string]interface{} {
		snap := s.browse.Snapshot(k)
		return map[string]interface{}{
			"items":        len(snap.Items),
			"current_page": snap.CurrentPage,
			"genre":        snap.SelectedGenre,
			"loading":      snap.Loading,
			"error":        snap.Err,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": s.session.IsAuthenticated(),
		"auth_state":    s.session.State().String(),
		"popular":       summary(browse.Popular),
		"toprated":      summary(browse.TopRated),
		"search":        summary(browse.Search),
	})
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logrus.WithError(err).Error("template error")
		http.Error(w, "Render error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, msg string) {
	s.render(w, "error.html", map[string]interface{}{
		"Message":       msg,
		"Authenticated": s.session.IsAuthenticated(),
	})
}

// backURL picks the form's declared return target, falling back to def.
// Only local paths are accepted.
func backURL(r *http.Request, def string) string {
	back := r.FormValue("back")
	if back == "" || back[0] != '/' {
		return def
	}
	return back
}
