// Package model defines shared data structures.
package model

const imageBase = "https://image.tmdb.org/t/p/w500"

// Movie is a single entry from a TMDB listing (popular, top rated, search,
// recommendations). UserRating is never populated by the remote API; it is
// merged in locally from the personal-ratings overlay.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
	VoteCount   int     `json:"vote_count"`
	UserRating  float64 `json:"user_rating,omitempty"`
}

// PosterURL returns the full URL for the movie poster at w500 size. Value
// receiver so templates can call it on ranged slice elements.
func (m Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return imageBase + m.PosterPath
}

// Year returns the release year, or an empty string when unknown.
func (m Movie) Year() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

// Genre is one entry of the static genre catalog.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RatedMovie is a movie as returned by the rated-movies listing: the usual
// listing fields plus the rating this account gave it.
type RatedMovie struct {
	Movie
	Rating float64 `json:"rating"`
}

// CastMember is an actor credit on a movie.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

// CrewMember is a non-acting credit on a movie.
type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	ProfilePath string `json:"profile_path"`
}

// Review is a user review attached to a movie.
type Review struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Company is a production company credit.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the full detail record for one movie, with credits,
// reviews and recommendations appended in the same response.
type MovieDetails struct {
	ID                  int       `json:"id"`
	Title               string    `json:"title"`
	Overview            string    `json:"overview"`
	ReleaseDate         string    `json:"release_date"`
	PosterPath          string    `json:"poster_path"`
	Runtime             int       `json:"runtime"`
	Homepage            string    `json:"homepage"`
	IMDBID              string    `json:"imdb_id"`
	VoteAverage         float64   `json:"vote_average"`
	VoteCount           int       `json:"vote_count"`
	Genres              []Genre   `json:"genres"`
	ProductionCompanies []Company `json:"production_companies"`
	Credits             struct {
		Cast []CastMember `json:"cast"`
		Crew []CrewMember `json:"crew"`
	} `json:"credits"`
	Reviews struct {
		Results []Review `json:"results"`
	} `json:"reviews"`
	Recommendations struct {
		Results []Movie `json:"results"`
	} `json:"recommendations"`
	UserRating float64 `json:"user_rating,omitempty"`
}

// PosterURL returns the full URL for the detail poster at w500 size.
func (d *MovieDetails) PosterURL() string {
	if d.PosterPath == "" {
		return ""
	}
	return imageBase + d.PosterPath
}

// Year returns the release year, or an empty string when unknown.
func (d *MovieDetails) Year() string {
	if len(d.ReleaseDate) < 4 {
		return ""
	}
	return d.ReleaseDate[:4]
}

// GenreNames returns the genre names of the detail record.
func (d *MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Directors returns the crew members credited as Director.
func (d *MovieDetails) Directors() []CrewMember {
	var out []CrewMember
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			out = append(out, c)
		}
	}
	return out
}
