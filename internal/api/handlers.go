package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/movie-recommender/internal/catalog"
	"github.com/you/movie-recommender/internal/logging"
	"github.com/you/movie-recommender/internal/recommend"
	"github.com/you/movie-recommender/internal/session"
	"github.com/you/movie-recommender/internal/tmdb"
)

// overviewLimit is how many characters of the overview the UI shows.
const overviewLimit = 100

// genre is one entry of the fixed genre set offered for browsing.
type genre struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// genres maps the fixed display genres to TMDB genre ids.
var genres = []genre{
	{"Action", 28},
	{"Comedy", 35},
	{"Drama", 18},
	{"Fantasy", 14},
	{"Horror", 27},
	{"Romance", 10749},
	{"Science Fiction", 878},
	{"Thriller", 53},
}

func genreByName(name string) (genre, bool) {
	for _, g := range genres {
		if g.Name == name {
			return g, true
		}
	}
	return genre{}, false
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, tmdb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, tmdb.ErrServiceUnavailable), errors.Is(err, tmdb.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// detailsFields renders the shared enrichment fields of a movie card.
func detailsFields(out gin.H, d *tmdb.MovieDetails, warning string) gin.H {
	if warning != "" {
		out["warning"] = warning
	}
	if d == nil {
		return out
	}
	out["poster_url"] = d.PosterURL
	out["rating"] = d.Rating
	out["overview"] = truncate(d.Overview, overviewLimit)
	out["cast"] = d.Cast
	out["trailer_url"] = d.TrailerURL
	return out
}

func enrichedCards(list []recommend.Enriched) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, e := range list {
		out = append(out, detailsFields(gin.H{"title": e.Ref.Title}, e.Details, e.Warning))
	}
	return out
}

func (s *Server) moviesHandler(c *gin.Context) {
	c.JSON(200, gin.H{"titles": s.catalog.Titles()})
}

func (s *Server) recommendHandler(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(400, gin.H{"error": "missing title"})
		return
	}
	k := s.topK
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(400, gin.H{"error": "invalid k"})
			return
		}
		k = parsed
	}

	recs, err := s.engine.Recommend(c.Request.Context(), title, k)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		card := gin.H{
			"title": rec.Movie.Title,
			"id":    rec.Movie.ID,
			"score": rec.Score,
		}
		out = append(out, detailsFields(card, rec.Details, rec.Warning))
	}
	c.JSON(200, gin.H{"seed": title, "recommendations": out})
}

func (s *Server) searchHandler(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(400, gin.H{"error": "missing query"})
		return
	}

	ref, err := s.meta.SearchMovie(c.Request.Context(), query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	details, err := s.meta.FetchDetails(c.Request.Context(), ref.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(200, detailsFields(gin.H{"title": ref.Title, "id": ref.ID}, details, ""))
}

func (s *Server) trendingHandler(c *gin.Context) {
	refs, err := s.meta.Trending(c.Request.Context(), s.topK)
	if err != nil {
		abortWithError(c, err)
		return
	}
	enriched := s.engine.EnrichAll(c.Request.Context(), refs)
	c.JSON(200, gin.H{"movies": enrichedCards(enriched)})
}

func (s *Server) genresHandler(c *gin.Context) {
	c.JSON(200, gin.H{"genres": genres})
}

func (s *Server) byGenreHandler(c *gin.Context) {
	g, ok := genreByName(c.Param("name"))
	if !ok {
		c.JSON(404, gin.H{"error": "unknown genre"})
		return
	}

	refs, err := s.meta.ByGenre(c.Request.Context(), g.ID, s.topK)
	if err != nil {
		abortWithError(c, err)
		return
	}
	enriched := s.engine.EnrichAll(c.Request.Context(), refs)
	c.JSON(200, gin.H{"genre": g.Name, "movies": enrichedCards(enriched)})
}

func (s *Server) watchlistHandler(c *gin.Context) {
	c.JSON(200, gin.H{"watchlist": sessionState(c).Watchlist()})
}

type watchlistRequest struct {
	Title string `json:"title" binding:"required"`
}

func (s *Server) addToWatchlistHandler(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "title is required"})
		return
	}
	added := sessionState(c).AddToWatchlist(req.Title)
	c.JSON(200, gin.H{"title": req.Title, "already_present": !added})
}

func (s *Server) reviewsHandler(c *gin.Context) {
	state := sessionState(c)
	out := make([]gin.H, 0)
	for _, title := range state.ReviewedTitles() {
		avg, _ := state.AverageRating(title)
		out = append(out, gin.H{
			"title":          title,
			"average_rating": avg,
			"reviews":        state.Reviews(title),
		})
	}
	c.JSON(200, gin.H{"reviewed": out})
}

func (s *Server) reviewsForTitleHandler(c *gin.Context) {
	state := sessionState(c)
	title := c.Param("title")

	out := gin.H{
		"title":   title,
		"reviews": state.Reviews(title),
	}
	if avg, ok := state.AverageRating(title); ok {
		out["average_rating"] = avg
	}
	c.JSON(200, out)
}

type reviewRequest struct {
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
	Score *int   `json:"score" binding:"required,min=0,max=10"`
}

func (s *Server) addReviewHandler(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "title, text, and a score in [0,10] are required"})
		return
	}
	state := sessionState(c)
	if err := state.AddReview(req.Title, req.Text, *req.Score); err != nil {
		abortWithError(c, err)
		return
	}
	avg, _ := state.AverageRating(req.Title)
	c.JSON(200, gin.H{"title": req.Title, "average_rating": avg})
}

func (s *Server) favoritesHandler(c *gin.Context) {
	actors, directors := sessionState(c).Favorites()
	c.JSON(200, gin.H{"actors": actors, "directors": directors})
}

type favoriteRequest struct {
	Kind string `json:"kind" binding:"required,oneof=actor director"`
	Name string `json:"name" binding:"required"`
}

func (s *Server) addFavoriteHandler(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "kind (actor or director) and name are required"})
		return
	}
	if err := sessionState(c).AddFavorite(session.FavoriteKind(req.Kind), req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(200, gin.H{"kind": req.Kind, "name": req.Name})
}

// favoriteMoviesHandler resolves each favorite actor/director through person
// search and pulls the top of their movie credits. A person who cannot be
// resolved is skipped, not fatal.
func (s *Server) favoriteMoviesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	actors, directors := sessionState(c).Favorites()

	var refs []tmdb.MovieRef
	collect := func(names []string, crew bool) {
		for _, name := range names {
			person, err := s.meta.SearchPerson(ctx, name)
			if err != nil {
				logging.Warn().Err(err).Str("name", name).Msg("favorite lookup skipped")
				continue
			}
			credits, err := s.meta.PersonCredits(ctx, person.ID)
			if err != nil {
				logging.Warn().Err(err).Str("name", name).Msg("favorite credits skipped")
				continue
			}
			list := credits.Cast
			if crew {
				list = credits.Crew
			}
			if len(list) > s.topK {
				list = list[:s.topK]
			}
			refs = append(refs, list...)
		}
	}
	collect(actors, false)
	collect(directors, true)

	enriched := s.engine.EnrichAll(ctx, refs)
	c.JSON(200, gin.H{"movies": enrichedCards(enriched)})
}
