// Package api exposes the recommender over HTTP with gin.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/you/movie-recommender/internal/catalog"
	"github.com/you/movie-recommender/internal/recommend"
	"github.com/you/movie-recommender/internal/session"
	"github.com/you/movie-recommender/internal/tmdb"
)

// Recommender is the slice of the recommendation engine the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, seedTitle string, k int) ([]recommend.Recommendation, error)
	EnrichAll(ctx context.Context, refs []tmdb.MovieRef) []recommend.Enriched
}

// Metadata is the slice of the TMDB client the handlers use directly.
type Metadata interface {
	FetchDetails(ctx context.Context, movieID int) (*tmdb.MovieDetails, error)
	SearchMovie(ctx context.Context, query string) (tmdb.MovieRef, error)
	Trending(ctx context.Context, limit int) ([]tmdb.MovieRef, error)
	ByGenre(ctx context.Context, genreID, limit int) ([]tmdb.MovieRef, error)
	SearchPerson(ctx context.Context, name string) (tmdb.Person, error)
	PersonCredits(ctx context.Context, personID int) (tmdb.Credits, error)
}

// Server bundles the handler dependencies.
type Server struct {
	catalog  *catalog.Catalog
	engine   Recommender
	meta     Metadata
	sessions *session.Manager
	topK     int
}

// NewServer creates a Server. topK is the default result count for
// recommendation and discovery endpoints.
func NewServer(cat *catalog.Catalog, engine Recommender, meta Metadata, sessions *session.Manager, topK int) *Server {
	if topK <= 0 {
		topK = 5
	}
	return &Server{
		catalog:  cat,
		engine:   engine,
		meta:     meta,
		sessions: sessions,
		topK:     topK,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(), sessionMiddleware(s.sessions))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/movies", s.moviesHandler)
		apiGroup.GET("/recommend", s.recommendHandler)
		apiGroup.GET("/search", s.searchHandler)
		apiGroup.GET("/trending", s.trendingHandler)
		apiGroup.GET("/genres", s.genresHandler)
		apiGroup.GET("/genres/:name", s.byGenreHandler)
		apiGroup.GET("/watchlist", s.watchlistHandler)
		apiGroup.POST("/watchlist", s.addToWatchlistHandler)
		apiGroup.GET("/reviews", s.reviewsHandler)
		apiGroup.GET("/reviews/:title", s.reviewsForTitleHandler)
		apiGroup.POST("/reviews", s.addReviewHandler)
		apiGroup.GET("/favorites", s.favoritesHandler)
		apiGroup.POST("/favorites", s.addFavoriteHandler)
		apiGroup.GET("/favorites/movies", s.favoriteMoviesHandler)
	}
	return r
}
