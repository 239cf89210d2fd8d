package main

import (
	"github.com/joho/godotenv"

	"github.com/you/movie-recommender/internal/api"
	"github.com/you/movie-recommender/internal/catalog"
	"github.com/you/movie-recommender/internal/config"
	"github.com/you/movie-recommender/internal/logging"
	"github.com/you/movie-recommender/internal/recommend"
	"github.com/you/movie-recommender/internal/session"
	"github.com/you/movie-recommender/internal/tmdb"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration failed")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	cat, err := catalog.Load(cfg.Catalog.MoviesPath, cfg.Catalog.SimilarityPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("catalog load failed")
	}

	client := tmdb.NewClient(tmdb.Config{
		APIKey:       cfg.TMDB.APIKey,
		BaseURL:      cfg.TMDB.BaseURL,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		Timeout:      cfg.TMDB.Timeout,
	})
	engine := recommend.NewEngine(cat, client, cfg.Recommend.Concurrency, logging.Logger())
	sessions := session.NewManager()
	server := api.NewServer(cat, engine, client, sessions, cfg.Recommend.TopK)

	logging.Info().
		Str("addr", cfg.Server.Addr).
		Int("movies", cat.Len()).
		Msg("server starting")

	if err := server.Router().Run(cfg.Server.Addr); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}
