// Package recommend ranks catalog entries by precomputed similarity and
// enriches the winners with live metadata.
package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/you/movie-recommender/internal/catalog"
	"github.com/you/movie-recommender/internal/tmdb"
)

// Fetcher fetches the enrichment payload for one movie. *tmdb.Client
// satisfies it; tests substitute a fake.
type Fetcher interface {
	FetchDetails(ctx context.Context, movieID int) (*tmdb.MovieDetails, error)
}

// Recommendation is one ranked, enriched result. Details is nil and Warning
// set when enrichment failed for this movie.
type Recommendation struct {
	Movie   catalog.Movie      `json:"movie"`
	Score   float64            `json:"score"`
	Details *tmdb.MovieDetails `json:"details,omitempty"`
	Warning string             `json:"warning,omitempty"`
}

// Enriched is an externally-sourced movie (trending, genre, credits) with
// its enrichment payload.
type Enriched struct {
	Ref     tmdb.MovieRef      `json:"movie"`
	Details *tmdb.MovieDetails `json:"details,omitempty"`
	Warning string             `json:"warning,omitempty"`
}

// Engine is the recommendation engine. Safe for concurrent use: the catalog
// is read-only and the fetcher is stateless.
type Engine struct {
	catalog     *catalog.Catalog
	fetcher     Fetcher
	concurrency int
	logger      zerolog.Logger
}

// NewEngine creates an Engine. concurrency bounds the enrichment fan-out.
func NewEngine(cat *catalog.Catalog, fetcher Fetcher, concurrency int, logger zerolog.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Engine{
		catalog:     cat,
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

type indexScore struct {
	index int
	score float64
}

// rank returns the k catalog entries most similar to the seed, best first.
// The seed itself always carries the maximum score, so it sorts first and is
// skipped rather than zeroed out of the row.
func (e *Engine) rank(seedTitle string, k int) ([]indexScore, error) {
	seed, err := e.catalog.FindByTitle(seedTitle)
	if err != nil {
		return nil, err
	}

	row := e.catalog.Row(seed.Index)
	pairs := make([]indexScore, len(row))
	for i, score := range row {
		pairs[i] = indexScore{index: i, score: score}
	}
	// Stable sort keeps ties in catalog order, so equal scores break by
	// ascending index.
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	pairs = pairs[1:] // drop the self match
	if k < len(pairs) {
		pairs = pairs[:k]
	}
	return pairs, nil
}

// Recommend returns the k movies most similar to seedTitle, enriched with
// live metadata. A failed fetch degrades only that entry.
func (e *Engine) Recommend(ctx context.Context, seedTitle string, k int) ([]Recommendation, error) {
	pairs, err := e.rank(seedTitle, k)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, len(pairs))
	for i, p := range pairs {
		movie, err := e.catalog.ByIndex(p.index)
		if err != nil {
			return nil, fmt.Errorf("recommend: similarity row references %w", err)
		}
		recs[i] = Recommendation{Movie: movie, Score: p.score}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range recs {
		g.Go(func() error {
			details, err := e.fetcher.FetchDetails(ctx, recs[i].Movie.ID)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("title", recs[i].Movie.Title).
					Int("movie_id", recs[i].Movie.ID).
					Msg("enrichment failed, returning bare entry")
				recs[i].Warning = "metadata unavailable: " + err.Error()
				return nil
			}
			recs[i].Details = details
			return nil
		})
	}
	// Goroutines never return errors; Wait is a pure join.
	_ = g.Wait()
	return recs, nil
}

// EnrichAll fetches metadata for an externally-sourced movie list (trending,
// genre, person credits) with the same bounded fan-out and per-item failure
// isolation as Recommend. Output order matches input order.
func (e *Engine) EnrichAll(ctx context.Context, refs []tmdb.MovieRef) []Enriched {
	out := make([]Enriched, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, ref := range refs {
		out[i] = Enriched{Ref: ref}
		g.Go(func() error {
			details, err := e.fetcher.FetchDetails(ctx, ref.ID)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("title", ref.Title).
					Int("movie_id", ref.ID).
					Msg("enrichment failed, returning bare entry")
				out[i].Warning = "metadata unavailable: " + err.Error()
				return nil
			}
			out[i].Details = details
			return nil
		})
	}
	_ = g.Wait()
	return out
}
