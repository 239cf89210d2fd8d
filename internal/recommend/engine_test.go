package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/you/movie-recommender/internal/catalog"
	"github.com/you/movie-recommender/internal/tmdb"
)

type fakeFetcher struct {
	failIDs map[int]bool
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, movieID int) (*tmdb.MovieDetails, error) {
	if f.failIDs[movieID] {
		return nil, tmdb.ErrServiceUnavailable
	}
	return &tmdb.MovieDetails{
		Rating:   7.0,
		Overview: fmt.Sprintf("overview for %d", movieID),
		Cast:     []string{"Someone"},
	}, nil
}

func newTestCatalog(t *testing.T, titles []string, sim [][]float64) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()

	moviesCSV := "movie_id,title\n"
	for i, title := range titles {
		moviesCSV += fmt.Sprintf("%d,%s\n", (i+1)*100, title)
	}
	simCSV := ""
	for _, row := range sim {
		for j, v := range row {
			if j > 0 {
				simCSV += ","
			}
			simCSV += fmt.Sprintf("%g", v)
		}
		simCSV += "\n"
	}

	moviesPath := filepath.Join(dir, "movies.csv")
	simPath := filepath.Join(dir, "similarity.csv")
	if err := os.WriteFile(moviesPath, []byte(moviesCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(simPath, []byte(simCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := catalog.Load(moviesPath, simPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func newTestEngine(t *testing.T, cat *catalog.Catalog, fetcher Fetcher) *Engine {
	t.Helper()
	return NewEngine(cat, fetcher, 3, zerolog.Nop())
}

func TestRecommendOrdering(t *testing.T) {
	cat := newTestCatalog(t,
		[]string{"movie0", "movie1", "movie2"},
		[][]float64{
			{1.0, 0.9, 0.2},
			{0.9, 1.0, 0.5},
			{0.2, 0.5, 1.0},
		})
	e := newTestEngine(t, cat, &fakeFetcher{})

	recs, err := e.Recommend(context.Background(), "movie0", 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
	if recs[0].Movie.Title != "movie1" || recs[1].Movie.Title != "movie2" {
		t.Errorf("order = [%s, %s], want [movie1, movie2]",
			recs[0].Movie.Title, recs[1].Movie.Title)
	}
	if recs[0].Score != 0.9 || recs[1].Score != 0.2 {
		t.Errorf("scores = [%v, %v], want [0.9, 0.2]", recs[0].Score, recs[1].Score)
	}
}

func TestRecommendProperties(t *testing.T) {
	// Ties on purpose: rows contain repeated scores so the index-ascending
	// tie-break is observable.
	titles := []string{"a", "b", "c", "d", "e"}
	sim := [][]float64{
		{1.0, 0.5, 0.5, 0.3, 0.1},
		{0.5, 1.0, 0.4, 0.4, 0.4},
		{0.5, 0.4, 1.0, 0.2, 0.6},
		{0.3, 0.4, 0.2, 1.0, 0.9},
		{0.1, 0.4, 0.6, 0.9, 1.0},
	}
	cat := newTestCatalog(t, titles, sim)
	e := newTestEngine(t, cat, &fakeFetcher{})
	const k = 4

	for _, seed := range titles {
		recs, err := e.Recommend(context.Background(), seed, k)
		if err != nil {
			t.Fatalf("Recommend(%s): %v", seed, err)
		}
		if len(recs) != k {
			t.Errorf("Recommend(%s) returned %d entries, want %d", seed, len(recs), k)
		}
		seen := map[string]bool{}
		for i, rec := range recs {
			if rec.Movie.Title == seed {
				t.Errorf("Recommend(%s) includes the seed itself", seed)
			}
			if seen[rec.Movie.Title] {
				t.Errorf("Recommend(%s) returned duplicate %s", seed, rec.Movie.Title)
			}
			seen[rec.Movie.Title] = true
			if i > 0 {
				prev := recs[i-1]
				if rec.Score > prev.Score {
					t.Errorf("Recommend(%s) scores increase at position %d", seed, i)
				}
				if rec.Score == prev.Score && rec.Movie.Index < prev.Movie.Index {
					t.Errorf("Recommend(%s) breaks score ties by descending index", seed)
				}
			}
		}
	}
}

func TestRecommendTieBreakByIndex(t *testing.T) {
	cat := newTestCatalog(t,
		[]string{"seed", "x", "y", "z"},
		[][]float64{
			{1.0, 0.7, 0.7, 0.7},
			{0.7, 1.0, 0.1, 0.1},
			{0.7, 0.1, 1.0, 0.1},
			{0.7, 0.1, 0.1, 1.0},
		})
	e := newTestEngine(t, cat, &fakeFetcher{})

	recs, err := e.Recommend(context.Background(), "seed", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []string{"x", "y", "z"}
	for i, w := range want {
		if recs[i].Movie.Title != w {
			t.Errorf("position %d = %s, want %s (catalog order on ties)", i, recs[i].Movie.Title, w)
		}
	}
}

func TestRecommendUnknownSeed(t *testing.T) {
	cat := newTestCatalog(t, []string{"only"}, [][]float64{{1.0}})
	e := newTestEngine(t, cat, &fakeFetcher{})

	_, err := e.Recommend(context.Background(), "unknown title", 5)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want catalog.ErrNotFound", err)
	}
}

func TestRecommendPerItemFailureIsolation(t *testing.T) {
	cat := newTestCatalog(t,
		[]string{"movie0", "movie1", "movie2"},
		[][]float64{
			{1.0, 0.9, 0.2},
			{0.9, 1.0, 0.5},
			{0.2, 0.5, 1.0},
		})
	// movie1 has ID 200; make its fetch fail.
	e := newTestEngine(t, cat, &fakeFetcher{failIDs: map[int]bool{200: true}})

	recs, err := e.Recommend(context.Background(), "movie0", 2)
	if err != nil {
		t.Fatalf("Recommend must not fail on a single enrichment error: %v", err)
	}
	if recs[0].Details != nil || recs[0].Warning == "" {
		t.Errorf("failed entry = %+v, want nil details and a warning", recs[0])
	}
	if recs[1].Details == nil || recs[1].Warning != "" {
		t.Errorf("healthy entry = %+v, want populated details and no warning", recs[1])
	}
	// Ranking order survives the failure.
	if recs[0].Movie.Title != "movie1" || recs[1].Movie.Title != "movie2" {
		t.Errorf("order = [%s, %s], want [movie1, movie2]",
			recs[0].Movie.Title, recs[1].Movie.Title)
	}
}

func TestEnrichAllPreservesOrder(t *testing.T) {
	cat := newTestCatalog(t, []string{"only"}, [][]float64{{1.0}})
	e := newTestEngine(t, cat, &fakeFetcher{failIDs: map[int]bool{2: true}})

	refs := []tmdb.MovieRef{
		{ID: 1, Title: "first"},
		{ID: 2, Title: "second"},
		{ID: 3, Title: "third"},
	}
	enriched := e.EnrichAll(context.Background(), refs)
	if len(enriched) != 3 {
		t.Fatalf("got %d entries, want 3", len(enriched))
	}
	for i, ref := range refs {
		if enriched[i].Ref != ref {
			t.Errorf("position %d = %+v, want %+v (input order)", i, enriched[i].Ref, ref)
		}
	}
	if enriched[1].Warning == "" || enriched[1].Details != nil {
		t.Errorf("failed entry = %+v, want warning and nil details", enriched[1])
	}
	if enriched[0].Details == nil || enriched[2].Details == nil {
		t.Error("healthy entries missing details")
	}
}
