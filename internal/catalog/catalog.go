// Package catalog holds the fixed movie catalog and its precomputed
// similarity matrix. Both are loaded once at startup and read-only after.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a title is not in the catalog.
var ErrNotFound = errors.New("movie not found in catalog")

// Movie is one catalog entry. Index is its row/column in the similarity
// matrix, which matches load order.
type Movie struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Index int    `json:"-"`
}

// Catalog is the movie list plus the pairwise similarity matrix.
type Catalog struct {
	movies     []Movie
	byTitle    map[string]int
	similarity [][]float64
}

// Load reads the movies CSV (header with movie_id and title columns) and the
// similarity CSV (square float matrix, one row per catalog entry). Any
// structural problem is fatal: missing file, missing column, bad number,
// or a matrix whose dimensions do not match the movie count.
func Load(moviesPath, similarityPath string) (*Catalog, error) {
	movies, err := loadMovies(moviesPath)
	if err != nil {
		return nil, err
	}
	sim, err := loadSimilarity(similarityPath)
	if err != nil {
		return nil, err
	}
	if len(sim) != len(movies) {
		return nil, fmt.Errorf("catalog: similarity matrix has %d rows for %d movies", len(sim), len(movies))
	}

	byTitle := make(map[string]int, len(movies))
	for i, m := range movies {
		// First occurrence wins for duplicate titles.
		if _, ok := byTitle[m.Title]; !ok {
			byTitle[m.Title] = i
		}
	}
	return &Catalog{movies: movies, byTitle: byTitle, similarity: sim}, nil
}

func loadMovies(path string) ([]Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open movies file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read movies header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range []string{"movie_id", "title"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("catalog: movies file missing column %q", col)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: read movies rows: %w", err)
	}

	movies := make([]Movie, 0, len(records))
	for n, row := range records {
		id, err := strconv.Atoi(strings.TrimSpace(row[idx["movie_id"]]))
		if err != nil {
			return nil, fmt.Errorf("catalog: movies row %d: bad movie_id %q", n+1, row[idx["movie_id"]])
		}
		movies = append(movies, Movie{ID: id, Title: row[idx["title"]], Index: n})
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("catalog: movies file %s is empty", path)
	}
	return movies, nil
}

func loadSimilarity(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open similarity file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: read similarity rows: %w", err)
	}

	matrix := make([][]float64, 0, len(records))
	for n, row := range records {
		if len(row) != len(records) {
			return nil, fmt.Errorf("catalog: similarity row %d has %d columns, want %d", n+1, len(row), len(records))
		}
		scores := make([]float64, len(row))
		for j, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("catalog: similarity row %d col %d: bad score %q", n+1, j+1, cell)
			}
			scores[j] = v
		}
		matrix = append(matrix, scores)
	}
	return matrix, nil
}

// FindByTitle returns the first catalog entry whose title matches exactly.
func (c *Catalog) FindByTitle(title string) (Movie, error) {
	i, ok := c.byTitle[title]
	if !ok {
		return Movie{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return c.movies[i], nil
}

// ByIndex returns the catalog entry at the given matrix index.
func (c *Catalog) ByIndex(i int) (Movie, error) {
	if i < 0 || i >= len(c.movies) {
		return Movie{}, fmt.Errorf("%w: index %d", ErrNotFound, i)
	}
	return c.movies[i], nil
}

// Titles returns all titles in load order, for UI population.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.movies))
	for i, m := range c.movies {
		titles[i] = m.Title
	}
	return titles
}

// Row returns the similarity scores for one catalog entry. The returned
// slice is shared and must not be modified.
func (c *Catalog) Row(i int) []float64 {
	return c.similarity[i]
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.movies)
}
