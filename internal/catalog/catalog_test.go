package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	movies := writeFile(t, dir, "movies.csv",
		"movie_id,title\n10,Inception\n20,Heat\n30,Alien\n")
	sim := writeFile(t, dir, "similarity.csv",
		"1.0,0.9,0.2\n0.9,1.0,0.5\n0.2,0.5,1.0\n")
	c, err := Load(movies, sim)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoad(t *testing.T) {
	c := loadFixture(t)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	got := c.Titles()
	want := []string{"Inception", "Heat", "Alien"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Titles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	row := c.Row(0)
	if row[1] != 0.9 {
		t.Errorf("Row(0)[1] = %v, want 0.9", row[1])
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	movies := writeFile(t, dir, "movies.csv", "movie_id,title\n10,Inception\n20,Heat\n")
	noID := writeFile(t, dir, "noid.csv", "id,title\n10,Inception\n")
	empty := writeFile(t, dir, "empty.csv", "movie_id,title\n")
	square2 := writeFile(t, dir, "sim2.csv", "1.0,0.4\n0.4,1.0\n")
	square3 := writeFile(t, dir, "sim3.csv", "1.0,0.4,0.1\n0.4,1.0,0.2\n0.1,0.2,1.0\n")
	ragged := writeFile(t, dir, "ragged.csv", "1.0,0.4\n0.4,1.0,0.9\n")
	badNum := writeFile(t, dir, "badnum.csv", "1.0,x\n0.4,1.0\n")

	tests := []struct {
		name       string
		moviesPath string
		simPath    string
	}{
		{"missing movies file", filepath.Join(dir, "nope.csv"), square2},
		{"missing similarity file", movies, filepath.Join(dir, "nope.csv")},
		{"missing movie_id column", noID, square2},
		{"empty movies file", empty, square2},
		{"dimension mismatch", movies, square3},
		{"non-square matrix", movies, ragged},
		{"bad score", movies, badNum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.moviesPath, tt.simPath); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestFindByTitle(t *testing.T) {
	c := loadFixture(t)

	m, err := c.FindByTitle("Heat")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if m.ID != 20 || m.Index != 1 {
		t.Errorf("FindByTitle(Heat) = %+v, want ID 20 index 1", m)
	}

	if _, err := c.FindByTitle("heat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("lookup is case-sensitive, got err %v", err)
	}
	if _, err := c.FindByTitle("Unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByTitle(Unknown) err = %v, want ErrNotFound", err)
	}
}

func TestFindByTitleFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	movies := writeFile(t, dir, "movies.csv",
		"movie_id,title\n10,Dup\n20,Dup\n")
	sim := writeFile(t, dir, "similarity.csv", "1.0,0.5\n0.5,1.0\n")
	c, err := Load(movies, sim)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m, err := c.FindByTitle("Dup")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if m.ID != 10 {
		t.Errorf("FindByTitle(Dup).ID = %d, want first match 10", m.ID)
	}
}

func TestByIndex(t *testing.T) {
	c := loadFixture(t)

	m, err := c.ByIndex(2)
	if err != nil {
		t.Fatalf("ByIndex: %v", err)
	}
	if m.Title != "Alien" {
		t.Errorf("ByIndex(2).Title = %q, want Alien", m.Title)
	}
	if _, err := c.ByIndex(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByIndex(3) err = %v, want ErrNotFound", err)
	}
}
