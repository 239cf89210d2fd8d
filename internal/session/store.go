// Package session holds per-user transient state: watchlist, reviews with
// ratings, and favorite actors/directors. Nothing here survives a restart.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned for out-of-range scores, empty text, or an
// unknown favorite kind.
var ErrInvalidInput = errors.New("session: invalid input")

// FavoriteKind distinguishes favorite actors from favorite directors.
type FavoriteKind string

// Favorite kinds.
const (
	FavoriteActor    FavoriteKind = "actor"
	FavoriteDirector FavoriteKind = "director"
)

// Review is one review with its score.
type Review struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// State is the mutable state of one user session. All methods are
// safe for concurrent use.
type State struct {
	mu          sync.Mutex
	watchlist   []string
	watchset    map[string]struct{}
	reviews     map[string][]Review
	reviewOrder []string
	actors      []string
	directors   []string
}

func newState() *State {
	return &State{
		watchset: make(map[string]struct{}),
		reviews:  make(map[string][]Review),
	}
}

// AddToWatchlist appends the title unless it is already present. The return
// value reports whether the title was actually added.
func (s *State) AddToWatchlist(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchset[title]; ok {
		return false
	}
	s.watchset[title] = struct{}{}
	s.watchlist = append(s.watchlist, title)
	return true
}

// Watchlist returns the watchlist in insertion order.
func (s *State) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.watchlist))
	copy(out, s.watchlist)
	return out
}

// AddReview records a review and score for a title. The score must be an
// integer in [0,10] and the text must be non-empty.
func (s *State) AddReview(title, text string, score int) error {
	if score < 0 || score > 10 {
		return fmt.Errorf("%w: score %d outside [0,10]", ErrInvalidInput, score)
	}
	if text == "" {
		return fmt.Errorf("%w: empty review text", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[title]; !ok {
		s.reviewOrder = append(s.reviewOrder, title)
	}
	s.reviews[title] = append(s.reviews[title], Review{Text: text, Score: score})
	return nil
}

// Reviews returns all reviews recorded for a title, oldest first.
func (s *State) Reviews(title string) []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Review, len(s.reviews[title]))
	copy(out, s.reviews[title])
	return out
}

// ReviewedTitles returns every title with at least one review, ordered by
// when the title was first reviewed.
func (s *State) ReviewedTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, len(s.reviewOrder))
	copy(titles, s.reviewOrder)
	return titles
}

// AverageRating returns the arithmetic mean of all scores recorded for the
// title. The bool is false when no score has been recorded.
func (s *State) AverageRating(title string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews := s.reviews[title]
	if len(reviews) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Score
	}
	return float64(sum) / float64(len(reviews)), true
}

// AddFavorite appends a name to the actor or director list. No dedup, no
// validation against the metadata service.
func (s *State) AddFavorite(kind FavoriteKind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty favorite name", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case FavoriteActor:
		s.actors = append(s.actors, name)
	case FavoriteDirector:
		s.directors = append(s.directors, name)
	default:
		return fmt.Errorf("%w: unknown favorite kind %q", ErrInvalidInput, kind)
	}
	return nil
}

// Favorites returns the favorite actors and directors in insertion order.
func (s *State) Favorites() (actors, directors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actors = make([]string, len(s.actors))
	copy(actors, s.actors)
	directors = make([]string, len(s.directors))
	copy(directors, s.directors)
	return actors, directors
}

// Manager maps opaque session IDs to their State, creating states on first
// access. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{states: make(map[string]*State)}
}

// NewID returns a fresh opaque session ID.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Get returns the State for a session ID, creating it on first access.
func (m *Manager) Get(id string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		s = newState()
		m.states[id] = s
	}
	return s
}
