package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/rivalry/internal/domain/model"
)

// MemoryStore keeps matches, seasons and ratings in process memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[model.Sport][]model.Match
	ids     map[string]struct{}
	seasons map[model.Sport]int
	ratings map[model.Sport]map[string]int
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[model.Sport][]model.Match),
		ids:     make(map[string]struct{}),
		seasons: make(map[model.Sport]int),
		ratings: make(map[model.Sport]map[string]int),
	}
}

func (s *MemoryStore) ListMatches(ctx context.Context, sport model.Sport, season int) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	all := s.matches[sport]
	out := make([]model.Match, 0, len(all))
	for _, m := range all {
		if season == 0 || m.Season == season {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertMatch(ctx context.Context, m model.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.ids[m.ID]; ok {
		return ErrDuplicate
	}
	s.ids[m.ID] = struct{}{}

	// keep each sport sorted so reads never sort
	list := s.matches[m.Sport]
	i := sort.Search(len(list), func(i int) bool { return m.Before(list[i]) })
	list = append(list, model.Match{})
	copy(list[i+1:], list[i:])
	list[i] = m
	s.matches[m.Sport] = list
	return nil
}

func (s *MemoryStore) CurrentSeason(ctx context.Context, sport model.Sport) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	n, ok := s.seasons[sport]
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *MemoryStore) InitSeason(ctx context.Context, sport model.Sport, season int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.seasons[sport]; !ok {
		s.seasons[sport] = season
	}
	return nil
}

func (s *MemoryStore) AdvanceSeason(ctx context.Context, sport model.Sport) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n, ok := s.seasons[sport]
	if !ok {
		n = 1
	}
	n++
	s.seasons[sport] = n
	return n, nil
}

func (s *MemoryStore) UpsertRating(ctx context.Context, sport model.Sport, player string, rating int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	byPlayer, ok := s.ratings[sport]
	if !ok {
		byPlayer = make(map[string]int)
		s.ratings[sport] = byPlayer
	}
	byPlayer[player] = rating
	return nil
}

func (s *MemoryStore) Ratings(ctx context.Context, sport model.Sport) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]int, len(s.ratings[sport]))
	for p, r := range s.ratings[sport] {
		out[p] = r
	}
	return out, nil
}

// Close marks the store closed; later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
