// Package service wires the stores, the rating engine, the season aggregator
// and the background refresh workers behind the operations the HTTP API
// exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rivalry/internal/adapters/mq/queue"
	"github.com/okian/rivalry/internal/adapters/mq/worker"
	"github.com/okian/rivalry/internal/adapters/repository"
	"github.com/okian/rivalry/internal/domain/dedupe"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/rating"
	"github.com/okian/rivalry/internal/domain/season"
	"github.com/okian/rivalry/internal/domain/types"
	"github.com/okian/rivalry/pkg/logger"
	"github.com/okian/rivalry/pkg/metrics"
)

const maxMatchIDLength = 64

// Notifier hears about every state change. The live hub implements it.
type Notifier interface {
	MatchRecorded(ctx context.Context, m model.Match)
	SeasonAdvanced(ctx context.Context, sport model.Sport, season int)
	RatingsUpdated(ctx context.Context, sport model.Sport, r model.Ratings)
}

// MatchInput is a match as submitted by the admin.
type MatchInput struct {
	ID     string    // optional; generated when empty
	Date   time.Time // optional; today when zero
	ScoreA int
	ScoreB int
}

// Service implements the API dependencies for the tracker.
type Service struct {
	mu sync.RWMutex

	matches repository.MatchStore
	seasons repository.SeasonStore
	ratings repository.RatingStore

	sports     []model.SportConfig
	sportIndex map[model.Sport]model.SportConfig
	// sportLocks order season changes against match inserts per sport
	sportLocks map[model.Sport]*sync.RWMutex
	// refreshLocks keep one rating refresh per sport between read and write
	refreshLocks map[model.Sport]*sync.Mutex

	playerA, playerB string
	engine           *rating.Engine

	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	notifier Notifier

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	now     func() time.Time

	logger logger.Logger
}

// New constructs a Service. Without store options everything is kept in memory.
func New(opts ...Option) *Service {
	s := &Service{
		playerA:     "T",
		playerB:     "D",
		engine:      rating.New(),
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  10_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.matches == nil || s.seasons == nil || s.ratings == nil {
		mem := repository.NewMemoryStore()
		if s.matches == nil {
			s.matches = mem
		}
		if s.seasons == nil {
			s.seasons = mem
		}
		if s.ratings == nil {
			s.ratings = mem
		}
	}
	if len(s.sports) == 0 {
		s.sports = []model.SportConfig{
			{Name: "Tennis", Mode: model.WinCount},
			{Name: "Ping Pong", Mode: model.RawScore},
			{Name: "Badminton", Mode: model.RawScore},
		}
	}
	s.sportIndex = make(map[model.Sport]model.SportConfig, len(s.sports))
	s.sportLocks = make(map[model.Sport]*sync.RWMutex, len(s.sports))
	s.refreshLocks = make(map[model.Sport]*sync.Mutex, len(s.sports))
	for _, sc := range s.sports {
		s.sportIndex[sc.Name] = sc
		s.sportLocks[sc.Name] = &sync.RWMutex{}
		s.refreshLocks[sc.Name] = &sync.Mutex{}
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	return s
}

// Start launches the refresh workers and schedules one refresh per sport so
// stored ratings catch up with matches recorded while the service was down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	// RefreshRatings announces new ratings itself, in write order
	s.pool = worker.NewPool(s.workerCount, s.queue, s, nil)
	s.pool.Start(ctx)

	for _, sc := range s.sports {
		s.enqueueRefresh(ctx, sc.Name, "startup")
	}
	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("sports", len(s.sports)),
	)
	return nil
}

// Stop closes the refresh queue and stops the workers. A stopped service
// cannot be restarted. Stores are left open for their owner to close.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "service stopped")
	return err
}

// Sports returns the configured sports in configuration order.
func (s *Service) Sports() []model.SportConfig {
	out := make([]model.SportConfig, len(s.sports))
	copy(out, s.sports)
	return out
}

// Players returns the labels of player A and player B.
func (s *Service) Players() (string, string) {
	return s.playerA, s.playerB
}

// Sport looks up a configured sport by name.
func (s *Service) Sport(name model.Sport) (model.SportConfig, error) {
	sc, ok := s.sportIndex[name]
	if !ok {
		return model.SportConfig{}, fmt.Errorf("%w: %q", ErrUnknownSport, name)
	}
	return sc, nil
}

// CurrentSeason returns the open season. A sport that never had one starts
// at season 1, which is persisted.
func (s *Service) CurrentSeason(ctx context.Context, sport model.Sport) (int, error) {
	if _, err := s.Sport(sport); err != nil {
		return 0, err
	}
	return s.currentSeason(ctx, sport)
}

func (s *Service) currentSeason(ctx context.Context, sport model.Sport) (int, error) {
	n, err := s.seasons.CurrentSeason(ctx, sport)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("current season: %w", err)
	}
	if err := s.seasons.InitSeason(ctx, sport, 1); err != nil {
		return 0, fmt.Errorf("init season: %w", err)
	}
	// re-read in case another writer initialised it first
	n, err = s.seasons.CurrentSeason(ctx, sport)
	if err != nil {
		return 0, fmt.Errorf("current season: %w", err)
	}
	metrics.UpdateCurrentSeason(string(sport), n)
	return n, nil
}

// RecordMatch validates and stores a match in the open season. A replayed
// ID is reported with duplicate=true and changes nothing.
func (s *Service) RecordMatch(ctx context.Context, sport model.Sport, in MatchInput) (m model.Match, duplicate bool, err error) {
	if _, err := s.Sport(sport); err != nil {
		return model.Match{}, false, err
	}
	if in.ScoreA < 0 || in.ScoreB < 0 {
		return model.Match{}, false, fmt.Errorf("%w: scores must not be negative", ErrInvalidMatch)
	}
	id := strings.TrimSpace(in.ID)
	if len(id) > maxMatchIDLength {
		return model.Match{}, false, fmt.Errorf("%w: id longer than %d characters", ErrInvalidMatch, maxMatchIDLength)
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	lock := s.sportLocks[sport]
	lock.RLock()
	defer lock.RUnlock()

	key := dedupeKey(sport, id)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordMatchDuplicate(string(sport))
		return model.Match{ID: id, Sport: sport}, true, nil
	}

	cur, err := s.currentSeason(ctx, sport)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return model.Match{}, false, err
	}
	m = model.Match{
		ID:        id,
		Sport:     sport,
		Season:    cur,
		Date:      model.DateOf(date),
		ScoreA:    in.ScoreA,
		ScoreB:    in.ScoreB,
		CreatedAt: now.Truncate(time.Millisecond),
	}
	if err := s.matches.InsertMatch(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.replayed(ctx, sport, key, id)
		}
		s.deduper.Unrecord(ctx, key)
		return model.Match{}, false, fmt.Errorf("insert match: %w", err)
	}

	metrics.RecordMatchRecorded(string(sport))
	s.logger.Info(ctx, "match recorded",
		logger.String("sport", string(sport)),
		logger.String("match_id", id),
		logger.Int("season", cur),
		logger.Int("score_a", m.ScoreA),
		logger.Int("score_b", m.ScoreB),
	)
	if s.notifier != nil {
		s.notifier.MatchRecorded(ctx, m)
	}
	s.enqueueRefresh(ctx, sport, "match_recorded")
	return m, false, nil
}

// replayed resolves a store-level duplicate the deduper no longer remembers.
// IDs are unique across sports, so an ID held by another sport is a conflict.
func (s *Service) replayed(ctx context.Context, sport model.Sport, key, id string) (model.Match, bool, error) {
	list, err := s.matches.ListMatches(ctx, sport, 0)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return model.Match{}, false, fmt.Errorf("list matches: %w", err)
	}
	for _, m := range list {
		if m.ID == id {
			metrics.RecordMatchDuplicate(string(sport))
			return m, true, nil
		}
	}
	s.deduper.Unrecord(ctx, key)
	return model.Match{}, false, fmt.Errorf("%w: id %q is recorded under another sport", ErrMatchConflict, id)
}

func dedupeKey(sport model.Sport, id string) string {
	return string(sport) + "/" + id
}

// AdvanceSeason closes the open season and returns the new season number.
func (s *Service) AdvanceSeason(ctx context.Context, sport model.Sport) (int, error) {
	if _, err := s.Sport(sport); err != nil {
		return 0, err
	}
	lock := s.sportLocks[sport]
	lock.Lock()
	defer lock.Unlock()

	n, err := s.seasons.AdvanceSeason(ctx, sport)
	if err != nil {
		return 0, fmt.Errorf("advance season: %w", err)
	}
	metrics.RecordSeasonAdvanced(string(sport), n)
	s.logger.Info(ctx, "season advanced", logger.String("sport", string(sport)), logger.Int("season", n))
	if s.notifier != nil {
		s.notifier.SeasonAdvanced(ctx, sport, n)
	}
	return n, nil
}

// Matches lists a sport's matches newest first. Season 0 lists all seasons.
func (s *Service) Matches(ctx context.Context, sport model.Sport, seasonNo int) ([]model.Match, error) {
	if _, err := s.Sport(sport); err != nil {
		return nil, err
	}
	if seasonNo < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSeason, seasonNo)
	}
	list, err := s.matches.ListMatches(ctx, sport, seasonNo)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// Summary derives everything the dashboard shows for a sport from the full
// match log.
func (s *Service) Summary(ctx context.Context, sport model.Sport) (types.Summary, error) {
	sc, err := s.Sport(sport)
	if err != nil {
		return types.Summary{}, err
	}
	// one snapshot: no season may close between the two reads
	lock := s.sportLocks[sport]
	lock.RLock()
	defer lock.RUnlock()

	all, err := s.matches.ListMatches(ctx, sport, 0)
	if err != nil {
		return types.Summary{}, fmt.Errorf("list matches: %w", err)
	}
	cur, err := s.currentSeason(ctx, sport)
	if err != nil {
		return types.Summary{}, err
	}

	agg := season.Aggregate(all, sc.Mode)
	current := agg[cur]
	current.Season = cur
	sum := types.Summary{
		Sport:         sport,
		Mode:          sc.Mode,
		PlayerA:       s.playerA,
		PlayerB:       s.playerB,
		CurrentSeason: cur,
		Matches:       len(all),
		Ratings:       s.engine.Compute(all),
		Current:       current,
		AllTime:       season.Totals(agg),
		Seasons:       season.Sorted(agg),
		SeasonWins:    season.CountWins(season.Aggregate(all, sc.Mode, season.Excluding(cur))),
	}
	if len(all) > 0 {
		last := all[len(all)-1].Date
		sum.LastMatchAt = &last
	}

	stored, err := s.ratings.Ratings(ctx, sport)
	if err != nil {
		// stored ratings are informational; the computed pair is authoritative
		s.logger.Warn(ctx, "reading stored ratings failed", logger.String("sport", string(sport)), logger.Error(err))
	} else if len(stored) > 0 {
		sum.Stored = stored
	}
	return sum, nil
}

// RatingHistory returns the rating pair after every match, oldest first.
func (s *Service) RatingHistory(ctx context.Context, sport model.Sport) ([]model.RatingPoint, error) {
	if _, err := s.Sport(sport); err != nil {
		return nil, err
	}
	all, err := s.matches.ListMatches(ctx, sport, 0)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return s.engine.History(all), nil
}

// RefreshRatings recomputes a sport's ratings from scratch and writes both
// players' values to the rating store. Refreshes of one sport run one at a
// time, so a later refresh always writes a snapshot at least as new.
func (s *Service) RefreshRatings(ctx context.Context, sport model.Sport) (model.Ratings, error) {
	if _, err := s.Sport(sport); err != nil {
		return model.Ratings{}, err
	}
	lock := s.refreshLocks[sport]
	lock.Lock()
	defer lock.Unlock()
	all, err := s.matches.ListMatches(ctx, sport, 0)
	if err != nil {
		return model.Ratings{}, fmt.Errorf("list matches: %w", err)
	}
	r := s.engine.Compute(all)
	if err := s.ratings.UpsertRating(ctx, sport, s.playerA, r.RatingA); err != nil {
		return model.Ratings{}, fmt.Errorf("upsert rating %s: %w", s.playerA, err)
	}
	if err := s.ratings.UpsertRating(ctx, sport, s.playerB, r.RatingB); err != nil {
		return model.Ratings{}, fmt.Errorf("upsert rating %s: %w", s.playerB, err)
	}
	metrics.UpdateRating(string(sport), s.playerA, r.RatingA)
	metrics.UpdateRating(string(sport), s.playerB, r.RatingB)
	if s.notifier != nil {
		s.notifier.RatingsUpdated(ctx, sport, r)
	}
	return r, nil
}

func (s *Service) enqueueRefresh(ctx context.Context, sport model.Sport, reason string) {
	job := model.RefreshJob{Sport: sport, Reason: reason, RequestedAt: s.now().UTC()}
	if !s.queue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "rating refresh not queued",
			logger.String("sport", string(sport)),
			logger.String("reason", reason),
		)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sports))
	for _, sc := range s.sports {
		names = append(names, string(sc.Name))
	}
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"queueLength": s.queue.Len(context.Background()),
		"seenMatches": s.deduper.Size(),
		"sports":      names,
		"players":     []string{s.playerA, s.playerB},
		"elo": map[string]any{
			"k":       s.engine.K(),
			"initial": s.engine.Initial(),
		},
	}
	if s.pool != nil {
		stats["refreshed"] = s.pool.Processed()
	}
	return stats
}
