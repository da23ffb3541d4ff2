package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/pkg/metrics"
)

const dateLayout = "2006-01-02"

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	maxOpenConns    int
	connMaxLifetime time.Duration
	now             func() time.Time
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		opts = append(opts, WithMaxOpenConns(1))
	} else if !strings.Contains(path, "?") {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	return open(ctx, sqliteDialect, dsn, opts...)
}

// OpenPostgres connects to the Postgres database at dsn and migrates it.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return open(ctx, postgresDialect, dsn, opts...)
}

// Open selects the backend by driver name: sqlite or postgres.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(ctx, dsn, opts...)
	case "postgres":
		return OpenPostgres(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func open(ctx context.Context, d dialect, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		dialect:         d,
		maxOpenConns:    10,
		connMaxLifetime: time.Hour,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.driver, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxOpenConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.driver, err)
	}
	if err := applyMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s.db = db
	return s, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ListMatches(ctx context.Context, sport model.Sport, season int) (out []model.Match, err error) {
	defer observe("list_matches", time.Now(), &err)

	query := `SELECT id, sport, season, match_date, score_a, score_b, created_at
FROM matches WHERE sport = ?`
	args := []any{string(sport)}
	if season != 0 {
		query += ` AND season = ?`
		args = append(args, season)
	}
	query += ` ORDER BY match_date, created_at, id`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = make([]model.Match, 0)
	for rows.Next() {
		var (
			m         model.Match
			sportName string
			date      string
			created   int64
		)
		if err := rows.Scan(&m.ID, &sportName, &m.Season, &date, &m.ScoreA, &m.ScoreB, &created); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Sport = model.Sport(sportName)
		if m.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse match date %q: %w", date, err)
		}
		m.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

func (s *SQLStore) InsertMatch(ctx context.Context, m model.Match) (err error) {
	defer observe("insert_match", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO matches
(id, sport, season, match_date, score_a, score_b, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID,
		string(m.Sport),
		m.Season,
		m.Date.UTC().Format(dateLayout),
		m.ScoreA,
		m.ScoreB,
		m.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *SQLStore) CurrentSeason(ctx context.Context, sport model.Sport) (n int, err error) {
	defer observe("current_season", time.Now(), &err)

	err = s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT current_season FROM season_tracker WHERE sport = ?`),
		string(sport),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("current season: %w", err)
	}
	return n, nil
}

func (s *SQLStore) InitSeason(ctx context.Context, sport model.Sport, season int) (err error) {
	defer observe("init_season", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO season_tracker (sport, current_season, updated_at)
VALUES (?, ?, ?) ON CONFLICT (sport) DO NOTHING`),
		string(sport), season, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("init season: %w", err)
	}
	return nil
}

func (s *SQLStore) AdvanceSeason(ctx context.Context, sport model.Sport) (n int, err error) {
	defer observe("advance_season", time.Now(), &err)

	// a missing row means season 1 is open, so the first advance lands on 2
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(`INSERT INTO season_tracker (sport, current_season, updated_at)
VALUES (?, 2, ?)
ON CONFLICT (sport) DO UPDATE SET
    current_season = season_tracker.current_season + 1,
    updated_at = excluded.updated_at
RETURNING current_season`),
		string(sport), s.now().UTC().UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("advance season: %w", err)
	}
	return n, nil
}

func (s *SQLStore) UpsertRating(ctx context.Context, sport model.Sport, player string, rating int) (err error) {
	defer observe("upsert_rating", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO ratings (sport, player, rating, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (sport, player) DO UPDATE SET
    rating = excluded.rating,
    updated_at = excluded.updated_at`),
		string(sport), player, rating, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (s *SQLStore) Ratings(ctx context.Context, sport model.Sport) (out map[string]int, err error) {
	defer observe("ratings", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT player, rating FROM ratings WHERE sport = ?`), string(sport))
	if err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = make(map[string]int)
	for rows.Next() {
		var (
			player string
			rating int
		)
		if err := rows.Scan(&player, &rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out[player] = rating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil && !errors.Is(*errp, ErrNotFound) {
		err = *errp
	}
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000.0, err)
}

var _ Store = (*SQLStore)(nil)
