package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tracker/internal/game"
	"tracker/internal/live"
	"tracker/internal/logging"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const liveSlot = "current"

// Store is the persistence collaborator: players, matches, the map catalog
// and the single live-match slot, all in Postgres. Every mutation publishes a
// change notification so subscribers can re-read the affected collection.
type Store struct {
	pool     *pgxpool.Pool
	notifier *Notifier
}

// NewStore builds a store over the given pool. The notifier may be nil, in
// which case change notifications are skipped.
func NewStore(pool *pgxpool.Pool, notifier *Notifier) *Store {
	return &Store{pool: pool, notifier: notifier}
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			color TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS maps (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			category   TEXT NOT NULL DEFAULT 'Custom',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS matches (
			id         TEXT PRIMARY KEY,
			date       TIMESTAMPTZ NOT NULL,
			map_id     TEXT NOT NULL,
			map_name   TEXT NOT NULL DEFAULT '',
			duration   INT,
			result     TEXT NOT NULL,
			winner_id  TEXT,
			players    JSONB NOT NULL,
			events     JSONB NOT NULL DEFAULT '[]',
			notes      TEXT NOT NULL DEFAULT '',
			is_live    BOOLEAN NOT NULL DEFAULT FALSE,
			ai_colors  JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS matches_date_idx ON matches (date DESC);
		CREATE TABLE IF NOT EXISTS live_match (
			slot       TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SeedDefaults inserts the two canonical players and the starter map catalog
// when their tables are empty. Runs on every startup; a populated table is
// left untouched.
func (s *Store) SeedDefaults(ctx context.Context) error {
	var playerCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&playerCount); err != nil {
		return fmt.Errorf("count players: %w", err)
	}
	if playerCount == 0 {
		for _, p := range game.DefaultPlayers {
			if _, err := s.pool.Exec(ctx,
				`INSERT INTO players (id, name, color) VALUES ($1, $2, $3)`,
				string(p.ID), p.Name, p.Color); err != nil {
				return fmt.Errorf("seed player %s: %w", p.ID, err)
			}
		}
		logging.Logger().Infof("seeded %d default players", len(game.DefaultPlayers))
	}

	var mapCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM maps`).Scan(&mapCount); err != nil {
		return fmt.Errorf("count maps: %w", err)
	}
	if mapCount == 0 {
		for _, m := range game.DefaultMaps {
			if _, err := s.pool.Exec(ctx,
				`INSERT INTO maps (id, name, category) VALUES ($1, $2, $3)`,
				uuid.NewString(), m.Name, m.Category); err != nil {
				return fmt.Errorf("seed map %s: %w", m.Name, err)
			}
		}
		logging.Logger().Infof("seeded %d default maps", len(game.DefaultMaps))
	}
	return nil
}

// ListPlayers returns both players ordered by id, so player1 comes first.
func (s *Store) ListPlayers(ctx context.Context) ([]game.Player, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, color FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Color); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpdatePlayer applies a partial name/color edit. Nil fields are left as-is.
func (s *Store) UpdatePlayer(ctx context.Context, id game.PlayerID, name, color *string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE players SET name = COALESCE($2, name), color = COALESCE($3, color)
		WHERE id = $1
	`, string(id), name, color)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.notifier.Publish(ctx, CollectionPlayers)
	return nil
}

// MatchFilter narrows ListMatches. Zero values mean "no constraint".
type MatchFilter struct {
	MapID    string
	WinnerID game.PlayerID
	From     *time.Time
	To       *time.Time
}

const matchColumns = `id, date, map_id, map_name, duration, result, winner_id, players, events, notes, is_live, ai_colors`

// ListMatches returns matches newest-first, optionally filtered.
func (s *Store) ListMatches(ctx context.Context, filter MatchFilter) ([]game.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches`
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.MapID != "" {
		add("map_id = $%d", filter.MapID)
	}
	if filter.WinnerID != "" {
		add("winner_id = $%d", string(filter.WinnerID))
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY date DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []game.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// GetMatch fetches one match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (*game.Match, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanMatch(rows)
}

// CreateMatch inserts a match and returns its store-assigned id.
func (s *Store) CreateMatch(ctx context.Context, m *game.Match) (string, error) {
	id := uuid.NewString()
	if err := s.insertMatch(ctx, s.pool, id, m); err != nil {
		return "", err
	}
	s.notifier.Publish(ctx, CollectionMatches)
	return id, nil
}

// ReplaceMatch overwrites a match record in full.
func (s *Store) ReplaceMatch(ctx context.Context, m *game.Match) error {
	players, events, aiColors, err := encodeMatchBlobs(m)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE matches
		SET date = $2, map_id = $3, map_name = $4, duration = $5, result = $6,
		    winner_id = $7, players = $8, events = $9, notes = $10, is_live = $11, ai_colors = $12
		WHERE id = $1
	`, m.ID, m.Date, m.MapID, m.MapName, m.Duration, string(m.Result),
		winnerArg(m.WinnerID), players, events, m.Notes, m.IsLive, aiColors)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.notifier.Publish(ctx, CollectionMatches)
	return nil
}

// DeleteMatch removes a match by id.
func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.notifier.Publish(ctx, CollectionMatches)
	return nil
}

// ListMaps returns the map catalog ordered by name.
func (s *Store) ListMaps(ctx context.Context) ([]game.MapInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, category, created_at FROM maps ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var maps []game.MapInfo
	for rows.Next() {
		var m game.MapInfo
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.CreatedAt); err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

// GetMap fetches one catalog entry by id.
func (s *Store) GetMap(ctx context.Context, id string) (*game.MapInfo, error) {
	var m game.MapInfo
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, created_at FROM maps WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Category, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get map: %w", err)
	}
	return &m, nil
}

// CreateMaps inserts catalog entries for each name under one category and
// returns them with their assigned ids.
func (s *Store) CreateMaps(ctx context.Context, names []string, category string) ([]game.MapInfo, error) {
	created := make([]game.MapInfo, 0, len(names))
	for _, name := range names {
		m := game.MapInfo{ID: uuid.NewString(), Name: name, Category: category, CreatedAt: time.Now().UTC()}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO maps (id, name, category, created_at) VALUES ($1, $2, $3, $4)`,
			m.ID, m.Name, m.Category, m.CreatedAt); err != nil {
			return created, fmt.Errorf("create map %s: %w", name, err)
		}
		created = append(created, m)
	}
	s.notifier.Publish(ctx, CollectionMaps)
	return created, nil
}

// DeleteMap removes a catalog entry by id.
func (s *Store) DeleteMap(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM maps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete map: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.notifier.Publish(ctx, CollectionMaps)
	return nil
}

// ActiveMatch returns the live slot's contents, or nil when empty.
func (s *Store) ActiveMatch(ctx context.Context) (*game.ActiveMatch, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM live_match WHERE slot = $1`, liveSlot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get live match: %w", err)
	}
	var am game.ActiveMatch
	if err := json.Unmarshal(data, &am); err != nil {
		return nil, fmt.Errorf("decode live match: %w", err)
	}
	return &am, nil
}

// CreateActiveMatch fills the live slot. The slot's primary key is what makes
// "at most one live match" hold across concurrent devices.
func (s *Store) CreateActiveMatch(ctx context.Context, am *game.ActiveMatch) error {
	data, err := json.Marshal(am)
	if err != nil {
		return fmt.Errorf("encode live match: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO live_match (slot, data) VALUES ($1, $2)
		ON CONFLICT (slot) DO NOTHING
	`, liveSlot, data)
	if err != nil {
		return fmt.Errorf("create live match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return live.ErrMatchInProgress
	}
	s.notifier.Publish(ctx, CollectionLive)
	return nil
}

// UpdateActiveMatch overwrites the live slot.
func (s *Store) UpdateActiveMatch(ctx context.Context, am *game.ActiveMatch) error {
	data, err := json.Marshal(am)
	if err != nil {
		return fmt.Errorf("encode live match: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE live_match SET data = $2, updated_at = now() WHERE slot = $1`, liveSlot, data)
	if err != nil {
		return fmt.Errorf("update live match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return live.ErrNoActiveMatch
	}
	s.notifier.Publish(ctx, CollectionLive)
	return nil
}

// FinalizeActiveMatch creates the finalized match record and clears the live
// slot in one transaction, so a failed insert leaves the slot untouched.
func (s *Store) FinalizeActiveMatch(ctx context.Context, m *game.Match) (string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.NewString()
	if err := s.insertMatch(ctx, tx, id, m); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM live_match WHERE slot = $1`, liveSlot); err != nil {
		return "", fmt.Errorf("clear live slot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.notifier.Publish(ctx, CollectionMatches)
	s.notifier.Publish(ctx, CollectionLive)
	return id, nil
}

// ClearActiveMatch empties the live slot.
func (s *Store) ClearActiveMatch(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM live_match WHERE slot = $1`, liveSlot); err != nil {
		return fmt.Errorf("clear live match: %w", err)
	}
	s.notifier.Publish(ctx, CollectionLive)
	return nil
}

// execer covers both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) insertMatch(ctx context.Context, ex execer, id string, m *game.Match) error {
	players, events, aiColors, err := encodeMatchBlobs(m)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
		INSERT INTO matches (id, date, map_id, map_name, duration, result, winner_id,
		                     players, events, notes, is_live, ai_colors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, id, m.Date, m.MapID, m.MapName, m.Duration, string(m.Result),
		winnerArg(m.WinnerID), players, events, m.Notes, m.IsLive, aiColors)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func encodeMatchBlobs(m *game.Match) (players, events, aiColors []byte, err error) {
	if players, err = json.Marshal(m.Players); err != nil {
		return nil, nil, nil, fmt.Errorf("encode players: %w", err)
	}
	evts := m.Events
	if evts == nil {
		evts = []game.LiveEvent{}
	}
	if events, err = json.Marshal(evts); err != nil {
		return nil, nil, nil, fmt.Errorf("encode events: %w", err)
	}
	colors := m.AIColors
	if colors == nil {
		colors = []string{}
	}
	if aiColors, err = json.Marshal(colors); err != nil {
		return nil, nil, nil, fmt.Errorf("encode ai colors: %w", err)
	}
	return players, events, aiColors, nil
}

func winnerArg(w *game.PlayerID) *string {
	if w == nil {
		return nil
	}
	v := string(*w)
	return &v
}

func scanMatch(rows pgx.Rows) (*game.Match, error) {
	var (
		m        game.Match
		result   string
		winner   *string
		players  []byte
		events   []byte
		aiColors []byte
	)
	if err := rows.Scan(&m.ID, &m.Date, &m.MapID, &m.MapName, &m.Duration, &result,
		&winner, &players, &events, &m.Notes, &m.IsLive, &aiColors); err != nil {
		return nil, fmt.Errorf("scan match: %w", err)
	}
	m.Result = game.Result(result)
	if winner != nil {
		w := game.PlayerID(*winner)
		m.WinnerID = &w
	}
	if err := json.Unmarshal(players, &m.Players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal(events, &m.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if err := json.Unmarshal(aiColors, &m.AIColors); err != nil {
		return nil, fmt.Errorf("decode ai colors: %w", err)
	}
	return &m, nil
}
