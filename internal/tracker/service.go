package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/internal/db"
	"tracker/internal/game"
	"tracker/internal/live"
	"tracker/internal/logging"
)

// Service exposes the tracker's core operations to the transport layer. All
// derived statistics are recomputed from store snapshots on every call; the
// service keeps no state of its own.
type Service struct {
	store   *db.Store
	session *live.Session
	offsets game.Offsets
}

// New builds the core service.
func New(store *db.Store, session *live.Session, offsets game.Offsets) *Service {
	return &Service{store: store, session: session, offsets: offsets}
}

// Players returns both players.
func (s *Service) Players(ctx context.Context) ([]game.Player, error) {
	return s.store.ListPlayers(ctx)
}

// UpdatePlayer applies a partial name/color edit to one player.
func (s *Service) UpdatePlayer(ctx context.Context, id game.PlayerID, name, color *string) error {
	if !id.Valid() {
		return &game.ValidationError{Field: "playerId", Reason: fmt.Sprintf("unknown player %q", id)}
	}
	if name != nil && *name == "" {
		return &game.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return s.store.UpdatePlayer(ctx, id, name, color)
}

// Matches returns the match list newest-first, optionally filtered.
func (s *Service) Matches(ctx context.Context, filter db.MatchFilter) ([]game.Match, error) {
	return s.store.ListMatches(ctx, filter)
}

// AddMatch records a manually entered match. The date defaults to now and the
// map name is resolved from the catalog when not supplied.
func (s *Service) AddMatch(ctx context.Context, m *game.Match) (*game.Match, error) {
	if m.Date.IsZero() {
		m.Date = time.Now().UTC()
	}
	if m.MapName == "" {
		m.MapName = s.mapName(ctx, m.MapID)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.CreateMatch(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("add match: %w", err)
	}
	m.ID = id
	logging.Logger().Infof("match %s recorded: result=%s map=%s", id, m.Result, m.MapID)
	return m, nil
}

// MatchUpdate carries a partial match edit. Nil fields are left as-is.
type MatchUpdate struct {
	Date     *time.Time
	MapID    *string
	Duration *int
	Result   *game.Result
	WinnerID *game.PlayerID
	Notes    *string
}

// UpdateMatch loads the match, applies the partial edit, re-validates the
// whole record and writes it back. Nothing is persisted when validation
// fails.
func (s *Service) UpdateMatch(ctx context.Context, id string, upd MatchUpdate) error {
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		return err
	}

	if upd.Date != nil {
		m.Date = *upd.Date
	}
	if upd.MapID != nil {
		m.MapID = *upd.MapID
		m.MapName = s.mapName(ctx, m.MapID)
	}
	if upd.Duration != nil {
		m.Duration = upd.Duration
	}
	if upd.Result != nil {
		m.Result = *upd.Result
	}
	if upd.WinnerID != nil {
		m.WinnerID = upd.WinnerID
	}
	if m.Result == game.ResultDraw {
		m.WinnerID = nil
	}
	if upd.Notes != nil {
		m.Notes = *upd.Notes
	}

	if err := m.Validate(); err != nil {
		return err
	}
	return s.store.ReplaceMatch(ctx, m)
}

// DeleteMatch removes a match record.
func (s *Service) DeleteMatch(ctx context.Context, id string) error {
	return s.store.DeleteMatch(ctx, id)
}

// Maps returns the map catalog.
func (s *Service) Maps(ctx context.Context) ([]game.MapInfo, error) {
	return s.store.ListMaps(ctx)
}

// AddMap adds one catalog entry.
func (s *Service) AddMap(ctx context.Context, name, category string) (*game.MapInfo, error) {
	maps, err := s.AddMaps(ctx, []string{name}, category)
	if err != nil {
		return nil, err
	}
	return &maps[0], nil
}

// AddMaps adds a batch of catalog entries under one category ("map pack").
func (s *Service) AddMaps(ctx context.Context, names []string, category string) ([]game.MapInfo, error) {
	if category == "" {
		category = "Custom"
	}
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, &game.ValidationError{Field: "name", Reason: "map names must not be empty"}
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return nil, &game.ValidationError{Field: "name", Reason: "at least one map name is required"}
	}
	return s.store.CreateMaps(ctx, cleaned, category)
}

// DeleteMap removes a catalog entry.
func (s *Service) DeleteMap(ctx context.Context, id string) error {
	return s.store.DeleteMap(ctx, id)
}

// PlayerStats recomputes one player's standing from the full match list.
func (s *Service) PlayerStats(ctx context.Context, id game.PlayerID) (game.PlayerStats, error) {
	if !id.Valid() {
		return game.PlayerStats{}, &game.ValidationError{Field: "playerId", Reason: fmt.Sprintf("unknown player %q", id)}
	}
	matches, err := s.store.ListMatches(ctx, db.MatchFilter{})
	if err != nil {
		return game.PlayerStats{}, err
	}
	return game.BuildPlayerStats(matches, id, s.offsets), nil
}

// HeadToHead recomputes the leaderboard view from the full match list.
func (s *Service) HeadToHead(ctx context.Context) (game.HeadToHead, error) {
	matches, err := s.store.ListMatches(ctx, db.MatchFilter{})
	if err != nil {
		return game.HeadToHead{}, err
	}
	return game.BuildHeadToHead(matches, s.offsets), nil
}

// ActiveMatch returns the live match in progress, or nil.
func (s *Service) ActiveMatch(ctx context.Context) (*game.ActiveMatch, error) {
	return s.session.Active(ctx)
}

// StartLiveMatch begins live tracking on a map with the chosen AI factions.
func (s *Service) StartLiveMatch(ctx context.Context, mapID string, aiColors []string) (*game.ActiveMatch, error) {
	return s.session.Start(ctx, mapID, aiColors)
}

// LogLiveEvent appends an event to the live match.
func (s *Service) LogLiveEvent(ctx context.Context, e game.LiveEvent) error {
	return s.session.LogEvent(ctx, e)
}

// PauseLiveMatch stops the live match timer.
func (s *Service) PauseLiveMatch(ctx context.Context) error {
	return s.session.Pause(ctx)
}

// ResumeLiveMatch restarts the live match timer.
func (s *Service) ResumeLiveMatch(ctx context.Context) error {
	return s.session.Resume(ctx)
}

// EndLiveMatch finalizes the live match into a match record.
func (s *Service) EndLiveMatch(ctx context.Context, elapsedSeconds int, winnerID *game.PlayerID, result game.Result) (*game.Match, error) {
	am, err := s.session.Active(ctx)
	if err != nil {
		return nil, err
	}
	if am == nil {
		return nil, live.ErrNoActiveMatch
	}
	return s.session.End(ctx, elapsedSeconds, winnerID, result, s.mapName(ctx, am.MapID))
}

// CancelLiveMatch discards the live match without recording anything.
func (s *Service) CancelLiveMatch(ctx context.Context) error {
	return s.session.Cancel(ctx)
}

// mapName resolves a catalog id to its display name; unknown ids resolve to
// an empty name, matching how matches store opaque map references.
func (s *Service) mapName(ctx context.Context, mapID string) string {
	m, err := s.store.GetMap(ctx, mapID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logging.Logger().Warnf("map lookup for %s failed: %v", mapID, err)
		}
		return ""
	}
	return m.Name
}
