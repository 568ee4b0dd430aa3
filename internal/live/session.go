package live

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tracker/internal/game"
	"tracker/internal/logging"
)

// State machine errors. Both signal a caller logic defect, not a transient
// fault; retrying the same call will fail the same way.
var (
	// ErrNoActiveMatch is returned by operations that require a match in
	// progress when the live slot is empty.
	ErrNoActiveMatch = errors.New("no active match")

	// ErrMatchInProgress is returned by Start while the live slot is occupied.
	ErrMatchInProgress = errors.New("a live match is already in progress")
)

// Store is the slice of persistence the live session needs. The single
// ActiveMatch slot lives behind it; enforcing one-match-at-a-time is shared
// between the state machine checks here and the slot's uniqueness in the
// store.
type Store interface {
	// ActiveMatch returns the current live match, or nil when the slot is empty.
	ActiveMatch(ctx context.Context) (*game.ActiveMatch, error)
	// CreateActiveMatch fills the slot; returns ErrMatchInProgress when occupied.
	CreateActiveMatch(ctx context.Context, am *game.ActiveMatch) error
	// UpdateActiveMatch overwrites the slot; returns ErrNoActiveMatch when empty.
	UpdateActiveMatch(ctx context.Context, am *game.ActiveMatch) error
	// FinalizeActiveMatch durably creates the match record and then clears the
	// slot, as one atomic step. On failure the slot must remain intact.
	FinalizeActiveMatch(ctx context.Context, m *game.Match) (string, error)
	// ClearActiveMatch empties the slot without producing a match.
	ClearActiveMatch(ctx context.Context) error
}

// Session drives the live match lifecycle:
//
//	no match → active → (paused ⇄ active) → ended or cancelled → no match
//
// It holds no state of its own; every operation reads the slot from the store
// and treats that snapshot as authoritative.
type Session struct {
	store Store
	now   func() time.Time
}

// NewSession builds a live match session over the given store.
func NewSession(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Active returns the match in progress, or nil when there is none.
func (s *Session) Active(ctx context.Context) (*game.ActiveMatch, error) {
	return s.store.ActiveMatch(ctx)
}

// Start begins a live match on mapID against the chosen AI factions.
// Valid only while no match is in progress.
func (s *Session) Start(ctx context.Context, mapID string, aiColors []string) (*game.ActiveMatch, error) {
	if mapID == "" {
		return nil, &game.ValidationError{Field: "mapId", Reason: "a map is required"}
	}
	if err := validateAIColors(aiColors); err != nil {
		return nil, err
	}

	existing, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("check live slot: %w", err)
	}
	if existing != nil {
		return nil, ErrMatchInProgress
	}

	am := &game.ActiveMatch{
		MapID:     mapID,
		StartedAt: s.now().UTC(),
		Events:    []game.LiveEvent{},
		AIColors:  aiColors,
		Status:    game.LiveActive,
	}
	if err := s.store.CreateActiveMatch(ctx, am); err != nil {
		return nil, err
	}

	logging.Logger().Infof("live match started on map %s with %d AIs", mapID, len(aiColors))
	return am, nil
}

// LogEvent appends an event to the match in progress, stamping it with the
// wall clock and the elapsed match time. Logging is allowed while paused;
// pause only stops the display timer. A duplicate elimination of an already
// eliminated AI is rejected without touching state.
func (s *Session) LogEvent(ctx context.Context, e game.LiveEvent) error {
	am, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return fmt.Errorf("check live slot: %w", err)
	}
	if am == nil {
		return ErrNoActiveMatch
	}

	if err := e.Validate(); err != nil {
		return err
	}
	if e.Kind == game.EventAIEliminated {
		if !contains(am.AIColors, e.AIID) {
			return &game.ValidationError{Field: "aiId", Reason: fmt.Sprintf("AI %q is not part of this match", e.AIID)}
		}
		if am.AIEliminated(e.AIID) {
			return &game.ValidationError{Field: "aiId", Reason: fmt.Sprintf("AI %q is already eliminated", e.AIID)}
		}
	}

	now := s.now()
	e.Timestamp = now.UnixMilli()
	e.MatchTime = am.Elapsed(now)

	am.Events = append(am.Events, e)
	return s.store.UpdateActiveMatch(ctx, am)
}

// Pause stops the match timer. A no-op when already paused.
func (s *Session) Pause(ctx context.Context) error {
	am, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return fmt.Errorf("check live slot: %w", err)
	}
	if am == nil {
		return ErrNoActiveMatch
	}
	if am.Status == game.LivePaused {
		return nil
	}

	pausedAt := s.now().UTC()
	am.PausedAt = &pausedAt
	am.Status = game.LivePaused
	return s.store.UpdateActiveMatch(ctx, am)
}

// Resume restarts the match timer, folding the pause interval into the
// accumulated paused duration. A no-op when not paused.
func (s *Session) Resume(ctx context.Context) error {
	am, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return fmt.Errorf("check live slot: %w", err)
	}
	if am == nil {
		return ErrNoActiveMatch
	}
	if am.Status != game.LivePaused {
		return nil
	}

	if am.PausedAt != nil {
		am.PausedDuration += s.now().Sub(*am.PausedAt).Milliseconds()
		am.PausedAt = nil
	}
	am.Status = game.LiveActive
	return s.store.UpdateActiveMatch(ctx, am)
}

// End converts the match in progress into a finalized match record and clears
// the slot. The match is created first; if that fails the slot stays intact.
//
// Per-player counters derive from the event log: eliminations are counted per
// ai_eliminated event, and a player who suffered any ai_attack gets exactly
// one AI death no matter how many attacks were logged.
func (s *Session) End(ctx context.Context, elapsedSeconds int, winnerID *game.PlayerID, result game.Result, mapName string) (*game.Match, error) {
	am, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("check live slot: %w", err)
	}
	if am == nil {
		return nil, ErrNoActiveMatch
	}
	if elapsedSeconds < 0 {
		return nil, &game.ValidationError{Field: "elapsedSeconds", Reason: "must be non-negative"}
	}
	if result == game.ResultDraw {
		winnerID = nil
	}

	duration := int(math.Round(float64(elapsedSeconds) / 60))
	m := &game.Match{
		Date:     s.now().UTC(),
		MapID:    am.MapID,
		MapName:  mapName,
		Duration: &duration,
		Result:   result,
		WinnerID: winnerID,
		Players: [2]game.PlayerMatchEntry{
			entryFromEvents(am.Events, game.Player1),
			entryFromEvents(am.Events, game.Player2),
		},
		Events:   am.Events,
		IsLive:   true,
		AIColors: am.AIColors,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.FinalizeActiveMatch(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("finalize live match: %w", err)
	}
	m.ID = id

	logging.Logger().Infof("live match ended after %ds: result=%s map=%s", elapsedSeconds, result, am.MapID)
	return m, nil
}

// Cancel discards the match in progress. No match record is produced and the
// event log is lost; confirming intent is the caller's responsibility.
func (s *Session) Cancel(ctx context.Context) error {
	am, err := s.store.ActiveMatch(ctx)
	if err != nil {
		return fmt.Errorf("check live slot: %w", err)
	}
	if am == nil {
		return ErrNoActiveMatch
	}

	if err := s.store.ClearActiveMatch(ctx); err != nil {
		return err
	}
	logging.Logger().Infof("live match on map %s cancelled with %d events", am.MapID, len(am.Events))
	return nil
}

func entryFromEvents(events []game.LiveEvent, p game.PlayerID) game.PlayerMatchEntry {
	entry := game.PlayerMatchEntry{PlayerID: p}
	attacked := false
	for _, e := range events {
		if e.PlayerID != p {
			continue
		}
		switch e.Kind {
		case game.EventAIEliminated:
			entry.AIEliminations++
		case game.EventAIAttack:
			attacked = true
		}
	}
	if attacked {
		entry.AIDeaths = 1
	}
	return entry
}

func validateAIColors(colors []string) error {
	if len(colors) == 0 {
		return &game.ValidationError{Field: "aiColors", Reason: "at least one AI is required"}
	}
	if len(colors) > game.MaxAIsPerMatch {
		return &game.ValidationError{Field: "aiColors", Reason: fmt.Sprintf("at most %d AIs per match", game.MaxAIsPerMatch)}
	}
	seen := make(map[string]bool, len(colors))
	for _, c := range colors {
		if !game.KnownAI(c) {
			return &game.ValidationError{Field: "aiColors", Reason: fmt.Sprintf("unknown AI %q", c)}
		}
		if seen[c] {
			return &game.ValidationError{Field: "aiColors", Reason: fmt.Sprintf("duplicate AI %q", c)}
		}
		seen[c] = true
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
