package game

import (
	"fmt"
	"sort"
	"time"
)

// PlayerID identifies one of the two participants. The whole scoring model is
// two-party: every opponent lookup, streak and head-to-head computation
// assumes exactly Player1 and Player2 exist. Do not generalize.
type PlayerID string

// The two canonical player ids. Created once, never deleted.
const (
	Player1 PlayerID = "player1"
	Player2 PlayerID = "player2"
)

// Valid reports whether p is one of the two canonical ids.
func (p PlayerID) Valid() bool {
	return p == Player1 || p == Player2
}

// Opponent returns the other canonical player id.
func (p PlayerID) Opponent() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Player is one of the two tracked participants. Name and color are the only
// mutable fields.
type Player struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"` // display color, opaque to scoring
}

// DefaultPlayers seeds the players collection on first run.
var DefaultPlayers = []Player{
	{ID: Player1, Name: "Spiller 1", Color: "#1E90FF"},
	{ID: Player2, Name: "Spiller 2", Color: "#DC143C"},
}

// Result is the outcome of a finalized match.
type Result string

// Match outcomes. A loss is implied by the winner being the other player.
const (
	ResultWin  Result = "win"
	ResultDraw Result = "draw"
)

// EventKind classifies live match events.
type EventKind string

// Event kinds loggable during a live match.
const (
	EventAIEliminated EventKind = "ai_eliminated"
	EventAIAttack     EventKind = "ai_attack"
	EventGoldFound    EventKind = "gold_found"
	EventCoalFound    EventKind = "coal_found"
	EventIronFound    EventKind = "iron_found"
	EventExpansion    EventKind = "expansion"
	EventMajorBattle  EventKind = "major_battle"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventAIEliminated, EventAIAttack, EventGoldFound, EventCoalFound,
		EventIronFound, EventExpansion, EventMajorBattle:
		return true
	}
	return false
}

// KnownAIs lists the AI faction ids, by color, that can appear in a match.
var KnownAIs = []string{"green", "yellow", "red", "purple", "cyan", "orange"}

// MaxAIsPerMatch caps how many AI factions a live match may include.
const MaxAIsPerMatch = 4

// KnownAI reports whether id names one of the known AI factions.
func KnownAI(id string) bool {
	for _, ai := range KnownAIs {
		if ai == id {
			return true
		}
	}
	return false
}

// LiveEvent is one timestamped entry in a live match's log. AIID is set only
// for ai_eliminated events. Timestamp is wall-clock epoch milliseconds and is
// what ordering decisions use; MatchTime is elapsed in-match seconds kept for
// display only.
type LiveEvent struct {
	Kind      EventKind `json:"type"`
	PlayerID  PlayerID  `json:"playerId"`
	AIID      string    `json:"aiId,omitempty"`
	Timestamp int64     `json:"timestamp"`
	MatchTime int       `json:"matchTime"`
}

// Validate checks the per-kind field rules.
func (e LiveEvent) Validate() error {
	if !e.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event kind %q", e.Kind)}
	}
	if !e.PlayerID.Valid() {
		return &ValidationError{Field: "playerId", Reason: fmt.Sprintf("unknown player %q", e.PlayerID)}
	}
	if e.Kind == EventAIEliminated {
		if !KnownAI(e.AIID) {
			return &ValidationError{Field: "aiId", Reason: fmt.Sprintf("unknown AI %q", e.AIID)}
		}
	} else if e.AIID != "" {
		return &ValidationError{Field: "aiId", Reason: "only ai_eliminated events carry an aiId"}
	}
	return nil
}

// PlayerMatchEntry holds one player's per-match counters. AIDeaths is capped
// at 1 per match by construction: a player can be taken out by an AI at most
// once per match for scoring purposes.
type PlayerMatchEntry struct {
	PlayerID       PlayerID `json:"playerId"`
	AIEliminations int      `json:"aiEliminations"`
	AIDeaths       int      `json:"aiDeaths"`
}

// Match is the finalized, immutable-once-created record of one game.
type Match struct {
	ID       string              `json:"id"`
	Date     time.Time           `json:"date"`
	MapID    string              `json:"mapId"`
	MapName  string              `json:"mapName"`
	Duration *int                `json:"duration"` // whole minutes, nil when unknown
	Result   Result              `json:"result"`
	WinnerID *PlayerID           `json:"winnerId"` // nil iff Result is draw
	Players  [2]PlayerMatchEntry `json:"players"`
	Events   []LiveEvent         `json:"events"` // empty for manually entered matches
	Notes    string              `json:"notes"`
	IsLive   bool                `json:"isLiveMatch"`
	AIColors []string            `json:"aiColors,omitempty"`
}

// Entry returns the match entry for p, or nil if p did not take part.
func (m *Match) Entry(p PlayerID) *PlayerMatchEntry {
	for i := range m.Players {
		if m.Players[i].PlayerID == p {
			return &m.Players[i]
		}
	}
	return nil
}

// Validate checks the structural invariants of a match record before it is
// handed to the store.
func (m *Match) Validate() error {
	if m.MapID == "" {
		return &ValidationError{Field: "mapId", Reason: "a map is required"}
	}
	switch m.Result {
	case ResultWin:
		if m.WinnerID == nil {
			return &ValidationError{Field: "winnerId", Reason: "a winner is required when result is win"}
		}
		if !m.WinnerID.Valid() {
			return &ValidationError{Field: "winnerId", Reason: fmt.Sprintf("unknown player %q", *m.WinnerID)}
		}
	case ResultDraw:
		if m.WinnerID != nil {
			return &ValidationError{Field: "winnerId", Reason: "a draw has no winner"}
		}
	default:
		return &ValidationError{Field: "result", Reason: fmt.Sprintf("unknown result %q", m.Result)}
	}
	if m.Entry(Player1) == nil || m.Entry(Player2) == nil {
		return &ValidationError{Field: "players", Reason: "both canonical players must have an entry"}
	}
	for _, entry := range m.Players {
		if entry.AIEliminations < 0 {
			return &ValidationError{Field: "aiEliminations", Reason: "must be non-negative"}
		}
		if entry.AIDeaths < 0 || entry.AIDeaths > 1 {
			return &ValidationError{Field: "aiDeaths", Reason: "must be 0 or 1"}
		}
	}
	if m.Duration != nil && *m.Duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must be non-negative"}
	}
	for _, e := range m.Events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LiveStatus is the display state of an active match.
type LiveStatus string

// Live match states. Pause is a timer concern, not a hard lock: events may
// still be logged while paused.
const (
	LiveActive LiveStatus = "active"
	LivePaused LiveStatus = "paused"
)

// ActiveMatch is the working state of the single in-progress match. At most
// one exists system-wide; the store's single-slot contract enforces it.
type ActiveMatch struct {
	MapID          string      `json:"mapId"`
	StartedAt      time.Time   `json:"startedAt"`
	Events         []LiveEvent `json:"events"`
	AIColors       []string    `json:"aiColors"`
	PausedDuration int64       `json:"pausedDuration"` // ms accumulated across pause cycles
	PausedAt       *time.Time  `json:"pausedAt,omitempty"`
	Status         LiveStatus  `json:"status"`
}

// Elapsed returns whole in-match seconds at now, excluding time spent paused.
func (a *ActiveMatch) Elapsed(now time.Time) int {
	paused := a.PausedDuration
	if a.PausedAt != nil {
		paused += now.Sub(*a.PausedAt).Milliseconds()
	}
	ms := now.Sub(a.StartedAt).Milliseconds() - paused
	if ms < 0 {
		return 0
	}
	return int(ms / 1000)
}

// AIEliminated reports whether aiID has already been eliminated in this match.
// An AI can be eliminated by at most one player, once.
func (a *ActiveMatch) AIEliminated(aiID string) bool {
	for _, e := range a.Events {
		if e.Kind == EventAIEliminated && e.AIID == aiID {
			return true
		}
	}
	return false
}

// Timeline returns the event log sorted by wall-clock timestamp as a copy.
// Events from concurrent submitters may land out of order in the stored
// slice, so readers get the timestamp order, never the insertion order.
func (a *ActiveMatch) Timeline() []LiveEvent {
	timeline := make([]LiveEvent, len(a.Events))
	copy(timeline, a.Events)
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	})
	return timeline
}

// MapInfo is a catalog entry for a playable map. Opaque to scoring.
type MapInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultMaps seeds the map catalog on first run.
var DefaultMaps = []MapInfo{
	{Name: "Tutorial Island", Category: "Standard"},
	{Name: "Green Valley", Category: "Standard"},
	{Name: "River Delta", Category: "Standard"},
	{Name: "Mountain Pass", Category: "Standard"},
	{Name: "Desert Oasis", Category: "Standard"},
	{Name: "Frozen North", Category: "Standard"},
	{Name: "Volcanic Isle", Category: "Standard"},
	{Name: "Archipelago", Category: "Standard"},
}

// ValidationError marks malformed input to a core operation. Rejected before
// any store call, never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
