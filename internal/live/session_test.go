package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/game"
)

// fakeStore is an in-memory single-slot store for session tests.
type fakeStore struct {
	slot        *game.ActiveMatch
	finalized   []*game.Match
	finalizeErr error
	updateErr   error
}

func (f *fakeStore) ActiveMatch(ctx context.Context) (*game.ActiveMatch, error) {
	if f.slot == nil {
		return nil, nil
	}
	cp := *f.slot
	return &cp, nil
}

func (f *fakeStore) CreateActiveMatch(ctx context.Context, am *game.ActiveMatch) error {
	if f.slot != nil {
		return ErrMatchInProgress
	}
	cp := *am
	f.slot = &cp
	return nil
}

func (f *fakeStore) UpdateActiveMatch(ctx context.Context, am *game.ActiveMatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.slot == nil {
		return ErrNoActiveMatch
	}
	cp := *am
	f.slot = &cp
	return nil
}

func (f *fakeStore) FinalizeActiveMatch(ctx context.Context, m *game.Match) (string, error) {
	if f.finalizeErr != nil {
		return "", f.finalizeErr
	}
	f.finalized = append(f.finalized, m)
	f.slot = nil
	return "match-1", nil
}

func (f *fakeStore) ClearActiveMatch(ctx context.Context) error {
	f.slot = nil
	return nil
}

func newTestSession(store *fakeStore, at time.Time) *Session {
	s := NewSession(store)
	s.now = func() time.Time { return at }
	return s
}

func TestStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		mapID    string
		aiColors []string
		wantErr  bool
	}{
		{"valid", "map-1", []string{"green", "red"}, false},
		{"single ai", "map-1", []string{"green"}, false},
		{"four ais", "map-1", []string{"green", "red", "yellow", "purple"}, false},
		{"missing map", "", []string{"green"}, true},
		{"no ais", "map-1", nil, true},
		{"five ais", "map-1", []string{"green", "red", "yellow", "purple", "cyan"}, true},
		{"unknown ai", "map-1", []string{"pink"}, true},
		{"duplicate ai", "map-1", []string{"green", "green"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			s := newTestSession(store, start)

			am, err := s.Start(context.Background(), tc.mapID, tc.aiColors)
			if tc.wantErr {
				var verr *game.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Start = %v, want validation error", err)
				}
				if store.slot != nil {
					t.Error("failed Start must not fill the slot")
				}
				return
			}
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			if am.Status != game.LiveActive {
				t.Errorf("Status = %q, want active", am.Status)
			}
			if !am.StartedAt.Equal(start) {
				t.Errorf("StartedAt = %v, want %v", am.StartedAt, start)
			}
			if len(am.Events) != 0 {
				t.Errorf("new match has %d events, want 0", len(am.Events))
			}
		})
	}
}

func TestStartWhileInProgress(t *testing.T) {
	store := &fakeStore{slot: &game.ActiveMatch{MapID: "map-1", Status: game.LiveActive}}
	s := newTestSession(store, time.Now())

	_, err := s.Start(context.Background(), "map-2", []string{"green"})
	if !errors.Is(err, ErrMatchInProgress) {
		t.Errorf("Start = %v, want ErrMatchInProgress", err)
	}
	if store.slot.MapID != "map-1" {
		t.Error("existing match must be untouched")
	}
}

func TestLogEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logTime := start.Add(95 * time.Second)

	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: start,
		AIColors:  []string{"green", "red"},
		Status:    game.LiveActive,
	}}
	s := newTestSession(store, logTime)

	err := s.LogEvent(context.Background(), game.LiveEvent{
		Kind:     game.EventAIEliminated,
		PlayerID: game.Player1,
		AIID:     "green",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	if len(store.slot.Events) != 1 {
		t.Fatalf("slot has %d events, want 1", len(store.slot.Events))
	}
	e := store.slot.Events[0]
	if e.Timestamp != logTime.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", e.Timestamp, logTime.UnixMilli())
	}
	if e.MatchTime != 95 {
		t.Errorf("MatchTime = %d, want 95", e.MatchTime)
	}
}

func TestLogEventRejections(t *testing.T) {
	slot := func() *game.ActiveMatch {
		return &game.ActiveMatch{
			MapID:     "map-1",
			StartedAt: time.Now(),
			AIColors:  []string{"green"},
			Events: []game.LiveEvent{
				{Kind: game.EventAIEliminated, PlayerID: game.Player1, AIID: "green", Timestamp: 1},
			},
			Status: game.LiveActive,
		}
	}

	tests := []struct {
		name  string
		event game.LiveEvent
	}{
		{"duplicate elimination", game.LiveEvent{Kind: game.EventAIEliminated, PlayerID: game.Player2, AIID: "green"}},
		{"ai not in this match", game.LiveEvent{Kind: game.EventAIEliminated, PlayerID: game.Player1, AIID: "red"}},
		{"unknown kind", game.LiveEvent{Kind: "teleport", PlayerID: game.Player1}},
		{"unknown player", game.LiveEvent{Kind: game.EventGoldFound, PlayerID: "player3"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{slot: slot()}
			s := newTestSession(store, time.Now())

			err := s.LogEvent(context.Background(), tc.event)
			var verr *game.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("LogEvent = %v, want validation error", err)
			}
			if len(store.slot.Events) != 1 {
				t.Error("rejected event must not change the log")
			}
		})
	}
}

func TestLogEventNoMatch(t *testing.T) {
	s := newTestSession(&fakeStore{}, time.Now())
	err := s.LogEvent(context.Background(), game.LiveEvent{Kind: game.EventGoldFound, PlayerID: game.Player1})
	if !errors.Is(err, ErrNoActiveMatch) {
		t.Errorf("LogEvent = %v, want ErrNoActiveMatch", err)
	}
}

func TestLogEventAllowedWhilePaused(t *testing.T) {
	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: time.Now().Add(-time.Minute),
		AIColors:  []string{"green"},
		Status:    game.LivePaused,
	}}
	s := newTestSession(store, time.Now())

	if err := s.LogEvent(context.Background(), game.LiveEvent{Kind: game.EventGoldFound, PlayerID: game.Player1}); err != nil {
		t.Errorf("LogEvent while paused failed: %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: start,
		AIColors:  []string{"green"},
		Status:    game.LiveActive,
	}}

	pauseAt := start.Add(60 * time.Second)
	s := newTestSession(store, pauseAt)
	if err := s.Pause(context.Background()); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if store.slot.Status != game.LivePaused || store.slot.PausedAt == nil {
		t.Fatalf("slot after pause: %+v", store.slot)
	}

	// Pausing again is a no-op.
	if err := s.Pause(context.Background()); err != nil {
		t.Fatalf("second Pause failed: %v", err)
	}

	resumeAt := pauseAt.Add(30 * time.Second)
	s.now = func() time.Time { return resumeAt }
	if err := s.Resume(context.Background()); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if store.slot.Status != game.LiveActive || store.slot.PausedAt != nil {
		t.Fatalf("slot after resume: %+v", store.slot)
	}
	if store.slot.PausedDuration != 30_000 {
		t.Errorf("PausedDuration = %d, want 30000", store.slot.PausedDuration)
	}

	// 120s wall clock minus 30s paused.
	checkAt := start.Add(120 * time.Second)
	if got := store.slot.Elapsed(checkAt); got != 90 {
		t.Errorf("Elapsed = %d, want 90", got)
	}

	// Resuming while active is a no-op.
	if err := s.Resume(context.Background()); err != nil {
		t.Fatalf("second Resume failed: %v", err)
	}
	if store.slot.PausedDuration != 30_000 {
		t.Errorf("PausedDuration changed on no-op resume: %d", store.slot.PausedDuration)
	}
}

func TestPauseNoMatch(t *testing.T) {
	s := newTestSession(&fakeStore{}, time.Now())
	if err := s.Pause(context.Background()); !errors.Is(err, ErrNoActiveMatch) {
		t.Errorf("Pause = %v, want ErrNoActiveMatch", err)
	}
	if err := s.Resume(context.Background()); !errors.Is(err, ErrNoActiveMatch) {
		t.Errorf("Resume = %v, want ErrNoActiveMatch", err)
	}
}

func TestEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: start,
		AIColors:  []string{"green", "red"},
		Events: []game.LiveEvent{
			{Kind: game.EventAIEliminated, PlayerID: game.Player1, AIID: "green", Timestamp: 100},
			{Kind: game.EventAIEliminated, PlayerID: game.Player1, AIID: "red", Timestamp: 200},
			{Kind: game.EventAIAttack, PlayerID: game.Player2, Timestamp: 300},
			{Kind: game.EventAIAttack, PlayerID: game.Player2, Timestamp: 400},
		},
		Status: game.LiveActive,
	}}
	s := newTestSession(store, start.Add(40*time.Minute))

	w := game.Player1
	m, err := s.End(context.Background(), 2400, &w, game.ResultWin, "Green Valley")
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if m.ID != "match-1" {
		t.Errorf("ID = %q, want store-assigned id", m.ID)
	}
	if !m.IsLive {
		t.Error("converted match must be flagged live")
	}
	if m.MapName != "Green Valley" {
		t.Errorf("MapName = %q", m.MapName)
	}
	if m.Duration == nil || *m.Duration != 40 {
		t.Errorf("Duration = %v, want 40", m.Duration)
	}

	p1 := m.Entry(game.Player1)
	if p1.AIEliminations != 2 || p1.AIDeaths != 0 {
		t.Errorf("player1 entry = %+v, want 2 eliminations, 0 deaths", p1)
	}
	p2 := m.Entry(game.Player2)
	if p2.AIEliminations != 0 || p2.AIDeaths != 1 {
		t.Errorf("player2 entry = %+v, want repeated attacks capped at 1 death", p2)
	}

	if store.slot != nil {
		t.Error("slot must be empty after End")
	}
	if len(store.finalized) != 1 {
		t.Errorf("finalized %d matches, want 1", len(store.finalized))
	}
}

func TestEndDurationRounding(t *testing.T) {
	tests := []struct {
		seconds int
		want    int
	}{
		{0, 0},
		{29, 0},
		{30, 1},
		{89, 1},
		{90, 2},
		{2400, 40},
	}

	for _, tc := range tests {
		store := &fakeStore{slot: &game.ActiveMatch{
			MapID:     "map-1",
			StartedAt: time.Now(),
			AIColors:  []string{"green"},
			Status:    game.LiveActive,
		}}
		s := newTestSession(store, time.Now())

		w := game.Player1
		m, err := s.End(context.Background(), tc.seconds, &w, game.ResultWin, "")
		if err != nil {
			t.Fatalf("End(%d) failed: %v", tc.seconds, err)
		}
		if *m.Duration != tc.want {
			t.Errorf("End(%d): Duration = %d, want %d", tc.seconds, *m.Duration, tc.want)
		}
	}
}

func TestEndDrawDropsWinner(t *testing.T) {
	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: time.Now(),
		AIColors:  []string{"green"},
		Status:    game.LiveActive,
	}}
	s := newTestSession(store, time.Now())

	w := game.Player1
	m, err := s.End(context.Background(), 600, &w, game.ResultDraw, "")
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if m.Result != game.ResultDraw || m.WinnerID != nil {
		t.Errorf("draw result kept a winner: %+v", m)
	}
}

func TestEndFailureKeepsSlot(t *testing.T) {
	store := &fakeStore{
		slot: &game.ActiveMatch{
			MapID:     "map-1",
			StartedAt: time.Now(),
			AIColors:  []string{"green"},
			Status:    game.LiveActive,
		},
		finalizeErr: errors.New("db down"),
	}
	s := newTestSession(store, time.Now())

	w := game.Player1
	if _, err := s.End(context.Background(), 600, &w, game.ResultWin, ""); err == nil {
		t.Fatal("End should fail when finalize fails")
	}
	if store.slot == nil {
		t.Error("slot must survive a failed End")
	}
}

func TestEndNoMatch(t *testing.T) {
	s := newTestSession(&fakeStore{}, time.Now())
	w := game.Player1
	if _, err := s.End(context.Background(), 600, &w, game.ResultWin, ""); !errors.Is(err, ErrNoActiveMatch) {
		t.Errorf("End = %v, want ErrNoActiveMatch", err)
	}
}

func TestCancel(t *testing.T) {
	store := &fakeStore{slot: &game.ActiveMatch{
		MapID:     "map-1",
		StartedAt: time.Now(),
		AIColors:  []string{"green"},
		Events:    []game.LiveEvent{{Kind: game.EventGoldFound, PlayerID: game.Player1}},
		Status:    game.LiveActive,
	}}
	s := newTestSession(store, time.Now())

	if err := s.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if store.slot != nil {
		t.Error("slot must be empty after Cancel")
	}
	if len(store.finalized) != 0 {
		t.Error("Cancel must not produce a match record")
	}

	if err := s.Cancel(context.Background()); !errors.Is(err, ErrNoActiveMatch) {
		t.Errorf("second Cancel = %v, want ErrNoActiveMatch", err)
	}
}
