package game

import (
	"testing"
	"time"
)

func datedWin(w PlayerID, daysAgo int) Match {
	m := simpleMatch(ResultWin, winner(w), PlayerMatchEntry{}, PlayerMatchEntry{})
	m.Date = time.Now().AddDate(0, 0, -daysAgo)
	return m
}

func datedDraw(daysAgo int) Match {
	m := simpleMatch(ResultDraw, nil, PlayerMatchEntry{}, PlayerMatchEntry{})
	m.Date = time.Now().AddDate(0, 0, -daysAgo)
	return m
}

func TestCompareStandings(t *testing.T) {
	tests := []struct {
		name       string
		p1Points   float64
		p2Points   float64
		wantLeader PlayerID
		wantTied   bool
		wantDiff   float64
	}{
		{"player1 ahead", 40, 38.5, Player1, false, 1.5},
		{"player2 ahead", 37, 39, Player2, false, 2},
		{"tied", 37.5, 37.5, "", true, 0},
		{"tied at zero", 0, 0, "", true, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p1 := PlayerStats{PlayerID: Player1, Points: tc.p1Points}
			p2 := PlayerStats{PlayerID: Player2, Points: tc.p2Points}
			leader, tied, diff := CompareStandings(p1, p2)
			if leader != tc.wantLeader || tied != tc.wantTied || diff != tc.wantDiff {
				t.Errorf("CompareStandings = (%q, %v, %v), want (%q, %v, %v)",
					leader, tied, diff, tc.wantLeader, tc.wantTied, tc.wantDiff)
			}
			if diff < 0 {
				t.Errorf("PointDiff %v must be non-negative", diff)
			}
		})
	}
}

func TestWinStreak(t *testing.T) {
	tests := []struct {
		name    string
		matches []Match
		player  PlayerID
		want    int
	}{
		{"empty history", nil, Player1, 0},
		{
			name:    "three straight wins",
			matches: []Match{datedWin(Player1, 0), datedWin(Player1, 1), datedWin(Player1, 2)},
			player:  Player1,
			want:    3,
		},
		{
			name:    "loss ends the streak",
			matches: []Match{datedWin(Player1, 0), datedWin(Player2, 1), datedWin(Player1, 2)},
			player:  Player1,
			want:    1,
		},
		{
			name:    "draw ends the streak",
			matches: []Match{datedWin(Player1, 0), datedDraw(1), datedWin(Player1, 2)},
			player:  Player1,
			want:    1,
		},
		{
			name:    "most recent match is a loss",
			matches: []Match{datedWin(Player2, 0), datedWin(Player1, 1), datedWin(Player1, 2)},
			player:  Player1,
			want:    0,
		},
		{
			name:    "order of the input slice does not matter",
			matches: []Match{datedWin(Player1, 2), datedWin(Player1, 0), datedWin(Player2, 1)},
			player:  Player1,
			want:    1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := WinStreak(tc.matches, tc.player); got != tc.want {
				t.Errorf("WinStreak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBuildHeadToHead(t *testing.T) {
	matches := []Match{
		datedWin(Player1, 0),
		datedWin(Player1, 1),
		datedWin(Player2, 2),
		datedDraw(3),
	}
	offsets := Offsets{Player1: 37.5, Player2: 37}

	h := BuildHeadToHead(matches, offsets)

	if h.TotalMatches != 4 {
		t.Errorf("TotalMatches = %d, want 4", h.TotalMatches)
	}
	// p1: 37.5 + 2 wins + 0.5 draw = 40; p2: 37 + 1 win + 0.5 draw = 38.5.
	if h.Player1.Points != 40 || h.Player2.Points != 38.5 {
		t.Errorf("points = %v/%v, want 40/38.5", h.Player1.Points, h.Player2.Points)
	}
	if h.Leader != Player1 || h.IsTied {
		t.Errorf("leader = %q tied=%v, want player1 leading", h.Leader, h.IsTied)
	}
	if h.PointDiff != 1.5 {
		t.Errorf("PointDiff = %v, want 1.5", h.PointDiff)
	}
	if h.Player1Streak != 2 || h.Player2Streak != 0 {
		t.Errorf("streaks = %d/%d, want 2/0", h.Player1Streak, h.Player2Streak)
	}
}

func TestBuildHeadToHeadTie(t *testing.T) {
	h := BuildHeadToHead(nil, Offsets{Player1: 10, Player2: 10})
	if !h.IsTied || h.Leader != "" || h.PointDiff != 0 {
		t.Errorf("equal offsets must tie, got leader=%q tied=%v diff=%v", h.Leader, h.IsTied, h.PointDiff)
	}
}
