package game

import (
	"math"
	"sort"
)

// HeadToHead summarizes both players' standings against each other.
type HeadToHead struct {
	Player1       PlayerStats `json:"player1"`
	Player2       PlayerStats `json:"player2"`
	Leader        PlayerID    `json:"leader,omitempty"` // empty when tied
	IsTied        bool        `json:"isTied"`
	PointDiff     float64     `json:"pointDiff"`
	TotalMatches  int         `json:"totalMatches"`
	Player1Streak int         `json:"player1Streak"`
	Player2Streak int         `json:"player2Streak"`
}

// BuildHeadToHead computes the full leaderboard view from the match list.
func BuildHeadToHead(matches []Match, offsets Offsets) HeadToHead {
	h := HeadToHead{
		Player1:       BuildPlayerStats(matches, Player1, offsets),
		Player2:       BuildPlayerStats(matches, Player2, offsets),
		TotalMatches:  len(matches),
		Player1Streak: WinStreak(matches, Player1),
		Player2Streak: WinStreak(matches, Player2),
	}
	h.Leader, h.IsTied, h.PointDiff = CompareStandings(h.Player1, h.Player2)
	return h
}

// CompareStandings ranks two standings by points. The leader is the player
// with strictly greater points; equal points mean no leader. Point totals are
// sums of 0.5-multiples, so exact float equality is the tie test.
func CompareStandings(p1, p2 PlayerStats) (leader PlayerID, tied bool, diff float64) {
	diff = math.Abs(p1.Points - p2.Points)
	switch {
	case p1.Points > p2.Points:
		return p1.PlayerID, false, diff
	case p2.Points > p1.Points:
		return p2.PlayerID, false, diff
	default:
		return "", true, 0
	}
}

// WinStreak counts p's consecutive wins from the most recent match backwards.
// A draw or a loss ends the streak. This is a prefix count over the
// date-descending match list, not a best-streak-ever search.
func WinStreak(matches []Match, p PlayerID) int {
	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.After(ordered[j].Date)
	})

	streak := 0
	for i := range ordered {
		if ordered[i].WinnerID != nil && *ordered[i].WinnerID == p {
			streak++
			continue
		}
		break
	}
	return streak
}
