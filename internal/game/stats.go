package game

import "math"

// PlayerStats is the derived standing of one player. It is recomputed from
// the full match list on every query and never persisted or cached; at this
// data scale the recomputation is cheap and immune to stale-stat bugs.
type PlayerStats struct {
	PlayerID      PlayerID `json:"playerId"`
	Matches       int      `json:"matches"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	Draws         int      `json:"draws"`
	AIKills       int      `json:"aiKills"` // raw declared count, for display
	AIDeaths      int      `json:"aiDeaths"`
	ValidAIKills  int      `json:"validAiKills"` // score-earning kills per the causality rule
	Points        float64  `json:"points"`
	TotalPlayTime int      `json:"totalPlayTime"` // minutes
	WinRate       float64  `json:"winRate"`       // percent, one decimal
}

// Offsets maps canonical player ids to points earned before the tracker
// existed. The offset is part of the points formula, added on every
// recomputation, not a one-time migration.
type Offsets map[PlayerID]float64

// BuildPlayerStats folds the match list into playerID's standing.
//
// Points: win = 1, draw = 0.5, valid AI kill = 0.5, AI death = -1, plus the
// player's historical offset.
func BuildPlayerStats(matches []Match, playerID PlayerID, offsets Offsets) PlayerStats {
	stats := PlayerStats{PlayerID: playerID}

	for i := range matches {
		m := &matches[i]
		entry := m.Entry(playerID)
		if entry == nil {
			continue
		}
		stats.Matches++

		switch {
		case m.Result == ResultDraw:
			stats.Draws++
		case m.WinnerID != nil && *m.WinnerID == playerID:
			stats.Wins++
		case m.WinnerID != nil:
			stats.Losses++
		}

		stats.AIKills += entry.AIEliminations
		stats.AIDeaths += entry.AIDeaths
		stats.ValidAIKills += ValidAIKills(m, playerID)

		if m.Duration != nil {
			stats.TotalPlayTime += *m.Duration
		}
	}

	stats.Points = offsets[playerID] +
		float64(stats.Wins) +
		0.5*float64(stats.Draws) +
		0.5*float64(stats.ValidAIKills) -
		float64(stats.AIDeaths)

	if stats.Matches > 0 {
		stats.WinRate = math.Round(float64(stats.Wins)/float64(stats.Matches)*1000) / 10
	}

	return stats
}
