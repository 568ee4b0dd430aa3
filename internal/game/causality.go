package game

// ValidAIKills counts the score-earning AI eliminations for p in one match.
//
// A kill logged after p's opponent was already taken out by an AI reflects a
// late or confused log entry and does not count. The cutoff is the earliest
// ai_attack event against the opponent, by wall-clock timestamp: every
// ai_eliminated event by p strictly before it is valid; if the opponent was
// never attacked, all of p's eliminations are valid.
//
// The cutoff is deliberately a single global boundary, not a per-kill pairing
// against individual AI deaths. Kills logged just before the opponent's death
// still count even when causally unrelated; the rule is kept as-is.
//
// Matches without an event log (manual entries) have no ordering to apply, so
// the declared elimination count is trusted at face value.
func ValidAIKills(m *Match, p PlayerID) int {
	if len(m.Events) == 0 {
		if entry := m.Entry(p); entry != nil {
			return entry.AIEliminations
		}
		return 0
	}

	cutoff := firstAIAttack(m.Events, p.Opponent())

	count := 0
	for _, e := range m.Events {
		if e.Kind != EventAIEliminated || e.PlayerID != p {
			continue
		}
		if cutoff == nil || e.Timestamp < *cutoff {
			count++
		}
	}
	return count
}

// firstAIAttack returns the earliest ai_attack timestamp against p, or nil if
// p was never attacked. Events may arrive from concurrent submitters, so the
// minimum timestamp decides, not slice position.
func firstAIAttack(events []LiveEvent, p PlayerID) *int64 {
	var earliest *int64
	for _, e := range events {
		if e.Kind != EventAIAttack || e.PlayerID != p {
			continue
		}
		if earliest == nil || e.Timestamp < *earliest {
			ts := e.Timestamp
			earliest = &ts
		}
	}
	return earliest
}
