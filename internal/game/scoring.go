package game

import (
	"sort"
	"time"

	"github.com/talktagger/server/internal/content"
)

const (
	BasePointsReal      = 10
	BasePointsGenerated = 20
)

// SpeedBonus maps time remaining in a 15-second round onto the bonus tiers.
func SpeedBonus(remaining time.Duration) int {
	switch sec := remaining.Seconds(); {
	case sec > 12:
		return 5
	case sec > 8:
		return 3
	case sec > 4:
		return 1
	default:
		return 0
	}
}

// Score is the points awarded for one answer. Missing or wrong answers score
// zero. Generated rounds are double-weighted: base 20 instead of 10, and the
// speed bonus is doubled. The multiplier applies to the bonus only.
func Score(value *string, q content.Question, remaining time.Duration, phase ContentPhase) int {
	if value == nil || *value != q.CorrectAuthor {
		return 0
	}
	bonus := SpeedBonus(remaining)
	if phase == PhaseGenerated {
		return BasePointsGenerated + 2*bonus
	}
	return BasePointsReal + bonus
}

// Leaderboard sorts players by cumulative score descending; ties keep the
// original join order.
func Leaderboard(players []*Player) []LeaderboardEntry {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].JoinOrder < sorted[j].JoinOrder
	})
	out := make([]LeaderboardEntry, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, LeaderboardEntry{Name: p.Name, Score: p.Score})
	}
	return out
}
