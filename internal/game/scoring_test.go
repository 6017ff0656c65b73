package game

import (
	"testing"
	"time"

	"github.com/talktagger/server/internal/content"
)

func TestSpeedBonusTiers(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      int
	}{
		{13 * time.Second, 5},
		{9 * time.Second, 3},
		{5 * time.Second, 1},
		{2 * time.Second, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := SpeedBonus(c.remaining); got != c.want {
			t.Fatalf("SpeedBonus(%v) = %d, want %d", c.remaining, got, c.want)
		}
	}
}

func TestScoreRealPhase(t *testing.T) {
	q := content.Question{CorrectAuthor: "alice"}

	if got := Score(strptr("alice"), q, 13*time.Second, PhaseReal); got != 15 {
		t.Fatalf("correct fast answer should score 15, got %d", got)
	}
	if got := Score(strptr("alice"), q, 2*time.Second, PhaseReal); got != 10 {
		t.Fatalf("correct slow answer should score base 10, got %d", got)
	}
	if got := Score(strptr("bob"), q, 13*time.Second, PhaseReal); got != 0 {
		t.Fatalf("wrong answer should score 0, got %d", got)
	}
	if got := Score(nil, q, 13*time.Second, PhaseReal); got != 0 {
		t.Fatalf("missing answer should score 0, got %d", got)
	}
}

func TestScoreGeneratedPhaseDoublesBonus(t *testing.T) {
	q := content.Question{CorrectAuthor: "alice"}

	// 20 base + doubled bonus of 5 = 30
	if got := Score(strptr("alice"), q, 13*time.Second, PhaseGenerated); got != 30 {
		t.Fatalf("expected 30 points, got %d", got)
	}
	if got := Score(strptr("alice"), q, 9*time.Second, PhaseGenerated); got != 26 {
		t.Fatalf("expected 26 points, got %d", got)
	}
	// The multiplier applies to the bonus only, base stays 20.
	if got := Score(strptr("alice"), q, time.Second, PhaseGenerated); got != 20 {
		t.Fatalf("expected base 20 points, got %d", got)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	players := []*Player{
		{Name: "carol", Score: 10, JoinOrder: 3},
		{Name: "alice", Score: 30, JoinOrder: 1},
		{Name: "bob", Score: 10, JoinOrder: 2},
	}
	lb := Leaderboard(players)
	if lb[0].Name != "alice" {
		t.Fatalf("expected alice first, got %s", lb[0].Name)
	}
	// Tie between bob and carol resolves by join order.
	if lb[1].Name != "bob" || lb[2].Name != "carol" {
		t.Fatalf("expected tie broken by join order, got %s then %s", lb[1].Name, lb[2].Name)
	}
}
