package game

import (
	"encoding/json"
	"time"
)

type State string

const (
	StateLobby    State = "lobby"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// ContentPhase selects which question list a round is served from. All real
// rounds are played before any generated round, never interleaved.
type ContentPhase int

const (
	PhaseReal      ContentPhase = 1
	PhaseGenerated ContentPhase = 2
)

func (p ContentPhase) String() string {
	if p == PhaseGenerated {
		return "generated"
	}
	return "real"
}

func (p ContentPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Player is a scoring participant. ConnID is the ephemeral transport handle
// and is replaced wholesale on reconnect; Token is the durable identity that
// survives the replacement, together with the accumulated score.
type Player struct {
	ConnID    string
	Name      string
	Score     int
	Token     string
	JoinOrder int
}

// Answer records one player's guess for the current round. Created on submit
// or synthesized with a nil Value when the deadline elapses; never mutated.
type Answer struct {
	ConnID      string
	Value       *string
	SubmittedAt time.Time
}

// Emitter is the outbound half of the event channel. Implementations must not
// call back into the session or registry; emissions happen under the session
// lock.
type Emitter interface {
	ToRoom(room, event string, payload any)
	ToConn(connID, event string, payload any)
}

type HostRoundView struct {
	RoundNumber int          `json:"round_number"`
	TotalRounds int          `json:"total_rounds"`
	Prompt      string       `json:"message"`
	Options     []string     `json:"options"`
	Phase       ContentPhase `json:"phase"`
	PlayerCount int          `json:"player_count"`
}

type PlayerRoundView struct {
	RoundNumber int          `json:"round_number"`
	TotalRounds int          `json:"total_rounds"`
	Options     []string     `json:"options"`
	Phase       ContentPhase `json:"phase"`
}

type PlayerResult struct {
	PlayerName   string  `json:"player_name"`
	Answer       *string `json:"answer"`
	Correct      bool    `json:"correct"`
	PointsEarned int     `json:"points_earned"`
	TotalScore   int     `json:"total_score"`
	TimeTaken    float64 `json:"time_taken"`
	TimeLeft     float64 `json:"time_left"`
}

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type RoundResults struct {
	CorrectAnswer   string             `json:"correct_answer"`
	Prompt          string             `json:"message"`
	Results         []PlayerResult     `json:"results"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	Distinctiveness *float64           `json:"distinctiveness_score"`
	Similarity      *float64           `json:"bert_similarity"`
	Phase           ContentPhase       `json:"phase"`
}

type FinalResults struct {
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Winner       string             `json:"winner"`
	TotalRounds  int                `json:"total_rounds"`
	Superlatives json.RawMessage    `json:"superlatives,omitempty"`
}
