package game

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/talktagger/server/internal/content"
)

// Session is one game: lobby -> playing -> finished. All mutation happens
// under mu; timer callbacks and event handlers share the same critical
// section, which is what makes the all-answered/deadline race safe.
type Session struct {
	Code      string
	HostToken string
	CreatedAt time.Time

	mu sync.Mutex

	hostConnID       string
	hostName         string
	hostDisconnected bool
	hostGoneSince    time.Time

	state State
	phase ContentPhase
	idx1  int
	idx2  int

	players  map[string]*Player // connID -> player
	departed map[string]*Player // reconnect token -> player awaiting reconnect
	answers  map[string]*Answer // connID -> answer, recreated every round
	ready    map[string]struct{}

	// resultsShown is the finalize latch: it flips false->true exactly once
	// per round, inside the same critical section used by both the
	// all-answered path and the deadline callback.
	resultsShown  bool
	roundSeq      int
	roundStarted  time.Time
	roundDeadline time.Time

	pool          *content.Pool
	roundDuration time.Duration
	joinSeq       int

	emit       Emitter
	sched      *RoundScheduler
	exportFile string
}

func newSession(code, hostConnID, hostName string, pool *content.Pool, emit Emitter, sched *RoundScheduler, roundDuration time.Duration, exportFile string) *Session {
	phase := PhaseReal
	if len(pool.Real) == 0 {
		phase = PhaseGenerated
	}
	return &Session{
		Code:          code,
		HostToken:     uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		hostConnID:    hostConnID,
		hostName:      hostName,
		state:         StateLobby,
		phase:         phase,
		players:       make(map[string]*Player),
		departed:      make(map[string]*Player),
		answers:       make(map[string]*Answer),
		ready:         make(map[string]struct{}),
		pool:          pool,
		roundDuration: roundDuration,
		emit:          emit,
		sched:         sched,
		exportFile:    exportFile,
	}
}

// Join adds a player during the lobby. Names are case-insensitively unique
// among present players. Returns the durable reconnect token and the updated
// name list.
func (s *Session) Join(connID, name string) (token string, names []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLobby {
		return "", nil, ErrLobbyClosed
	}
	for _, p := range s.players {
		if strings.EqualFold(p.Name, name) {
			return "", nil, ErrNameTaken
		}
	}
	s.joinSeq++
	p := &Player{
		ConnID:    connID,
		Name:      name,
		Token:     uuid.NewString(),
		JoinOrder: s.joinSeq,
	}
	s.players[connID] = p
	return p.Token, s.playerNamesLocked(), nil
}

// Start moves the session into playing and serves round one. Host only, and
// at least one non-host player must be present.
func (s *Session) Start(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connID != s.hostConnID {
		return ErrNotHost
	}
	if s.state != StateLobby {
		return ErrLobbyClosed
	}
	if len(s.players) == 0 {
		return ErrNoPlayers
	}
	s.state = StatePlaying
	s.emit.ToRoom(s.Code, "session_started", map[string]any{
		"total_rounds": s.pool.TotalRounds(),
	})
	log.Info().Str("code", s.Code).Int("players", len(s.players)).Msg("session started")
	s.startRoundLocked()
	return nil
}

// SubmitAnswer records a player's guess for the active round. Answers are
// immutable; a second submit in the same round is rejected. When the last
// present player answers, the round finalizes immediately.
func (s *Session) SubmitAnswer(connID, value string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return ErrNotPlaying
	}
	if _, ok := s.players[connID]; !ok {
		return ErrNotInSession
	}
	if s.resultsShown {
		return ErrRoundOver
	}
	if _, ok := s.answers[connID]; ok {
		return ErrAlreadyAnswered
	}
	v := value
	s.answers[connID] = &Answer{ConnID: connID, Value: &v, SubmittedAt: now}
	if s.allAnsweredLocked() {
		// Best effort; the armed callback re-validates under this lock anyway.
		s.sched.Cancel(s.Code)
		s.finalizeRoundLocked()
	}
	return nil
}

// MarkReady flags a player as ready for the next round. Once every present
// player is ready the host is notified and the next round starts.
func (s *Session) MarkReady(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return ErrNotPlaying
	}
	if _, ok := s.players[connID]; !ok {
		return ErrNotInSession
	}
	s.ready[connID] = struct{}{}
	if s.resultsShown && len(s.ready) >= len(s.players) {
		if !s.hostDisconnected && s.hostConnID != "" {
			s.emit.ToConn(s.hostConnID, "all_players_ready", map[string]any{})
		}
		s.startRoundLocked()
	}
	return nil
}

// AdvanceRound lets the host force the next round without waiting for every
// ready flag. Rejected while the current round is still being answered.
func (s *Session) AdvanceRound(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connID != s.hostConnID {
		return ErrNotHost
	}
	if s.state != StatePlaying {
		return ErrNotPlaying
	}
	if !s.resultsShown {
		return ErrRoundActive
	}
	s.startRoundLocked()
	return nil
}

// CurrentRound returns the view of the active round appropriate for the
// connection: the host sees the prompt, players only see the choices. Read
// only, safe to call repeatedly as a recovery fallback.
func (s *Session) CurrentRound(connID string) (event string, payload any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return "", nil, ErrNotPlaying
	}
	q, num := s.currentQuestionLocked()
	if q == nil {
		return "", nil, ErrNotPlaying
	}
	if connID == s.hostConnID {
		return "host_round", HostRoundView{
			RoundNumber: num,
			TotalRounds: s.pool.TotalRounds(),
			Prompt:      q.Text,
			Options:     q.Choices,
			Phase:       s.phase,
			PlayerCount: len(s.players),
		}, nil
	}
	if _, ok := s.players[connID]; !ok {
		return "", nil, ErrNotInSession
	}
	return "player_round", PlayerRoundView{
		RoundNumber: num,
		TotalRounds: s.pool.TotalRounds(),
		Options:     q.Choices,
		Phase:       s.phase,
	}, nil
}

// RemovePlayer handles a player departure. The record moves to the departed
// set keyed by token so a later reconnect restores the score. Reports whether
// the session is now empty and whether the host is still connected so the
// registry can apply the immediate-destroy rule.
func (s *Session) RemovePlayer(connID string) (name string, empty, hostConnected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[connID]
	if !ok {
		return "", len(s.players) == 0, !s.hostDisconnected
	}
	delete(s.players, connID)
	delete(s.ready, connID)
	p.ConnID = ""
	s.departed[p.Token] = p
	s.emit.ToRoom(s.Code, "player_left", map[string]any{
		"player_name":   p.Name,
		"players_count": len(s.players),
	})
	// The departure may have satisfied the all-answered condition for the
	// remaining players.
	if s.state == StatePlaying && !s.resultsShown && s.allAnsweredLocked() {
		s.sched.Cancel(s.Code)
		s.finalizeRoundLocked()
	}
	return p.Name, len(s.players) == 0, !s.hostDisconnected
}

// HostGone marks the host as disconnected. The round keeps running; players
// answer against the already-armed deadline.
func (s *Session) HostGone(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostDisconnected = true
	s.hostGoneSince = now
	log.Info().Str("code", s.Code).Msg("host disconnected")
}

// ReconnectHost repoints the host identity onto a new connection and returns
// the superseded connection id, if any.
func (s *Session) ReconnectHost(newConnID string) (oldConnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldConnID = s.hostConnID
	s.hostConnID = newConnID
	s.hostDisconnected = false
	log.Info().Str("code", s.Code).Msg("host reconnected")
	return oldConnID
}

// ReconnectPlayer resolves a durable player token onto a new connection. A
// departed player's record is reinstated with its score; a still-connected
// player's record migrates to the new connection id and the old one stops
// being addressable. Unknown tokens are rejected rather than minting a new
// identity.
func (s *Session) ReconnectPlayer(token, newConnID string) (name, oldConnID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.departed[token]; ok {
		delete(s.departed, token)
		p.ConnID = newConnID
		s.players[newConnID] = p
		log.Info().Str("code", s.Code).Str("player", p.Name).Msg("player reconnected")
		return p.Name, "", nil
	}
	for old, p := range s.players {
		if p.Token != token {
			continue
		}
		delete(s.players, old)
		p.ConnID = newConnID
		s.players[newConnID] = p
		if a, ok := s.answers[old]; ok {
			delete(s.answers, old)
			s.answers[newConnID] = a
		}
		if _, ok := s.ready[old]; ok {
			delete(s.ready, old)
			s.ready[newConnID] = struct{}{}
		}
		log.Info().Str("code", s.Code).Str("player", p.Name).Msg("player connection replaced")
		return p.Name, old, nil
	}
	return "", "", ErrTokenExpired
}

// Close cancels the round timer and marks the session finished so any stale
// callback becomes a no-op. Used on destruction, not on normal game end.
func (s *Session) Close() {
	s.sched.Cancel(s.Code)
	s.mu.Lock()
	s.state = StateFinished
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) HostName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostName
}

func (s *Session) PlayerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerNamesLocked()
}

func (s *Session) PlayerScore(connID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[connID]
	if !ok {
		return 0, false
	}
	return p.Score, true
}

// OrphanedLongerThan reports whether the host has been continuously
// disconnected for more than the grace window.
func (s *Session) OrphanedLongerThan(now time.Time, grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostDisconnected && now.Sub(s.hostGoneSince) > grace
}

// expireRound is the deadline callback for round seq. Cancellation is best
// effort, so it revalidates round identity and the finalize latch before
// synthesizing the missing answers.
func (s *Session) expireRound(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying || seq != s.roundSeq || s.resultsShown {
		return
	}
	now := time.Now()
	for connID := range s.players {
		if _, ok := s.answers[connID]; !ok {
			s.answers[connID] = &Answer{ConnID: connID, SubmittedAt: now}
		}
	}
	log.Info().Str("code", s.Code).Int("round", seq).Msg("round deadline elapsed")
	s.finalizeRoundLocked()
}

func (s *Session) startRoundLocked() {
	q, num := s.currentQuestionLocked()
	if q == nil {
		s.finishLocked()
		return
	}
	s.answers = make(map[string]*Answer)
	s.ready = make(map[string]struct{})
	s.resultsShown = false
	s.roundSeq++
	s.roundStarted = time.Now()
	s.roundDeadline = s.roundStarted.Add(s.roundDuration)
	seq := s.roundSeq
	s.sched.Arm(s.Code, s.roundDuration, func() { s.expireRound(seq) })

	total := s.pool.TotalRounds()
	if !s.hostDisconnected && s.hostConnID != "" {
		s.emit.ToConn(s.hostConnID, "host_round", HostRoundView{
			RoundNumber: num,
			TotalRounds: total,
			Prompt:      q.Text,
			Options:     q.Choices,
			Phase:       s.phase,
			PlayerCount: len(s.players),
		})
	}
	view := PlayerRoundView{
		RoundNumber: num,
		TotalRounds: total,
		Options:     q.Choices,
		Phase:       s.phase,
	}
	for connID := range s.players {
		s.emit.ToConn(connID, "player_round", view)
	}
	log.Info().Str("code", s.Code).Int("round", num).Str("phase", s.phase.String()).Msg("round started")
}

// finalizeRoundLocked scores and broadcasts results for the current round,
// then advances the round pointer. Callers must hold the lock and must have
// checked resultsShown; the flag flips here, exactly once per round.
func (s *Session) finalizeRoundLocked() {
	s.resultsShown = true
	q, num := s.currentQuestionLocked()
	if q == nil {
		return
	}
	results := make([]PlayerResult, 0, len(s.players))
	for connID, p := range s.players {
		a := s.answers[connID]
		if a == nil {
			a = &Answer{ConnID: connID, SubmittedAt: s.roundDeadline}
		}
		remaining := s.roundDeadline.Sub(a.SubmittedAt)
		if remaining < 0 {
			remaining = 0
		}
		points := Score(a.Value, *q, remaining, s.phase)
		p.Score += points
		results = append(results, PlayerResult{
			PlayerName:   p.Name,
			Answer:       a.Value,
			Correct:      a.Value != nil && *a.Value == q.CorrectAuthor,
			PointsEarned: points,
			TotalScore:   p.Score,
			TimeTaken:    roundSeconds(a.SubmittedAt.Sub(s.roundStarted)),
			TimeLeft:     roundSeconds(remaining),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].PlayerName < results[j].PlayerName })
	s.emit.ToRoom(s.Code, "round_results", RoundResults{
		CorrectAnswer:   q.CorrectAuthor,
		Prompt:          q.Text,
		Results:         results,
		Leaderboard:     Leaderboard(s.playerListLocked()),
		Distinctiveness: q.Distinctiveness,
		Similarity:      q.Similarity,
		Phase:           s.phase,
	})
	log.Info().Str("code", s.Code).Int("round", num).Msg("round finalized")

	if s.phase == PhaseReal {
		s.idx1++
		if s.idx1 >= len(s.pool.Real) {
			if len(s.pool.Generated) > 0 {
				s.phase = PhaseGenerated
			} else {
				s.finishLocked()
			}
		}
	} else {
		s.idx2++
		if s.idx2 >= len(s.pool.Generated) {
			s.finishLocked()
		}
	}
}

func (s *Session) finishLocked() {
	s.state = StateFinished
	s.sched.Cancel(s.Code)
	final := FinalResults{
		Leaderboard:  Leaderboard(s.playerListLocked()),
		TotalRounds:  s.pool.TotalRounds(),
		Superlatives: s.pool.Superlatives,
	}
	if len(final.Leaderboard) > 0 {
		final.Winner = final.Leaderboard[0].Name
	}
	s.emit.ToRoom(s.Code, "session_finished", final)
	log.Info().Str("code", s.Code).Str("winner", final.Winner).Msg("session finished")
	if s.exportFile != "" {
		file := s.exportFile
		go func() {
			if err := ExportResults(file, s.Code, final); err != nil {
				log.Error().Err(err).Str("code", s.Code).Msg("failed to export results")
			}
		}()
	}
}

func (s *Session) currentQuestionLocked() (*content.Question, int) {
	if s.phase == PhaseReal {
		if s.idx1 < len(s.pool.Real) {
			return &s.pool.Real[s.idx1], s.idx1 + 1
		}
		return nil, 0
	}
	if s.idx2 < len(s.pool.Generated) {
		return &s.pool.Generated[s.idx2], len(s.pool.Real) + s.idx2 + 1
	}
	return nil, 0
}

func (s *Session) allAnsweredLocked() bool {
	if len(s.players) == 0 {
		return false
	}
	for connID := range s.players {
		if _, ok := s.answers[connID]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) playerNamesLocked() []string {
	out := make([]string, 0, len(s.players))
	for _, p := range s.playerListLocked() {
		out = append(out, p.Name)
	}
	return out
}

func (s *Session) playerListLocked() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
