package game

import (
	"errors"
	"fmt"
)

// Error kinds; specific errors below wrap one of these so callers can match
// the category with errors.Is.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("not allowed in current state")
)

var (
	ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrNotFound)
	ErrTokenExpired    = fmt.Errorf("%w: token unknown or expired", ErrNotFound)
	ErrNotInSession    = fmt.Errorf("%w: you are not in a session", ErrNotFound)

	ErrCodeRequired = fmt.Errorf("%w: session code and player name are required", ErrValidation)
	ErrNameTaken    = fmt.Errorf("%w: name already taken", ErrValidation)
	ErrNoGameData   = fmt.Errorf("%w: no game data available", ErrValidation)

	ErrNotHost         = fmt.Errorf("%w: only the host can do that", ErrConflict)
	ErrLobbyClosed     = fmt.Errorf("%w: session has already started", ErrConflict)
	ErrNoPlayers       = fmt.Errorf("%w: need at least one player to start", ErrConflict)
	ErrNotPlaying      = fmt.Errorf("%w: session is not active", ErrConflict)
	ErrRoundOver       = fmt.Errorf("%w: round time has expired", ErrConflict)
	ErrAlreadyAnswered = fmt.Errorf("%w: answer already submitted", ErrConflict)
	ErrRoundActive     = fmt.Errorf("%w: round still in progress", ErrConflict)
)
