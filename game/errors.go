package game

import "errors"

// Engine errors. All of them are validation failures detected before any
// room mutation; a rejected operation leaves the snapshot untouched.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrGameInProgress       = errors.New("game already in progress")
	ErrCellOccupied         = errors.New("cell already occupied")
	ErrGridAlreadyFull      = errors.New("grid already full")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrNumberNotOnCard      = errors.New("number not on card")
	ErrNumberAlreadyMarked  = errors.New("number already marked")
	ErrAlreadyFinished      = errors.New("player already finished")
	ErrInvalidGrid          = errors.New("grid is not a permutation of 1..25")
	ErrNotHost              = errors.New("operation requires host")
	ErrWrongPhase           = errors.New("operation not allowed in this phase")
	ErrNotEnoughPlayers     = errors.New("not enough players")
	ErrPlayerNotInRoom      = errors.New("player not in room")
	ErrTransitionNotAllowed = errors.New("phase transition not allowed")
)
