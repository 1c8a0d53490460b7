// state/interfaces.go
package state

import (
	"github.com/wfunc/bingoserver/models"
)

// Ops is the slice of Shared Room Store operations the phase states
// drive. Satisfied by *store.Store; defined here to break the import
// cycle between room and store wiring and to keep states mockable.
type Ops interface {
	Update(code string, fn func(*models.RoomSnapshot) error) (*models.RoomSnapshot, error)
	StartGame(code, requesterID string) error
	SubmitGrid(code, playerID string, grid []int) error
	CallNumber(code, callerID string, number int) error
	SetPhase(code, requesterID string, phase models.Phase) error
}

// RoomContext defines what a live room must expose to be driven by the
// state machine. This breaks the import cycle between room and state.
type RoomContext interface {
	GetCode() string
	// Snapshot returns the latest room document the room has observed,
	// or nil before the first one arrives.
	Snapshot() *models.RoomSnapshot
	Ops() Ops
	ChangeState(newState State) error
}

// Settler receives a finished round for stats persistence. Satisfied by
// services.ProfileService.
type Settler interface {
	SettleGame(snap *models.RoomSnapshot)
}
