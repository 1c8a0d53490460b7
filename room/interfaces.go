package room

import (
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/state"
)

// Store is the slice of the shared room store a live room consumes: the
// phase operations plus the snapshot feed. Satisfied by *store.Store.
// Defined here to break the import cycle between room and store wiring.
type Store interface {
	state.Ops
	Subscribe(code string, fn func(*models.RoomSnapshot)) (func(), error)
}

// Broadcaster pushes a room's snapshot to every connected client.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
}
