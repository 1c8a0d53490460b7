package game

import (
	"github.com/wfunc/bingoserver/models"
)

// Legal phase transitions. No transition skips a phase and setup/play
// never regress; a rematch re-enters setup from gameover with the same
// roster.
var phaseTransitions = map[models.Phase]map[models.Phase]bool{
	models.PhaseLobby:    {models.PhaseSetup: true},
	models.PhaseSetup:    {models.PhasePlay: true},
	models.PhasePlay:     {models.PhaseGameOver: true},
	models.PhaseGameOver: {models.PhaseSetup: true},
}

// CanTransition reports whether moving from one phase to another is legal.
func CanTransition(from, to models.Phase) bool {
	return phaseTransitions[from][to]
}

// AllReady reports whether every seated player's card is ready. This is
// the starting gate for the setup -> play transition.
func AllReady(snap *models.RoomSnapshot) bool {
	if len(snap.Players) == 0 {
		return false
	}
	for id := range snap.Players {
		card, ok := snap.Cards[id]
		if !ok || !card.Ready {
			return false
		}
	}
	return true
}
