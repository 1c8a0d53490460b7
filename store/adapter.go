// store/adapter.go
//
// Game operations against the room document. Each one is a single atomic
// Update; validation failures leave the document untouched.
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
)

// StartGame moves a lobby into grid setup. Host only; needs the minimum
// player count. Every seat gets a fresh empty card, and the opening turn
// holder and snake direction are drawn at random for the round.
func (s *Store) StartGame(code, requesterID string) error {
	seat := -1
	dir := 1
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.HostID != requesterID {
			return game.ErrNotHost
		}
		if snap.Phase != models.PhaseLobby {
			return game.ErrTransitionNotAllowed
		}
		if len(snap.Players) < snap.Settings.MinPlayers {
			return game.ErrNotEnoughPlayers
		}
		if seat < 0 {
			seat = s.randIntn(len(snap.Players))
			if s.randIntn(2) == 1 {
				dir = -1
			}
		}
		s.enterSetup(snap, seat, dir)
		return nil
	})
	return err
}

// Rematch re-enters grid setup from game over with the same roster. Cards,
// rankings and history reset; turn order is re-randomized independently.
func (s *Store) Rematch(code, requesterID string) error {
	seat := -1
	dir := 1
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.HostID != requesterID {
			return game.ErrNotHost
		}
		if snap.Phase != models.PhaseGameOver {
			return game.ErrTransitionNotAllowed
		}
		if seat < 0 {
			seat = s.randIntn(len(snap.Players))
			if s.randIntn(2) == 1 {
				dir = -1
			}
		}
		s.enterSetup(snap, seat, dir)
		return nil
	})
	return err
}

func (s *Store) enterSetup(snap *models.RoomSnapshot, seat, dir int) {
	snap.Phase = models.PhaseSetup
	snap.CurrentTurn = seat
	snap.TurnDirection = dir
	snap.Cards = make(map[string]*models.CardState, len(snap.Players))
	for id := range snap.Players {
		snap.Cards[id] = models.NewCardState()
	}
	snap.FinishedPlayers = make(map[string]bool)
	snap.Rankings = nil
	snap.MoveHistory = nil
	snap.LastCalledNumber = 0
	snap.LobbyDeadline = 0
	snap.TurnDeadline = 0
	snap.SetupDeadline = s.now().Add(time.Duration(snap.Settings.SetupTime) * time.Second).UnixMilli()
}

// SubmitGrid commits a player's completed grid. The grid must be a
// permutation of 1..25.
func (s *Store) SubmitGrid(code, playerID string, grid []int) error {
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.Phase != models.PhaseSetup {
			return game.ErrWrongPhase
		}
		card, ok := snap.Cards[playerID]
		if !ok {
			return game.ErrPlayerNotInRoom
		}
		if card.Ready {
			return game.ErrGridAlreadyFull
		}
		if !game.ValidGrid(grid) {
			return game.ErrInvalidGrid
		}
		card.Grid = append([]int(nil), grid...)
		card.NextManualValue = models.TotalCells + 1
		card.Ready = true
		return nil
	})
	return err
}

// PlaceCell puts the player's next manual value (1, then 2, ...) into
// the chosen cell of their own card.
func (s *Store) PlaceCell(code, playerID string, cellIndex int) error {
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.Phase != models.PhaseSetup {
			return game.ErrWrongPhase
		}
		card, ok := snap.Cards[playerID]
		if !ok {
			return game.ErrPlayerNotInRoom
		}
		return game.PlaceNext(card, cellIndex)
	})
	return err
}

// RandomFillCard fills the remaining empty cells of the player's card at
// random, keeping manual placements. The card becomes ready.
func (s *Store) RandomFillCard(code, playerID string) error {
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.Phase != models.PhaseSetup {
			return game.ErrWrongPhase
		}
		card, ok := snap.Cards[playerID]
		if !ok {
			return game.ErrPlayerNotInRoom
		}
		if card.Ready {
			return game.ErrGridAlreadyFull
		}
		s.rngMu.Lock()
		game.RandomFill(card, s.rng)
		s.rngMu.Unlock()
		return nil
	})
	return err
}

// CallNumber resolves a number call through the pure engine and commits
// the outcome atomically. The turn-holder check inside ResolveCall runs
// against the locked document, so a stale concurrent caller loses cleanly
// with ErrNotYourTurn instead of clobbering the turn order.
func (s *Store) CallNumber(code, callerID string, number int) error {
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		out, err := game.ResolveCall(snap, callerID, number, s.now())
		if err != nil {
			return err
		}
		out.Apply(snap)
		return nil
	})
	return err
}

// SetPhase writes the phase field. Host only, and only along legal
// transitions; used by the ready-poll for setup -> play.
func (s *Store) SetPhase(code, requesterID string, phase models.Phase) error {
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.HostID != requesterID {
			return game.ErrNotHost
		}
		if !game.CanTransition(snap.Phase, phase) {
			return game.ErrTransitionNotAllowed
		}
		snap.Phase = phase
		if phase == models.PhasePlay {
			snap.SetupDeadline = 0
			snap.TurnDeadline = s.now().Add(time.Duration(snap.Settings.TurnTime) * time.Second).UnixMilli()
		}
		return nil
	})
	return err
}

func newBotID() string {
	return fmt.Sprintf("bot_%s", uuid.New().String()[:8])
}

func sortLobbies(lobbies []models.LobbyInfo) {
	sort.Slice(lobbies, func(i, j int) bool {
		return lobbies[i].CreatedAt > lobbies[j].CreatedAt
	})
}
