package game

import (
	"math/rand"
	"time"

	"github.com/wfunc/bingoserver/models"
)

// Turn resolution. ResolveCall is a pure function of one snapshot: it
// validates the call, computes every field the call changes and returns
// them as a CallOutcome. The store applies an outcome atomically; a
// validation error mutates nothing.

// CallOutcome holds the room fields a successful call rewrites.
type CallOutcome struct {
	Number         int
	CallerID       string
	Marked         map[string][]bool
	NewlyFinished  []string
	Finished       map[string]bool
	Rankings       []models.RankingEntry
	GameOver       bool
	NextTurn       int
	NextDirection  int
	TurnDeadline   int64
	Move           models.MoveRecord
}

// ResolveCall resolves callerID calling number against the snapshot at
// time now. The snapshot is not mutated.
func ResolveCall(snap *models.RoomSnapshot, callerID string, number int, now time.Time) (*CallOutcome, error) {
	if snap.Phase != models.PhasePlay {
		return nil, ErrWrongPhase
	}
	caller, ok := snap.Players[callerID]
	if !ok {
		return nil, ErrPlayerNotInRoom
	}
	if snap.FinishedPlayers[callerID] {
		return nil, ErrAlreadyFinished
	}
	order := snap.PlayerOrder()
	if snap.CurrentTurn < 0 || snap.CurrentTurn >= len(order) || order[snap.CurrentTurn] != caller.ID {
		return nil, ErrNotYourTurn
	}
	card, ok := snap.Cards[callerID]
	if !ok {
		return nil, ErrPlayerNotInRoom
	}
	pos := -1
	for i, v := range card.Grid {
		if v == number {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrNumberNotOnCard
	}
	if card.Marked[pos] {
		return nil, ErrNumberAlreadyMarked
	}

	out := &CallOutcome{
		Number:   number,
		CallerID: callerID,
		Marked:   make(map[string][]bool, len(order)),
		Finished: make(map[string]bool, len(snap.FinishedPlayers)),
		Move: models.MoveRecord{
			PlayerID:  callerID,
			Number:    number,
			Timestamp: now.UnixMilli(),
		},
	}
	for id, v := range snap.FinishedPlayers {
		out.Finished[id] = v
	}
	out.Rankings = append(out.Rankings, snap.Rankings...)

	// Cross-mark on every seated card, finished players included: the
	// same number sits at different positions on different cards.
	for _, id := range order {
		c, ok := snap.Cards[id]
		if !ok {
			continue
		}
		marked := make([]bool, len(c.Marked))
		copy(marked, c.Marked)
		for i, v := range c.Grid {
			if v == number {
				marked[i] = true
			}
		}
		out.Marked[id] = marked
	}

	// Newly finished players all share the next rank position.
	for _, id := range order {
		if out.Finished[id] {
			continue
		}
		if Evaluate(out.Marked[id]).Finished() {
			out.NewlyFinished = append(out.NewlyFinished, id)
		}
	}
	if len(out.NewlyFinished) > 0 {
		position := len(out.Rankings)
		entry := models.RankingEntry{Position: position}
		for _, id := range out.NewlyFinished {
			out.Finished[id] = true
			entry.PlayerIDs = append(entry.PlayerIDs, id)
		}
		out.Rankings = append(out.Rankings, entry)
	}

	// With one or zero active players left the game ends; a lone
	// remaining player still gets an explicit last-place entry.
	var active []string
	for _, id := range order {
		if !out.Finished[id] {
			active = append(active, id)
		}
	}
	if len(active) <= 1 {
		out.GameOver = true
		if len(active) > 0 {
			out.Rankings = append(out.Rankings, models.RankingEntry{
				PlayerIDs: active,
				Position:  len(out.Rankings),
			})
		}
		out.NextTurn = snap.CurrentTurn
		out.NextDirection = snap.TurnDirection
		return out, nil
	}

	out.NextTurn, out.NextDirection = NextTurn(order, snap.CurrentTurn, snap.TurnDirection, out.Finished)
	out.TurnDeadline = now.Add(time.Duration(snap.Settings.TurnTime) * time.Second).UnixMilli()
	return out, nil
}

// Apply writes the outcome into the snapshot.
func (o *CallOutcome) Apply(snap *models.RoomSnapshot) {
	for id, marked := range o.Marked {
		if c, ok := snap.Cards[id]; ok {
			c.Marked = marked
		}
	}
	snap.FinishedPlayers = o.Finished
	snap.Rankings = o.Rankings
	snap.MoveHistory = append(snap.MoveHistory, o.Move)
	snap.LastCalledNumber = o.Number
	if o.GameOver {
		snap.Phase = models.PhaseGameOver
		snap.TurnDeadline = 0
	} else {
		snap.CurrentTurn = o.NextTurn
		snap.TurnDirection = o.NextDirection
		snap.TurnDeadline = o.TurnDeadline
	}
}

// NextTurn advances the seat pointer one step in the snake draft order:
// reflect off the ends of the seat sequence instead of wrapping, and keep
// stepping past finished players. The search is bounded by 2n steps; the
// caller guarantees at least one active player remains.
func NextTurn(order []string, current, direction int, finished map[string]bool) (int, int) {
	n := len(order)
	if n == 0 {
		return current, direction
	}
	dir := direction
	next := current + dir
	if next < 0 || next >= n {
		dir = -dir
		next = current + dir
		if next < 0 {
			next = 0
		}
		if next >= n {
			next = n - 1
		}
	}
	for attempts := 0; finished[order[next]] && attempts < n*2; attempts++ {
		next += dir
		if next < 0 || next >= n {
			dir = -dir
			next += dir * 2
			if next < 0 {
				next = 0
			}
			if next >= n {
				next = n - 1
			}
		}
	}
	return next, dir
}

// StartingTurn picks the opening seat and direction uniformly at random.
func StartingTurn(playerCount int, rng *rand.Rand) (int, int) {
	seat := rng.Intn(playerCount)
	dir := 1
	if rng.Intn(2) == 1 {
		dir = -1
	}
	return seat, dir
}
