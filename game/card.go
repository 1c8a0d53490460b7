package game

import (
	"math/rand"

	"github.com/wfunc/bingoserver/models"
)

// Card construction. A card is owned by exactly one player; during grid
// setup the owner either places numbers cell by cell in ascending order
// (PlaceNext) or fills the remaining cells at random (RandomFill). Marking
// happens on every card in the room whenever any number is called.

// PlaceNext puts the card's next manual value into the given cell. The
// card becomes ready once 25 has been placed.
func PlaceNext(card *models.CardState, cellIndex int) error {
	if card.NextManualValue > models.TotalCells {
		return ErrGridAlreadyFull
	}
	if cellIndex < 0 || cellIndex >= models.TotalCells {
		return ErrCellOccupied
	}
	if card.Grid[cellIndex] != 0 {
		return ErrCellOccupied
	}
	card.Grid[cellIndex] = card.NextManualValue
	card.NextManualValue++
	if card.NextManualValue > models.TotalCells {
		card.Ready = true
	}
	return nil
}

// RandomFill assigns an unbiased random permutation of the unused numbers
// to the remaining empty cells. Manual placements already on the grid are
// preserved. The card is ready afterwards.
func RandomFill(card *models.CardState, rng *rand.Rand) {
	used := make(map[int]bool, models.TotalCells)
	for _, v := range card.Grid {
		if v != 0 {
			used[v] = true
		}
	}
	remaining := make([]int, 0, models.TotalCells)
	for n := 1; n <= models.TotalCells; n++ {
		if !used[n] {
			remaining = append(remaining, n)
		}
	}
	// Fisher-Yates
	for i := len(remaining) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		remaining[i], remaining[j] = remaining[j], remaining[i]
	}
	ri := 0
	for i := 0; i < models.TotalCells; i++ {
		if card.Grid[i] == 0 {
			card.Grid[i] = remaining[ri]
			ri++
		}
	}
	card.NextManualValue = models.TotalCells + 1
	card.Ready = true
}

// MarkNumber marks every cell holding the called number. Marks are
// monotonic: a marked cell never becomes unmarked. Numbers absent from
// the card are a no-op.
func MarkNumber(card *models.CardState, number int) {
	for i := 0; i < models.TotalCells && i < len(card.Grid); i++ {
		if card.Grid[i] == number {
			card.Marked[i] = true
		}
	}
}

// UnmarkedNumbers returns the filled, not-yet-marked numbers on the card.
// This is all a disengaged player (or a bot) gets to choose from.
func UnmarkedNumbers(card *models.CardState) []int {
	var out []int
	for i := 0; i < len(card.Grid); i++ {
		if card.Grid[i] != 0 && !card.Marked[i] {
			out = append(out, card.Grid[i])
		}
	}
	return out
}

// ValidGrid reports whether the grid is a permutation of 1..25.
func ValidGrid(grid []int) bool {
	if len(grid) != models.TotalCells {
		return false
	}
	seen := make(map[int]bool, models.TotalCells)
	for _, v := range grid {
		if v < 1 || v > models.TotalCells || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
