package game

import (
	"github.com/wfunc/bingoserver/models"
)

// FinishThreshold is how many completed lines end a player's game. Lines
// beyond the fifth still count but confer nothing further.
const FinishThreshold = 5

// Evaluation is the result of scanning a marked grid for completed lines.
type Evaluation struct {
	Count          int
	CompletedCells map[int]bool
}

// Finished reports whether the evaluation reaches the finish threshold.
func (e Evaluation) Finished() bool {
	return e.Count >= FinishThreshold
}

// Evaluate counts the completed lines of a marked grid: 5 rows, then 5
// columns, then the two diagonals. A line is complete when all five of
// its cells are marked.
func Evaluate(marked []bool) Evaluation {
	eval := Evaluation{CompletedCells: make(map[int]bool)}
	if len(marked) < models.TotalCells {
		return eval
	}
	line := make([]int, models.GridSize)

	for r := 0; r < models.GridSize; r++ {
		for c := 0; c < models.GridSize; c++ {
			line[c] = r*models.GridSize + c
		}
		eval.accumulate(marked, line)
	}
	for c := 0; c < models.GridSize; c++ {
		for r := 0; r < models.GridSize; r++ {
			line[r] = r*models.GridSize + c
		}
		eval.accumulate(marked, line)
	}
	for i := 0; i < models.GridSize; i++ {
		line[i] = i*models.GridSize + i
	}
	eval.accumulate(marked, line)
	for i := 0; i < models.GridSize; i++ {
		line[i] = i*models.GridSize + (models.GridSize - 1 - i)
	}
	eval.accumulate(marked, line)

	return eval
}

func (e *Evaluation) accumulate(marked []bool, line []int) {
	for _, idx := range line {
		if !marked[idx] {
			return
		}
	}
	e.Count++
	for _, idx := range line {
		e.CompletedCells[idx] = true
	}
}
