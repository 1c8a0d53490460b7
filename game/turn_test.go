package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/bingoserver/models"
)

func identityGrid() []int {
	g := make([]int, models.TotalCells)
	for i := range g {
		g[i] = i + 1
	}
	return g
}

// playRoom builds a snapshot in the play phase with n seated players
// ("p0".."pn-1"), each holding an identity grid (cell i -> i+1).
func playRoom(n int) *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Code:            "TEST2",
		HostID:          "p0",
		Phase:           models.PhasePlay,
		Settings:        models.DefaultSettings(),
		Players:         make(map[string]*models.Player),
		Cards:           make(map[string]*models.CardState),
		FinishedPlayers: make(map[string]bool),
		TurnDirection:   1,
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		snap.Players[id] = &models.Player{ID: id, Name: id, Index: i, Online: true}
		card := models.NewCardState()
		card.Grid = identityGrid()
		card.Ready = true
		snap.Cards[id] = card
	}
	return snap
}

func TestNextTurn_SnakeBouncesAtBoundaries(t *testing.T) {
	order := []string{"a", "b", "c"}
	finished := map[string]bool{}

	seq := []int{0}
	cur, dir := 0, 1
	for i := 0; i < 8; i++ {
		cur, dir = NextTurn(order, cur, dir, finished)
		seq = append(seq, cur)
	}

	assert.Equal(t, []int{0, 1, 2, 1, 0, 1, 2, 1, 0}, seq)
}

func TestNextTurn_SkipsFinishedSeat(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	finished := map[string]bool{"b": true}

	seq := []int{0}
	cur, dir := 0, 1
	for i := 0; i < 6; i++ {
		cur, dir = NextTurn(order, cur, dir, finished)
		seq = append(seq, cur)
	}

	// Seat 1 is always skipped once finished.
	assert.Equal(t, []int{0, 2, 3, 2, 0, 2, 3}, seq)
}

func TestNextTurn_ReflectsBackToCallerWhenEndSeatFinished(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	finished := map[string]bool{"d": true}

	next, dir := NextTurn(order, 2, 1, finished)
	assert.Equal(t, 2, next)
	assert.Equal(t, -1, dir)
}

func TestStartingTurn_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		seat, dir := StartingTurn(4, rng)
		assert.GreaterOrEqual(t, seat, 0)
		assert.Less(t, seat, 4)
		assert.Contains(t, []int{1, -1}, dir)
	}
}

func TestResolveCall_Preconditions(t *testing.T) {
	now := time.Now()

	t.Run("wrong phase", func(t *testing.T) {
		snap := playRoom(2)
		snap.Phase = models.PhaseSetup
		_, err := ResolveCall(snap, "p0", 1, now)
		assert.ErrorIs(t, err, ErrWrongPhase)
	})

	t.Run("unknown caller", func(t *testing.T) {
		snap := playRoom(2)
		_, err := ResolveCall(snap, "ghost", 1, now)
		assert.ErrorIs(t, err, ErrPlayerNotInRoom)
	})

	t.Run("not your turn", func(t *testing.T) {
		snap := playRoom(2)
		snap.CurrentTurn = 0
		_, err := ResolveCall(snap, "p1", 1, now)
		assert.ErrorIs(t, err, ErrNotYourTurn)
	})

	t.Run("already finished", func(t *testing.T) {
		snap := playRoom(3)
		snap.FinishedPlayers["p0"] = true
		_, err := ResolveCall(snap, "p0", 1, now)
		assert.ErrorIs(t, err, ErrAlreadyFinished)
	})

	t.Run("number not on card", func(t *testing.T) {
		snap := playRoom(2)
		_, err := ResolveCall(snap, "p0", 99, now)
		assert.ErrorIs(t, err, ErrNumberNotOnCard)
	})

	t.Run("number already marked", func(t *testing.T) {
		snap := playRoom(2)
		snap.Cards["p0"].Marked[0] = true
		_, err := ResolveCall(snap, "p0", 1, now)
		assert.ErrorIs(t, err, ErrNumberAlreadyMarked)
	})

	t.Run("rejected call mutates nothing", func(t *testing.T) {
		snap := playRoom(2)
		before := snap.Clone()
		_, err := ResolveCall(snap, "p1", 1, now)
		require.Error(t, err)
		assert.Equal(t, before, snap)
	})
}

func TestResolveCall_CrossMarksEveryCard(t *testing.T) {
	snap := playRoom(3)
	snap.CurrentTurn = 0
	// p2 already finished; their card still gets marked.
	snap.FinishedPlayers["p2"] = true
	snap.Rankings = []models.RankingEntry{{PlayerIDs: []string{"p2"}, Position: 0}}

	out, err := ResolveCall(snap, "p0", 13, time.Now())
	require.NoError(t, err)

	for _, id := range []string{"p0", "p1", "p2"} {
		assert.True(t, out.Marked[id][12], "13 sits at cell 12 on %s's identity grid", id)
	}
}

func TestResolveCall_AdvancesTurnAndHistory(t *testing.T) {
	now := time.Now()
	snap := playRoom(3)
	snap.CurrentTurn = 0

	out, err := ResolveCall(snap, "p0", 7, now)
	require.NoError(t, err)
	assert.False(t, out.GameOver)
	assert.Equal(t, 1, out.NextTurn)
	assert.Equal(t, 1, out.NextDirection)
	assert.Equal(t, now.Add(30*time.Second).UnixMilli(), out.TurnDeadline)

	out.Apply(snap)
	assert.Equal(t, 7, snap.LastCalledNumber)
	require.Len(t, snap.MoveHistory, 1)
	assert.Equal(t, "p0", snap.MoveHistory[0].PlayerID)
	assert.Equal(t, 7, snap.MoveHistory[0].Number)
	assert.Equal(t, 1, snap.CurrentTurn)
	assert.Equal(t, models.PhasePlay, snap.Phase)
}

// fourLinesMarked marks rows 0..3 (cells 0..19) on an identity grid: four
// complete lines, one call (25, cell 24) away from finishing via column 4
// and the main diagonal.
func fourLinesMarked(card *models.CardState) {
	for i := 0; i < 20; i++ {
		card.Marked[i] = true
	}
}

func TestResolveCall_FinishThresholdCrossedOnce(t *testing.T) {
	snap := playRoom(3)
	snap.CurrentTurn = 1
	fourLinesMarked(snap.Cards["p1"])

	require.False(t, Evaluate(snap.Cards["p1"].Marked).Finished(), "four lines is not finished")

	out, err := ResolveCall(snap, "p1", 25, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, out.NewlyFinished)
	require.Len(t, out.Rankings, 1)
	assert.Equal(t, models.RankingEntry{PlayerIDs: []string{"p1"}, Position: 0}, out.Rankings[0])
}

func TestResolveCall_TiedFinishersShareOnePosition(t *testing.T) {
	snap := playRoom(4)
	snap.CurrentTurn = 0
	fourLinesMarked(snap.Cards["p1"])
	fourLinesMarked(snap.Cards["p2"])

	out, err := ResolveCall(snap, "p0", 25, time.Now())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p1", "p2"}, out.NewlyFinished)
	require.Len(t, out.Rankings, 1)
	assert.Equal(t, 0, out.Rankings[0].Position)
	assert.ElementsMatch(t, []string{"p1", "p2"}, out.Rankings[0].PlayerIDs)
	assert.False(t, out.GameOver, "p0 and p3 still active")
}

func TestResolveCall_GameOverAssignsLastPlace(t *testing.T) {
	snap := playRoom(4)
	snap.CurrentTurn = 0
	// p3 finished earlier at position 0.
	snap.FinishedPlayers["p3"] = true
	snap.Rankings = []models.RankingEntry{{PlayerIDs: []string{"p3"}, Position: 0}}
	fourLinesMarked(snap.Cards["p1"])
	fourLinesMarked(snap.Cards["p2"])

	out, err := ResolveCall(snap, "p0", 25, time.Now())
	require.NoError(t, err)

	assert.True(t, out.GameOver)
	require.Len(t, out.Rankings, 3)
	assert.ElementsMatch(t, []string{"p1", "p2"}, out.Rankings[1].PlayerIDs)
	assert.Equal(t, 1, out.Rankings[1].Position)
	assert.Equal(t, []string{"p0"}, out.Rankings[2].PlayerIDs, "sole remaining player gets an explicit entry")
	assert.Equal(t, 2, out.Rankings[2].Position)

	out.Apply(snap)
	assert.Equal(t, models.PhaseGameOver, snap.Phase)
	assert.Zero(t, snap.TurnDeadline)

	_, err = ResolveCall(snap, "p0", 24, time.Now())
	assert.ErrorIs(t, err, ErrWrongPhase, "no call is legal after game over")
}

// End-to-end marking scenario: A's row 0 holds 1..5, B's card holds none
// of those numbers. Four calls leave A one short; the fifth completes the
// row without finishing anyone.
func TestResolveCall_RowScenario(t *testing.T) {
	snap := playRoom(2)
	snap.CurrentTurn = 0
	// B's card shares no numbers with the calls below.
	snap.Cards["p1"] = models.NewCardState()

	for _, n := range []int{1, 2, 3, 4} {
		snap.CurrentTurn = 0 // keep A as turn holder for the fixture
		out, err := ResolveCall(snap, "p0", n, time.Now())
		require.NoError(t, err)
		out.Apply(snap)
	}

	assert.Equal(t, 0, Evaluate(snap.Cards["p0"].Marked).Count, "a row needs all five cells")
	for i, m := range snap.Cards["p1"].Marked {
		assert.False(t, m, "B cell %d must be untouched", i)
	}

	snap.CurrentTurn = 0
	out, err := ResolveCall(snap, "p0", 5, time.Now())
	require.NoError(t, err)
	out.Apply(snap)

	assert.Equal(t, 1, Evaluate(snap.Cards["p0"].Marked).Count)
	assert.Empty(t, snap.FinishedPlayers)
	assert.Equal(t, 1, snap.CurrentTurn, "turn passes to B")
}
