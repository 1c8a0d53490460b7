package state

import (
	"testing"
	"time"

	"github.com/wfunc/bingoserver/bot"
	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/timer"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID             models.Phase
	OnEnterCalled  bool
	OnExitCalled   bool
	OnUpdateCalled bool
}

func (m *MockState) OnEnter()  { m.OnEnterCalled = true }
func (m *MockState) OnExit()   { m.OnExitCalled = true }
func (m *MockState) OnUpdate() { m.OnUpdateCalled = true }

func (m *MockState) GetID() models.Phase {
	return m.ID
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
	m.OnUpdateCalled = false
}

// mockOps records every store operation the states issue.
type mockOps struct {
	updates     []func(*models.RoomSnapshot) error
	startCalls  []string
	grids       map[string][]int
	calls       []int
	callers     []string
	phaseCalls  []models.Phase
	startErr    error
	setPhaseErr error
	// snap, when set, is what Update mutates in place.
	snap *models.RoomSnapshot
}

func newMockOps() *mockOps {
	return &mockOps{grids: make(map[string][]int)}
}

func (m *mockOps) Update(code string, fn func(*models.RoomSnapshot) error) (*models.RoomSnapshot, error) {
	m.updates = append(m.updates, fn)
	if m.snap != nil {
		if err := fn(m.snap); err != nil {
			return nil, err
		}
	}
	return m.snap, nil
}

func (m *mockOps) StartGame(code, requesterID string) error {
	m.startCalls = append(m.startCalls, requesterID)
	return m.startErr
}

func (m *mockOps) SubmitGrid(code, playerID string, grid []int) error {
	m.grids[playerID] = grid
	return nil
}

func (m *mockOps) CallNumber(code, callerID string, number int) error {
	m.callers = append(m.callers, callerID)
	m.calls = append(m.calls, number)
	return nil
}

func (m *mockOps) SetPhase(code, requesterID string, phase models.Phase) error {
	m.phaseCalls = append(m.phaseCalls, phase)
	return m.setPhaseErr
}

// mockRoom implements RoomContext around a mutable snapshot.
type mockRoom struct {
	code string
	snap *models.RoomSnapshot
	ops  *mockOps
}

func (r *mockRoom) GetCode() string                  { return r.code }
func (r *mockRoom) Snapshot() *models.RoomSnapshot   { return r.snap }
func (r *mockRoom) Ops() Ops                         { return r.ops }
func (r *mockRoom) ChangeState(newState State) error { return nil }

func lobbySnap(playerIDs ...string) *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Code:            "TEST1",
		HostID:          playerIDs[0],
		Phase:           models.PhaseLobby,
		Settings:        models.DefaultSettings(),
		Players:         make(map[string]*models.Player),
		Cards:           make(map[string]*models.CardState),
		FinishedPlayers: make(map[string]bool),
	}
	for i, id := range playerIDs {
		snap.Players[id] = &models.Player{ID: id, Name: id, Index: i, Online: true}
	}
	return snap
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: models.PhaseLobby}
	sm := NewBaseStateMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.GetCurrentState() != initialState {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: models.PhaseLobby}
	nextState := &MockState{ID: models.PhaseSetup}

	sm := NewBaseStateMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.GetCurrentState() != nextState {
		t.Error("GetCurrentState should return the new state")
	}
}

func TestStateMachine_BlockedTransition(t *testing.T) {
	lobby := &MockState{ID: models.PhaseLobby}
	play := &MockState{ID: models.PhasePlay}

	sm := NewBaseStateMachine(lobby)
	lobby.reset()

	err := sm.ChangeState(play)
	if err != game.ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.GetCurrentState() != lobby {
		t.Error("Current state should remain unchanged after a blocked transition")
	}
	if lobby.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if play.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

func TestStateMachine_RematchTransition(t *testing.T) {
	over := &MockState{ID: models.PhaseGameOver}
	setup := &MockState{ID: models.PhaseSetup}

	sm := NewBaseStateMachine(over)
	if err := sm.ChangeState(setup); err != nil {
		t.Fatalf("gameover -> setup should be allowed, got: %v", err)
	}
}

func TestLobbyState_ArmsCountdown(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host", "guest")
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewLobbyState(room)
	s.OnUpdate()

	if ops.snap.LobbyDeadline == 0 {
		t.Fatal("Expected the lobby countdown to be armed with two players")
	}
	lower := time.Now().UnixMilli()
	upper := lower + int64(ops.snap.Settings.LobbyCountdown+1)*1000
	if ops.snap.LobbyDeadline < lower-1000 || ops.snap.LobbyDeadline > upper {
		t.Errorf("Deadline %d outside expected window [%d, %d]", ops.snap.LobbyDeadline, lower, upper)
	}
}

func TestLobbyState_CancelsCountdownBelowMinimum(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host")
	ops.snap.LobbyDeadline = time.Now().Add(30 * time.Second).UnixMilli()
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewLobbyState(room)
	s.OnUpdate()

	if ops.snap.LobbyDeadline != 0 {
		t.Error("Expected the countdown to be cancelled with one player")
	}
}

func TestLobbyState_StartsAtExpiry(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host", "guest")
	ops.snap.LobbyDeadline = time.Now().Add(-time.Second).UnixMilli()
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewLobbyState(room)
	s.OnUpdate()

	if len(ops.startCalls) != 1 {
		t.Fatalf("Expected one StartGame call, got %d", len(ops.startCalls))
	}
	if ops.startCalls[0] != "host" {
		t.Errorf("Expected the start to be issued as the host, got %s", ops.startCalls[0])
	}
}

func TestSetupState_BotsFillOnEnter(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host", "bot_1")
	ops.snap.Phase = models.PhaseSetup
	ops.snap.Players["bot_1"].IsBot = true
	ops.snap.Cards["host"] = models.NewCardState()
	ops.snap.Cards["bot_1"] = models.NewCardState()
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewSetupState(room, bot.NewControllerWithSeed(1))
	s.OnEnter()

	if _, ok := ops.grids["host"]; ok {
		t.Error("Humans should not be auto-filled on enter")
	}
	grid, ok := ops.grids["bot_1"]
	if !ok {
		t.Fatal("Expected the bot to submit its grid on enter")
	}
	if !game.ValidGrid(grid) {
		t.Error("Bot grid should be a permutation of 1..25")
	}
}

func TestSetupState_AutoFillsAtDeadline(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host", "guest")
	ops.snap.Phase = models.PhaseSetup
	ops.snap.Cards["host"] = models.NewCardState()
	ops.snap.Cards["guest"] = models.NewCardState()
	ops.snap.Cards["guest"].Ready = true
	ops.snap.SetupDeadline = time.Now().Add(-time.Second).UnixMilli()
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewSetupState(room, bot.NewControllerWithSeed(2))
	s.OnUpdate()

	if _, ok := ops.grids["guest"]; ok {
		t.Error("Ready cards must not be resubmitted")
	}
	grid, ok := ops.grids["host"]
	if !ok {
		t.Fatal("Expected the expired card to be auto-completed")
	}
	if !game.ValidGrid(grid) {
		t.Error("Auto-completed grid should be a permutation of 1..25")
	}
}

func TestSetupState_ReadyPollStartsPlay(t *testing.T) {
	ops := newMockOps()
	ops.snap = lobbySnap("host", "guest")
	ops.snap.Phase = models.PhaseSetup
	ops.snap.Cards["host"] = models.NewCardState()
	ops.snap.Cards["host"].Ready = true
	ops.snap.Cards["guest"] = models.NewCardState()
	ops.snap.Cards["guest"].Ready = true
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	s := NewSetupState(room, bot.NewControllerWithSeed(3))
	s.OnUpdate()

	if len(ops.phaseCalls) != 1 || ops.phaseCalls[0] != models.PhasePlay {
		t.Fatalf("Expected a single SetPhase(play) call, got %v", ops.phaseCalls)
	}
}

func playSnap() *models.RoomSnapshot {
	snap := lobbySnap("host", "guest")
	snap.Phase = models.PhasePlay
	for id := range snap.Players {
		card := models.NewCardState()
		for i := 0; i < models.TotalCells; i++ {
			card.Grid[i] = i + 1
		}
		card.Ready = true
		snap.Cards[id] = card
	}
	snap.TurnDeadline = time.Now().Add(30 * time.Second).UnixMilli()
	return snap
}

func TestPlayState_TimeoutAutoCall(t *testing.T) {
	ops := newMockOps()
	ops.snap = playSnap()
	ops.snap.CurrentTurn = 0 // host's seat
	ops.snap.TurnDeadline = time.Now().Add(-time.Second).UnixMilli()
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	timers := timer.NewManager()
	defer timers.Stop()
	s := NewPlayState(room, bot.NewControllerWithSeed(4), timers)
	s.OnUpdate()

	if len(ops.calls) != 1 {
		t.Fatalf("Expected one auto-call, got %d", len(ops.calls))
	}
	if ops.callers[0] != "host" {
		t.Errorf("Auto-call should be issued as the turn holder, got %s", ops.callers[0])
	}
	if ops.calls[0] < 1 || ops.calls[0] > models.TotalCells {
		t.Errorf("Auto-called number %d out of range", ops.calls[0])
	}
}

func TestPlayState_NoCallBeforeDeadline(t *testing.T) {
	ops := newMockOps()
	ops.snap = playSnap()
	ops.snap.CurrentTurn = 0
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	timers := timer.NewManager()
	defer timers.Stop()
	s := NewPlayState(room, bot.NewControllerWithSeed(5), timers)
	s.OnUpdate()

	if len(ops.calls) != 0 {
		t.Errorf("Expected no call before the turn deadline, got %d", len(ops.calls))
	}
}

func TestPlayState_BotSchedulesOnce(t *testing.T) {
	ops := newMockOps()
	ops.snap = playSnap()
	ops.snap.Players["guest"].IsBot = true
	ops.snap.CurrentTurn = 1 // guest's seat
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	timers := timer.NewManager()
	defer timers.Stop()
	s := NewPlayState(room, bot.NewControllerWithSeed(6), timers)

	// Repeated ticks within the same turn must not stack bot calls.
	s.OnUpdate()
	s.OnUpdate()
	s.OnUpdate()

	if s.scheduledMove != moveKey(ops.snap) {
		t.Error("Expected the bot move to be scheduled for the current turn")
	}
	if len(ops.calls) != 0 {
		t.Errorf("The bot should act after its thinking delay, not immediately; got %d calls", len(ops.calls))
	}
}

// mockSettler records settlement calls.
type mockSettler struct {
	settled int
}

func (m *mockSettler) SettleGame(snap *models.RoomSnapshot) { m.settled++ }

func TestGameOverState_SettlesOnce(t *testing.T) {
	ops := newMockOps()
	ops.snap = playSnap()
	ops.snap.Phase = models.PhaseGameOver
	ops.snap.Rankings = []models.RankingEntry{{PlayerIDs: []string{"host"}, Position: 1}}
	room := &mockRoom{code: "TEST1", snap: ops.snap, ops: ops}

	settler := &mockSettler{}
	s := NewGameOverState(room, settler)
	s.OnEnter()
	s.OnEnter()

	if settler.settled != 1 {
		t.Errorf("Expected exactly one settlement, got %d", settler.settled)
	}
}
