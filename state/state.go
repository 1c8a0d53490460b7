package state

import (
	"sync"
	"time"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
}

// 状态接口：每个游戏阶段一个状态，由房间主循环以 10fps 驱动
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() models.Phase
}

// 基础状态机实现。合法的阶段迁移由引擎的迁移表决定：
// lobby -> setup -> play -> gameover，以及 gameover -> setup（重赛）。
type BaseStateMachine struct {
	currentState State
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if !game.CanTransition(sm.currentState.GetID(), newState.GetID()) {
		return game.ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   models.Phase
	Room RoomContext
}

func (s *RoomStateBase) GetID() models.Phase {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {
	// 默认实现
}

func (s *RoomStateBase) OnExit() {
	// 默认实现
}

func (s *RoomStateBase) OnUpdate() {
	// 默认实现
}

// NewLobbyState creates the lobby state.
func NewLobbyState(room RoomContext) *LobbyState {
	return &LobbyState{
		RoomStateBase: RoomStateBase{
			ID:   models.PhaseLobby,
			Room: room,
		},
	}
}

// LobbyState 等待阶段：人数达到下限后启动 60 秒倒计时，倒计时存为
// 绝对时间戳，所有客户端看到同一个截止时刻。人数跌破下限则取消。
type LobbyState struct {
	RoomStateBase
}

func (s *LobbyState) OnUpdate() {
	snap := s.Room.Snapshot()
	if snap == nil {
		return
	}
	now := time.Now()

	switch {
	case len(snap.Players) >= snap.Settings.MinPlayers && snap.LobbyDeadline == 0:
		deadline := now.Add(time.Duration(snap.Settings.LobbyCountdown) * time.Second).UnixMilli()
		s.Room.Ops().Update(snap.Code, func(doc *models.RoomSnapshot) error {
			if doc.Phase == models.PhaseLobby && len(doc.Players) >= doc.Settings.MinPlayers && doc.LobbyDeadline == 0 {
				doc.LobbyDeadline = deadline
			}
			return nil
		})

	case len(snap.Players) < snap.Settings.MinPlayers && snap.LobbyDeadline != 0:
		// 倒计时取消；人数再次达标后重新开始
		s.Room.Ops().Update(snap.Code, func(doc *models.RoomSnapshot) error {
			if doc.Phase == models.PhaseLobby && len(doc.Players) < doc.Settings.MinPlayers {
				doc.LobbyDeadline = 0
			}
			return nil
		})

	case snap.LobbyDeadline != 0 && now.UnixMilli() >= snap.LobbyDeadline:
		if err := s.Room.Ops().StartGame(snap.Code, snap.HostID); err != nil {
			logger.Log.Debugf("room %s countdown start rejected: %v", snap.Code, err)
		}
	}
}
