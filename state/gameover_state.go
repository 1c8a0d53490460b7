package state

import (
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
)

// GameOverState 结算阶段：进入时把本局结果交给档案服务落库（胜场、
// 连胜、完成线数）。结算只做一次；重赛由房主触发，回到 setup。
type GameOverState struct {
	RoomStateBase
	settler Settler
	settled bool
}

// NewGameOverState creates the game-over state. settler may be nil when
// stats persistence is disabled.
func NewGameOverState(room RoomContext, settler Settler) *GameOverState {
	return &GameOverState{
		RoomStateBase: RoomStateBase{
			ID:   models.PhaseGameOver,
			Room: room,
		},
		settler: settler,
	}
}

func (s *GameOverState) OnEnter() {
	snap := s.Room.Snapshot()
	if snap == nil {
		return
	}
	logger.Log.Infof("room %s game over, %d ranking groups", snap.Code, len(snap.Rankings))

	if s.settler != nil && !s.settled {
		s.settled = true
		s.settler.SettleGame(snap)
	}
}
