package state

import (
	"time"

	"github.com/wfunc/bingoserver/bot"
	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
)

// SetupState 建格阶段：每个玩家独立填自己的 5x5 卡片。机器人进入本阶段
// 立即随机填满；真人超过截止时刻仍未就绪则代为随机补全。全员就绪后由
// ready-poll 把阶段切到 play（只有房主侧有权写 phase 字段）。
type SetupState struct {
	RoomStateBase
	bots *bot.Controller
}

// NewSetupState creates the grid-setup state.
func NewSetupState(room RoomContext, bots *bot.Controller) *SetupState {
	return &SetupState{
		RoomStateBase: RoomStateBase{
			ID:   models.PhaseSetup,
			Room: room,
		},
		bots: bots,
	}
}

func (s *SetupState) OnEnter() {
	snap := s.Room.Snapshot()
	if snap == nil {
		return
	}
	logger.Log.Infof("room %s entering grid setup, %ds window", snap.Code, snap.Settings.SetupTime)

	// Bots build their cards immediately, through the same submission
	// path a human uses.
	for id, p := range snap.Players {
		if p.IsBot {
			if err := s.Room.Ops().SubmitGrid(snap.Code, id, s.bots.BuildGrid()); err != nil {
				logger.Log.Warnf("room %s bot %s grid submit failed: %v", snap.Code, id, err)
			}
		}
	}
}

func (s *SetupState) OnUpdate() {
	snap := s.Room.Snapshot()
	if snap == nil || snap.Phase != models.PhaseSetup {
		return
	}

	if snap.SetupDeadline != 0 && time.Now().UnixMilli() >= snap.SetupDeadline {
		s.autoCompleteExpired(snap)
		snap = s.Room.Snapshot()
	}

	// Ready-poll: the starting gate for play.
	if snap != nil && game.AllReady(snap) {
		if err := s.Room.Ops().SetPhase(snap.Code, snap.HostID, models.PhasePlay); err != nil && err != game.ErrTransitionNotAllowed {
			logger.Log.Warnf("room %s ready-poll failed: %v", snap.Code, err)
		}
	}
}

func (s *SetupState) autoCompleteExpired(snap *models.RoomSnapshot) {
	for id, card := range snap.Cards {
		if card.Ready {
			continue
		}
		// Keep whatever the player placed manually; fill the rest.
		filled := card.Clone()
		s.bots.CompleteGrid(filled)
		if err := s.Room.Ops().SubmitGrid(snap.Code, id, filled.Grid); err != nil {
			logger.Log.Warnf("room %s auto-fill for %s failed: %v", snap.Code, id, err)
		}
	}
}
