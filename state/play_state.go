package state

import (
	"fmt"
	"time"

	"github.com/wfunc/bingoserver/bot"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/timer"
)

// PlayState 叫号阶段。回合截止时刻和出手都以最新快照为准：
//   - 轮到机器人时，经过 0.8~2.0 秒的“思考”延迟后替它叫号；
//   - 真人超过 30 秒未出手，代为从它自己卡片上随机叫一个未标数字。
//
// 所有叫号都走同一个 CallNumber 入口，由引擎校验回合归属。
type PlayState struct {
	RoomStateBase
	bots   *bot.Controller
	timers *timer.Manager

	// scheduledMove de-duplicates bot scheduling across 100ms ticks; a
	// move key changes whenever the turn or the history length changes.
	scheduledMove string
}

// NewPlayState creates the play state.
func NewPlayState(room RoomContext, bots *bot.Controller, timers *timer.Manager) *PlayState {
	return &PlayState{
		RoomStateBase: RoomStateBase{
			ID:   models.PhasePlay,
			Room: room,
		},
		bots:   bots,
		timers: timers,
	}
}

func (s *PlayState) OnEnter() {
	snap := s.Room.Snapshot()
	if snap == nil {
		return
	}
	logger.Log.Infof("room %s play started, %d players", snap.Code, len(snap.Players))
}

func (s *PlayState) OnUpdate() {
	snap := s.Room.Snapshot()
	if snap == nil || snap.Phase != models.PhasePlay {
		return
	}
	order := snap.PlayerOrder()
	if snap.CurrentTurn < 0 || snap.CurrentTurn >= len(order) {
		return
	}
	holderID := order[snap.CurrentTurn]
	holder := snap.Players[holderID]

	if holder.IsBot {
		s.scheduleBotCall(snap, holderID)
		return
	}

	if snap.TurnDeadline != 0 && time.Now().UnixMilli() >= snap.TurnDeadline {
		s.autoCall(snap, holderID)
	}
}

func (s *PlayState) scheduleBotCall(snap *models.RoomSnapshot, botID string) {
	key := moveKey(snap)
	if s.scheduledMove == key {
		return
	}
	s.scheduledMove = key

	code := snap.Code
	s.timers.Schedule(s.bots.ThinkingDelay(), func() {
		latest := s.Room.Snapshot()
		if latest == nil || latest.Phase != models.PhasePlay || moveKey(latest) != key {
			return
		}
		number, ok := s.bots.PickNumber(latest.Cards[botID])
		if !ok {
			return
		}
		if err := s.Room.Ops().CallNumber(code, botID, number); err != nil {
			logger.Log.Debugf("room %s bot %s call rejected: %v", code, botID, err)
		}
	})
}

func (s *PlayState) autoCall(snap *models.RoomSnapshot, holderID string) {
	number, ok := s.bots.PickNumber(snap.Cards[holderID])
	if !ok {
		return
	}
	if err := s.Room.Ops().CallNumber(snap.Code, holderID, number); err != nil {
		logger.Log.Debugf("room %s timeout call for %s rejected: %v", snap.Code, holderID, err)
	}
}

func moveKey(snap *models.RoomSnapshot) string {
	return fmt.Sprintf("%d:%d", snap.CurrentTurn, len(snap.MoveHistory))
}
