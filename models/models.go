// models/models.go
package models

import (
	"sort"
)

// 5x5 格子，编号 1..25
const (
	GridSize   = 5
	TotalCells = GridSize * GridSize
)

// Phase 表示房间当前所处的游戏阶段
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseSetup    Phase = "setup"
	PhasePlay     Phase = "play"
	PhaseGameOver Phase = "gameover"
)

// Player 房间中的一个座位（真人或机器人）
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Index  int    `json:"index"` // seat number, assigned at join, immutable
	IsBot  bool   `json:"is_bot"`
	Online bool   `json:"online"` // flipped false by presence on disconnect
}

// CardState is a player's personal 5x5 card plus its marked overlay.
// Grid cells hold 0 while empty; a full grid is a permutation of 1..25.
type CardState struct {
	Grid            []int  `json:"grid"`
	Marked          []bool `json:"marked"`
	NextManualValue int    `json:"next_manual_value"`
	Ready           bool   `json:"ready"`
}

// NewCardState returns an empty, unfilled card.
func NewCardState() *CardState {
	return &CardState{
		Grid:            make([]int, TotalCells),
		Marked:          make([]bool, TotalCells),
		NextManualValue: 1,
	}
}

// Clone returns a deep copy of the card.
func (c *CardState) Clone() *CardState {
	out := &CardState{
		Grid:            make([]int, len(c.Grid)),
		Marked:          make([]bool, len(c.Marked)),
		NextManualValue: c.NextManualValue,
		Ready:           c.Ready,
	}
	copy(out.Grid, c.Grid)
	copy(out.Marked, c.Marked)
	return out
}

// RankingEntry 一个名次；同一次叫号同时完成的玩家共享一个名次
type RankingEntry struct {
	PlayerIDs []string `json:"player_ids"`
	Position  int      `json:"position"` // 0 = first place
}

// MoveRecord 叫号历史中的一条记录，仅用于展示
type MoveRecord struct {
	PlayerID  string `json:"player_id"`
	Number    int    `json:"number"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// RoomSettings 房间设置，随房间文档一起保存
type RoomSettings struct {
	MaxPlayers     int `json:"max_players"`
	MinPlayers     int `json:"min_players"`
	LobbyCountdown int `json:"lobby_countdown"` // seconds
	SetupTime      int `json:"setup_time"`      // seconds
	TurnTime       int `json:"turn_time"`       // seconds
}

// DefaultSettings matches the room document the original game creates.
func DefaultSettings() RoomSettings {
	return RoomSettings{
		MaxPlayers:     4,
		MinPlayers:     2,
		LobbyCountdown: 60,
		SetupTime:      45,
		TurnTime:       30,
	}
}

// RoomSnapshot is the full shared room document. Every derived value
// (whose turn it is, who finished, what to display) is a function of one
// snapshot; nothing is accumulated across snapshots.
type RoomSnapshot struct {
	Code      string       `json:"code"`
	HostID    string       `json:"host_id"`
	Phase     Phase        `json:"phase"`
	CreatedAt int64        `json:"created_at"`
	Settings  RoomSettings `json:"settings"`

	Players map[string]*Player    `json:"players"`
	Cards   map[string]*CardState `json:"cards,omitempty"`

	// Turn state, meaningful only during PhasePlay. CurrentTurn indexes
	// the seat order, TurnDirection is +1 or -1 (snake draft).
	CurrentTurn   int `json:"current_turn"`
	TurnDirection int `json:"turn_direction"`

	FinishedPlayers  map[string]bool `json:"finished_players,omitempty"`
	Rankings         []RankingEntry  `json:"rankings,omitempty"`
	MoveHistory      []MoveRecord    `json:"move_history,omitempty"`
	LastCalledNumber int             `json:"last_called_number"` // 0 = none yet

	// Wall-clock deadline anchors (unix ms). Absolute timestamps so every
	// observer computes the same remaining time. 0 means not armed.
	LobbyDeadline int64 `json:"lobby_deadline"`
	SetupDeadline int64 `json:"setup_deadline"`
	TurnDeadline  int64 `json:"turn_deadline"`

	// Version increments on every committed update.
	Version uint64 `json:"version"`
}

// PlayerOrder returns the seated player ids sorted by seat index.
func (r *RoomSnapshot) PlayerOrder() []string {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.Players[ids[i]].Index < r.Players[ids[j]].Index
	})
	return ids
}

// ActivePlayers returns seated ids that have not finished, in seat order.
func (r *RoomSnapshot) ActivePlayers() []string {
	var ids []string
	for _, id := range r.PlayerOrder() {
		if !r.FinishedPlayers[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy of the snapshot.
func (r *RoomSnapshot) Clone() *RoomSnapshot {
	out := *r
	out.Players = make(map[string]*Player, len(r.Players))
	for id, p := range r.Players {
		cp := *p
		out.Players[id] = &cp
	}
	if r.Cards != nil {
		out.Cards = make(map[string]*CardState, len(r.Cards))
		for id, c := range r.Cards {
			out.Cards[id] = c.Clone()
		}
	}
	if r.FinishedPlayers != nil {
		out.FinishedPlayers = make(map[string]bool, len(r.FinishedPlayers))
		for id, v := range r.FinishedPlayers {
			out.FinishedPlayers[id] = v
		}
	}
	if r.Rankings != nil {
		out.Rankings = make([]RankingEntry, len(r.Rankings))
		for i, e := range r.Rankings {
			ids := make([]string, len(e.PlayerIDs))
			copy(ids, e.PlayerIDs)
			out.Rankings[i] = RankingEntry{PlayerIDs: ids, Position: e.Position}
		}
	}
	if r.MoveHistory != nil {
		out.MoveHistory = make([]MoveRecord, len(r.MoveHistory))
		copy(out.MoveHistory, r.MoveHistory)
	}
	return &out
}
