// models/profile.go
package models

import (
	"time"
)

// PlayerProfile 玩家档案与战绩，跨会话保存
type PlayerProfile struct {
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar"`
	FriendCode     string    `json:"friend_code"`
	GamesPlayed    int       `json:"games_played"`
	GamesWon       int       `json:"games_won"`
	WinStreak      int       `json:"win_streak"`
	BestStreak     int       `json:"best_streak"`
	TotalSequences int       `json:"total_sequences"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GameRecord 一局结束后的存档
type GameRecord struct {
	RoomCode  string         `json:"room_code"`
	Players   []PlayerResult `json:"players"`
	Moves     int            `json:"moves"`
	Duration  int            `json:"duration"` // seconds
	CreatedAt time.Time      `json:"created_at"`
}

// PlayerResult 单个玩家在一局中的结果
type PlayerResult struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	IsBot     bool   `json:"is_bot"`
	Position  int    `json:"position"` // 0 = winner; ties share a position
	Sequences int    `json:"sequences"`
}

// FriendInfo 好友列表中的一项
type FriendInfo struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	FriendCode string `json:"friend_code"`
	Online     bool   `json:"online"`
}

// LobbyInfo 好友开的可加入房间
type LobbyInfo struct {
	Code        string `json:"code"`
	HostID      string `json:"host_id"`
	HostName    string `json:"host_name"`
	HostAvatar  string `json:"host_avatar"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	CreatedAt   int64  `json:"created_at"`
}
