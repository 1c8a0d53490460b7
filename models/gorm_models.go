// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormProfile 玩家档案模型
type GormProfile struct {
	gorm.Model
	UserID         string `gorm:"uniqueIndex;not null"`
	Name           string `gorm:"not null"`
	Avatar         string `gorm:"default:''"`
	FriendCode     string `gorm:"uniqueIndex;not null"`
	GamesPlayed    int    `gorm:"default:0"`
	GamesWon       int    `gorm:"default:0"`
	WinStreak      int    `gorm:"default:0"`
	BestStreak     int    `gorm:"default:0"`
	TotalSequences int    `gorm:"default:0"`
	Online         bool   `gorm:"default:false"`
}

// GormGameRecord 对局存档模型
type GormGameRecord struct {
	gorm.Model
	RoomCode string                 `gorm:"index;not null"`
	Players  map[string]interface{} `gorm:"type:jsonb;not null"`
	Moves    int                    `gorm:"default:0"`
	Duration int                    `gorm:"default:0"` // 对局时长(秒)
}

// GormFriendship 双向好友关系，每个方向一行
type GormFriendship struct {
	gorm.Model
	UserID   string `gorm:"index:idx_friend_pair,unique;not null"`
	FriendID string `gorm:"index:idx_friend_pair,unique;not null"`
}
