// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/bingoserver/models"
)

// ProfileStore 档案存储接口：玩家档案、对局存档、好友关系
type ProfileStore interface {
	SaveProfile(profile *models.PlayerProfile) error
	LoadProfile(userID string) (*models.PlayerProfile, error)
	LoadProfileByFriendCode(friendCode string) (*models.PlayerProfile, error)
	SaveGameRecord(record *models.GameRecord) error
	AddFriendship(userID, friendID string) error
	RemoveFriendship(userID, friendID string) error
	ListFriendIDs(userID string) ([]string, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
