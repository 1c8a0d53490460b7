// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/bingoserver/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
}

// RoomBroadcaster 按房间码把消息推给所有会话。会话与房间的关联由
// session.Manager 维护，房间本身不感知连接。
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoom(code) {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由读循环负责清理
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	for _, playerID := range playerIDs {
		for _, s := range b.sessionManager.GetByPlayerID(playerID) {
			if err := s.Send(msgID, data); err != nil {
				continue
			}
		}
	}
	return nil
}
