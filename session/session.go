// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/bingoserver/network"
)

// Session 一条客户端连接。PlayerID 在认证后填入；RoomCode 在加入房间后
// 填入，断线时据此标记离线。
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   string
	Name       string
	Avatar     string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// SetRoom records which room document the session follows.
func (s *Session) SetRoom(code string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RoomCode = code
}

func (s *Session) GetRoom() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.RoomCode
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) SendJSON(msgID uint16, v interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.SendJSON(msgID, v)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByRoom returns every session currently following the given room.
func (m *Manager) GetByRoom(code string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetRoom() == code {
			result = append(result, session)
		}
	}
	return result
}

// GetByPlayerID returns the sessions authenticated as the given player.
func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.PlayerID == playerID {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
