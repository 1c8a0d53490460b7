// room/room.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/bot"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/state"
	"github.com/wfunc/bingoserver/timer"
)

// Room 是一个活跃房间的驱动器：订阅共享房间文档，把最新快照喂给
// 阶段状态机，以 10fps 驱动 OnUpdate。房间文档本身只存在于 store；
// 这里只保留最近观察到的一份副本。
type Room struct {
	Code      string
	CreatedAt time.Time

	store       Store
	broadcaster Broadcaster
	bots        *bot.Controller
	timers      *timer.Manager
	settler     state.Settler

	StateMachine state.StateMachine

	snapMutex sync.RWMutex
	snap      *models.RoomSnapshot

	ticker    *time.Ticker
	closeChan chan bool
	closeOnce sync.Once
	unsub     func()
}

// NewRoom attaches a driver to an existing room document and starts its
// loop. broadcaster and settler may be nil.
func NewRoom(code string, st Store, broadcaster Broadcaster, bots *bot.Controller, timers *timer.Manager, settler state.Settler) (*Room, error) {
	room := &Room{
		Code:        code,
		CreatedAt:   time.Now(),
		store:       st,
		broadcaster: broadcaster,
		bots:        bots,
		timers:      timers,
		settler:     settler,
		closeChan:   make(chan bool),
	}

	// 初始化状态机，将房间自身(room)作为上下文传入。
	// 订阅在状态机之前建立：首次投递会同步带来当前快照。
	unsub, err := st.Subscribe(code, room.onSnapshot)
	if err != nil {
		return nil, err
	}
	room.unsub = unsub

	phase := models.PhaseLobby
	if snap := room.Snapshot(); snap != nil {
		phase = snap.Phase
	}
	room.StateMachine = state.NewBaseStateMachine(room.stateFor(phase))

	// 启动房间心跳
	room.ticker = time.NewTicker(100 * time.Millisecond) // 10 FPS
	go room.loop()

	return room, nil
}

// --- 实现 state.RoomContext 接口 ---

func (r *Room) GetCode() string {
	return r.Code
}

// Snapshot returns the latest observed room document, nil after deletion.
func (r *Room) Snapshot() *models.RoomSnapshot {
	r.snapMutex.RLock()
	defer r.snapMutex.RUnlock()
	return r.snap
}

func (r *Room) Ops() state.Ops {
	return r.store
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// --- 房间核心逻辑 ---

// onSnapshot receives every committed version of the room document.
func (r *Room) onSnapshot(snap *models.RoomSnapshot) {
	r.snapMutex.Lock()
	r.snap = snap
	r.snapMutex.Unlock()

	if snap == nil {
		// 文档被删除，房间随之关闭
		r.Close()
		return
	}

	if r.broadcaster != nil {
		if data, err := json.Marshal(snap); err == nil {
			r.broadcaster.BroadcastToRoom(r.Code, network.MsgRoomState, data)
		}
	}
}

func (r *Room) stateFor(phase models.Phase) state.State {
	switch phase {
	case models.PhaseSetup:
		return state.NewSetupState(r, r.bots)
	case models.PhasePlay:
		return state.NewPlayState(r, r.bots, r.timers)
	case models.PhaseGameOver:
		return state.NewGameOverState(r, r.settler)
	default:
		return state.NewLobbyState(r)
	}
}

// loop 是房间的主循环，定时驱动状态更新
func (r *Room) loop() {
	for {
		select {
		case <-r.ticker.C:
			r.Update()
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Update 由主循环调用：先让状态机跟上文档的阶段，再驱动当前状态
func (r *Room) Update() {
	snap := r.Snapshot()
	if snap == nil || r.StateMachine == nil {
		return
	}

	current := r.StateMachine.GetCurrentState()
	if current == nil {
		return
	}
	if current.GetID() != snap.Phase {
		if err := r.ChangeState(r.stateFor(snap.Phase)); err != nil {
			logger.Log.Warnf("room %s state change %s -> %s failed: %v", r.Code, current.GetID(), snap.Phase, err)
			return
		}
		current = r.StateMachine.GetCurrentState()
	}
	current.OnUpdate()
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		if r.unsub != nil {
			r.unsub()
		}
		close(r.closeChan)
	})
}

// --- 房间管理器 ---

// Manager 管理所有活跃房间的驱动器
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex

	store       Store
	broadcaster Broadcaster
	bots        *bot.Controller
	timers      *timer.Manager
	settler     state.Settler
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(st Store, broadcaster Broadcaster, bots *bot.Controller, timers *timer.Manager, settler state.Settler) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		store:       st,
		broadcaster: broadcaster,
		bots:        bots,
		timers:      timers,
		settler:     settler,
	}
}

// Attach starts driving the given room document, once per code.
func (m *Manager) Attach(code string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		return room, nil
	}

	room, err := NewRoom(code, m.store, m.broadcaster, m.bots, m.timers, m.settler)
	if err != nil {
		return nil, err
	}
	m.rooms[code] = room
	return room, nil
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		room.Close()
		delete(m.rooms, code)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

// Count returns the number of attached rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll detaches every room, for shutdown.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for code, room := range m.rooms {
		room.Close()
		delete(m.rooms, code)
	}
}
