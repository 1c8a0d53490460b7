package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/bingoserver/bot"
	"github.com/wfunc/bingoserver/broadcast"
	"github.com/wfunc/bingoserver/config"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/monitor"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/room"
	bingoserver_rpc "github.com/wfunc/bingoserver/rpc"
	"github.com/wfunc/bingoserver/services"
	"github.com/wfunc/bingoserver/session"
	"github.com/wfunc/bingoserver/store"
	"github.com/wfunc/bingoserver/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	store          *store.Store
	roomManager    *room.Manager
	sessionManager *session.Manager
	profileService *services.ProfileService
	broadcaster    broadcast.Broadcaster
	timers         *timer.Manager
	rpcServer      *bingoserver_rpc.Server
	mutex          sync.Mutex
	shutdownChan   chan struct{}
}

func NewGameServer(addr, rpcAddr string, profiles *services.ProfileService) *GameServer {
	s := &GameServer{
		addr:           addr,
		store:          store.NewStore(),
		sessionManager: session.NewManager(),
		profileService: profiles,
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器与房间驱动器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)
	s.roomManager = room.NewRoomManager(s.store, s.broadcaster, bot.NewController(), s.timers, profiles)

	// 初始化RPC服务器
	rpcServer, err := bingoserver_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	lobbyService := bingoserver_rpc.NewLobbyService(profiles, s.store)
	rpc.Register(lobbyService)

	return s
}

// ApplySettings overrides room defaults from configuration; zero values
// keep the built-in defaults.
func (s *GameServer) ApplySettings(g config.GameConfig) {
	settings := models.DefaultSettings()
	if g.MaxPlayers > 0 {
		settings.MaxPlayers = g.MaxPlayers
	}
	if g.MinPlayers > 0 {
		settings.MinPlayers = g.MinPlayers
	}
	if g.LobbyCountdown > 0 {
		settings.LobbyCountdown = g.LobbyCountdown
	}
	if g.SetupTime > 0 {
		settings.SetupTime = g.SetupTime
	}
	if g.TurnTime > 0 {
		settings.TurnTime = g.TurnTime
	}
	s.store.SetDefaultSettings(settings)
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	http.Handle("/metrics", monitor.Handler())
	logger.Log.Infof("Bingo server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.roomManager.CloseAll()
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	monitor.SessionOpened()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		monitor.SessionClosed()
		// 断线只标记离线，座位保留，可重连
		if code := sess.GetRoom(); code != "" && sess.PlayerID != "" {
			s.store.SetPresence(code, sess.PlayerID, false)
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgAddBot:
		s.handleAddBot(sess, packet)
	case network.MsgStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgRematch:
		s.handleRematch(sess, packet)
	case network.MsgSubmitGrid:
		s.handleSubmitGrid(sess, packet)
	case network.MsgPlaceCell:
		s.handlePlaceCell(sess, packet)
	case network.MsgRandomFill:
		s.handleRandomFill(sess, packet)
	case network.MsgCallNumber:
		s.handleCallNumber(sess, packet)
	case network.MsgAddFriend:
		s.handleAddFriend(sess, packet)
	case network.MsgDelFriend:
		s.handleDelFriend(sess, packet)
	case network.MsgFriends:
		s.handleFriends(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

type joinRequest struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type joinedResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type gridRequest struct {
	Grid []int `json:"grid"`
}

type callRequest struct {
	Number int `json:"number"`
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	sess.SendJSON(network.MsgError, map[string]string{"error": err.Error()})
}

// identify binds the session to a player identity, minting one for
// first-time connections.
func (s *GameServer) identify(sess *session.Session, req *joinRequest) {
	if sess.PlayerID == "" {
		if req.PlayerID != "" {
			sess.PlayerID = req.PlayerID
		} else {
			sess.PlayerID = uuid.New().String()
		}
	}
	if req.Name != "" {
		sess.Name = req.Name
	}
	if req.Avatar != "" {
		sess.Avatar = req.Avatar
	}
	if s.profileService != nil {
		s.profileService.EnsureProfile(sess.PlayerID, sess.Name, sess.Avatar)
	}
}

func sessionPlayer(sess *session.Session) *models.Player {
	name := sess.Name
	if name == "" {
		name = "Player"
	}
	return &models.Player{
		ID:     sess.PlayerID,
		Name:   name,
		Avatar: sess.Avatar,
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, err)
			return
		}
	}
	s.identify(sess, &req)

	code, err := s.store.CreateRoom(sessionPlayer(sess))
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetRoom(code)

	if _, err := s.roomManager.Attach(code); err != nil {
		s.sendError(sess, err)
		return
	}
	monitor.RoomOpened()

	logger.Log.Infof("Session %s created room %s", sess.GetID(), code)
	sess.SendJSON(network.MsgJoined, joinedResponse{Code: code, PlayerID: sess.PlayerID})
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	s.identify(sess, &req)

	// 重连：座位还在就只翻在线标记
	if snap, err := s.store.Get(req.Code); err == nil {
		if _, seated := snap.Players[sess.PlayerID]; seated {
			s.store.SetPresence(req.Code, sess.PlayerID, true)
			sess.SetRoom(req.Code)
			sess.SendJSON(network.MsgJoined, joinedResponse{Code: req.Code, PlayerID: sess.PlayerID})
			return
		}
	}

	if _, err := s.store.JoinRoom(req.Code, sessionPlayer(sess)); err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetRoom(req.Code)

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), req.Code)
	sess.SendJSON(network.MsgJoined, joinedResponse{Code: req.Code, PlayerID: sess.PlayerID})
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	if err := s.store.LeaveRoom(code, sess.PlayerID); err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetRoom("")

	// 最后一个人离开时房间文档已删，驱动器一并回收
	if _, err := s.store.Get(code); err != nil {
		s.roomManager.RemoveRoom(code)
		monitor.RoomClosed()
	}
}

func (s *GameServer) handleAddBot(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	if _, err := s.store.AddBot(code); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	if err := s.store.StartGame(code, sess.PlayerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleRematch(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	if err := s.store.Rematch(code, sess.PlayerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleSubmitGrid(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	var req gridRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	if err := s.store.SubmitGrid(code, sess.PlayerID, req.Grid); err != nil {
		s.sendError(sess, err)
	}
}

type placeCellRequest struct {
	Cell int `json:"cell"`
}

func (s *GameServer) handlePlaceCell(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	var req placeCellRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	if err := s.store.PlaceCell(code, sess.PlayerID, req.Cell); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleRandomFill(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	if err := s.store.RandomFillCard(code, sess.PlayerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleCallNumber(sess *session.Session, packet *network.Packet) {
	code := sess.GetRoom()
	if code == "" {
		return
	}
	var req callRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	start := time.Now()
	if err := s.store.CallNumber(code, sess.PlayerID, req.Number); err != nil {
		s.sendError(sess, err)
		return
	}
	monitor.CallProcessed(time.Since(start))
}

type friendRequest struct {
	FriendCode string `json:"friend_code"`
	FriendID   string `json:"friend_id"`
}

func (s *GameServer) handleAddFriend(sess *session.Session, packet *network.Packet) {
	if s.profileService == nil || sess.PlayerID == "" {
		return
	}
	var req friendRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	info, err := s.profileService.AddFriendByCode(sess.PlayerID, req.FriendCode)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SendJSON(network.MsgAddFriend, info)
}

func (s *GameServer) handleDelFriend(sess *session.Session, packet *network.Packet) {
	if s.profileService == nil || sess.PlayerID == "" {
		return
	}
	var req friendRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	if err := s.profileService.RemoveFriend(sess.PlayerID, req.FriendID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleFriends(sess *session.Session, packet *network.Packet) {
	if s.profileService == nil || sess.PlayerID == "" {
		return
	}
	friends, err := s.profileService.ListFriends(sess.PlayerID)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SendJSON(network.MsgFriends, friends)
}
