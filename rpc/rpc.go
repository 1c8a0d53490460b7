package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/services"
	"github.com/wfunc/bingoserver/store"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyService 对外暴露档案与好友大厅查询，给运营工具和网关用。
type LobbyService struct {
	profiles  *services.ProfileService
	roomStore *store.Store
}

// NewLobbyService creates the RPC-facing query service.
func NewLobbyService(profiles *services.ProfileService, roomStore *store.Store) *LobbyService {
	return &LobbyService{profiles: profiles, roomStore: roomStore}
}

type ProfileArgs struct {
	UserID string
}

type ProfileReply struct {
	Profile *models.PlayerProfile
}

// GetProfile returns a player's stored profile and stats.
func (ls *LobbyService) GetProfile(args *ProfileArgs, reply *ProfileReply) error {
	profile, err := ls.profiles.GetProfile(args.UserID)
	if err != nil {
		return err
	}
	reply.Profile = profile
	return nil
}

type FriendLobbiesArgs struct {
	UserID string
}

type FriendLobbiesReply struct {
	Lobbies []models.LobbyInfo
}

// GetFriendLobbies lists joinable rooms hosted by the player's friends.
func (ls *LobbyService) GetFriendLobbies(args *FriendLobbiesArgs, reply *FriendLobbiesReply) error {
	friendSet, err := ls.profiles.FriendIDSet(args.UserID)
	if err != nil {
		return err
	}
	reply.Lobbies = ls.roomStore.OpenLobbies(friendSet)
	return nil
}

type FriendsArgs struct {
	UserID string
}

type FriendsReply struct {
	Friends []models.FriendInfo
}

// GetFriends lists the player's friends.
func (ls *LobbyService) GetFriends(args *FriendsArgs, reply *FriendsReply) error {
	friends, err := ls.profiles.ListFriends(args.UserID)
	if err != nil {
		return err
	}
	reply.Friends = friends
	return nil
}
