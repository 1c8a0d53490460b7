// store/store.go
package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
)

// Store 是共享房间文档的权威存放处。对同一个房间的所有更新经过同一把锁，
// 因此每个房间的提交是线性化的：一次 Update 要么完整生效要么完全不生效。
// Subscribers receive full snapshots, never deltas.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry

	rngMu sync.Mutex
	rng   *rand.Rand

	// now is swapped out by tests that need a fixed clock.
	now func() time.Time

	// settings applied to newly created rooms.
	settings models.RoomSettings
}

type roomEntry struct {
	mu      sync.Mutex
	snap    *models.RoomSnapshot
	subs    map[int]func(*models.RoomSnapshot)
	nextSub int
}

// NewStore creates an empty room store.
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string]*roomEntry),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		settings: models.DefaultSettings(),
	}
}

// SetDefaultSettings overrides the settings stamped onto new rooms.
func (s *Store) SetDefaultSettings(settings models.RoomSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *Store) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Store) generateCode() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return game.GenerateCode(s.rng)
}

// CreateRoom creates a room hosted by the given player and returns its
// code. Code collisions trigger silent regeneration.
func (s *Store) CreateRoom(host *models.Player) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		code = s.generateCode()
		if _, exists := s.rooms[code]; !exists {
			break
		}
	}

	seat := *host
	seat.Index = 0
	seat.Online = true

	snap := &models.RoomSnapshot{
		Code:      code,
		HostID:    host.ID,
		Phase:     models.PhaseLobby,
		CreatedAt: s.now().UnixMilli(),
		Settings:  s.settings,
		Players:   map[string]*models.Player{host.ID: &seat},
	}
	s.rooms[code] = &roomEntry{
		snap: snap,
		subs: make(map[int]func(*models.RoomSnapshot)),
	}
	return code, nil
}

// JoinRoom seats a player in a lobby-phase room and returns the updated
// snapshot.
func (s *Store) JoinRoom(code string, player *models.Player) (*models.RoomSnapshot, error) {
	return s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.Phase != models.PhaseLobby {
			return game.ErrGameInProgress
		}
		if len(snap.Players) >= snap.Settings.MaxPlayers {
			return game.ErrRoomFull
		}
		seat := *player
		seat.Index = len(snap.Players)
		seat.Online = true
		snap.Players[player.ID] = &seat
		return nil
	})
}

// Bot identities, assigned by seat order of arrival.
var (
	botNames   = []string{"Bot Alpha", "Bot Beta", "Bot Gamma"}
	botAvatars = []string{"🤖", "🧠", "👾"}
)

// AddBot seats an automated player and returns its id. Bots occupy seats
// exactly like humans do.
func (s *Store) AddBot(code string) (string, error) {
	var botID string
	_, err := s.Update(code, func(snap *models.RoomSnapshot) error {
		if snap.Phase != models.PhaseLobby {
			return game.ErrGameInProgress
		}
		if len(snap.Players) >= snap.Settings.MaxPlayers {
			return game.ErrRoomFull
		}
		botCount := 0
		for _, p := range snap.Players {
			if p.IsBot {
				botCount++
			}
		}
		name := "Bot"
		avatar := "🤖"
		if botCount < len(botNames) {
			name = botNames[botCount]
			avatar = botAvatars[botCount]
		}
		botID = newBotID()
		snap.Players[botID] = &models.Player{
			ID:     botID,
			Name:   name,
			Avatar: avatar,
			Index:  len(snap.Players),
			IsBot:  true,
			Online: true,
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return botID, nil
}

// LeaveRoom removes a player. The room is deleted once the last player
// leaves; remaining subscribers are told with a nil snapshot.
func (s *Store) LeaveRoom(code, playerID string) error {
	s.mu.Lock()
	entry, ok := s.rooms[code]
	if !ok {
		s.mu.Unlock()
		return game.ErrRoomNotFound
	}

	entry.mu.Lock()
	delete(entry.snap.Players, playerID)
	delete(entry.snap.Cards, playerID)
	if entry.snap.Phase == models.PhaseLobby {
		// Seat indices stay a contiguous range while the lobby is open.
		for i, id := range entry.snap.PlayerOrder() {
			entry.snap.Players[id].Index = i
		}
	}
	empty := len(entry.snap.Players) == 0
	if empty {
		delete(s.rooms, code)
	}
	s.mu.Unlock()

	var out *models.RoomSnapshot
	if !empty {
		entry.snap.Version++
		out = entry.snap
	}
	subs := subscriberList(entry)
	entry.mu.Unlock()

	notify(subs, out)
	return nil
}

// Get returns an isolated copy of the room snapshot.
func (s *Store) Get(code string) (*models.RoomSnapshot, error) {
	s.mu.RLock()
	entry, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.snap.Clone(), nil
}

// Update applies fn to the room document as one atomic commit. fn runs
// against a private copy; returning an error discards every change. On
// success the version bumps and all subscribers get the new snapshot.
func (s *Store) Update(code string, fn func(*models.RoomSnapshot) error) (*models.RoomSnapshot, error) {
	s.mu.RLock()
	entry, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok {
		return nil, game.ErrRoomNotFound
	}

	entry.mu.Lock()
	next := entry.snap.Clone()
	if err := fn(next); err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	next.Version = entry.snap.Version + 1
	entry.snap = next
	subs := subscriberList(entry)
	entry.mu.Unlock()

	notify(subs, next)
	return next.Clone(), nil
}

// Subscribe registers fn for every committed snapshot of the room and
// delivers the current one immediately. The returned function cancels
// the subscription.
func (s *Store) Subscribe(code string, fn func(*models.RoomSnapshot)) (func(), error) {
	s.mu.RLock()
	entry, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok {
		return nil, game.ErrRoomNotFound
	}

	entry.mu.Lock()
	id := entry.nextSub
	entry.nextSub++
	entry.subs[id] = fn
	current := entry.snap.Clone()
	entry.mu.Unlock()

	fn(current)

	return func() {
		entry.mu.Lock()
		delete(entry.subs, id)
		entry.mu.Unlock()
	}, nil
}

// SetPresence flips a player's online flag. Players are never removed on
// disconnect; mid-game seat indices must not reshuffle.
func (s *Store) SetPresence(code, playerID string, online bool) {
	s.Update(code, func(snap *models.RoomSnapshot) error { //nolint:errcheck
		p, ok := snap.Players[playerID]
		if !ok {
			return game.ErrPlayerNotInRoom
		}
		p.Online = online
		return nil
	})
}

// DeleteRoom drops the room outright and tells subscribers.
func (s *Store) DeleteRoom(code string) {
	s.mu.Lock()
	entry, ok := s.rooms[code]
	if ok {
		delete(s.rooms, code)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	subs := subscriberList(entry)
	entry.mu.Unlock()
	notify(subs, nil)
}

// RoomCount returns the number of live rooms (for metrics).
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// OpenLobbies lists joinable lobby-phase rooms hosted by any of the given
// ids, most recent first.
func (s *Store) OpenLobbies(hostIDs map[string]bool) []models.LobbyInfo {
	s.mu.RLock()
	entries := make([]*roomEntry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var lobbies []models.LobbyInfo
	for _, e := range entries {
		e.mu.Lock()
		snap := e.snap
		if snap.Phase == models.PhaseLobby &&
			hostIDs[snap.HostID] &&
			len(snap.Players) < snap.Settings.MaxPlayers {
			host := snap.Players[snap.HostID]
			info := models.LobbyInfo{
				Code:        snap.Code,
				HostID:      snap.HostID,
				PlayerCount: len(snap.Players),
				MaxPlayers:  snap.Settings.MaxPlayers,
				CreatedAt:   snap.CreatedAt,
			}
			if host != nil {
				info.HostName = host.Name
				info.HostAvatar = host.Avatar
			}
			lobbies = append(lobbies, info)
		}
		e.mu.Unlock()
	}
	sortLobbies(lobbies)
	return lobbies
}

func subscriberList(entry *roomEntry) []func(*models.RoomSnapshot) {
	subs := make([]func(*models.RoomSnapshot), 0, len(entry.subs))
	for _, fn := range entry.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(*models.RoomSnapshot), snap *models.RoomSnapshot) {
	for _, fn := range subs {
		if snap != nil {
			fn(snap.Clone())
		} else {
			fn(nil)
		}
	}
}
