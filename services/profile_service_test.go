package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/persistence"
)

// memStore is an in-memory ProfileStore for tests.
type memStore struct {
	profiles map[string]*models.PlayerProfile
	byCode   map[string]string
	records  []*models.GameRecord
	friends  map[string]map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]*models.PlayerProfile),
		byCode:   make(map[string]string),
		friends:  make(map[string]map[string]bool),
	}
}

func (m *memStore) SaveProfile(profile *models.PlayerProfile) error {
	cp := *profile
	m.profiles[profile.UserID] = &cp
	m.byCode[profile.FriendCode] = profile.UserID
	return nil
}

func (m *memStore) LoadProfile(userID string) (*models.PlayerProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) LoadProfileByFriendCode(friendCode string) (*models.PlayerProfile, error) {
	id, ok := m.byCode[friendCode]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	return m.LoadProfile(id)
}

func (m *memStore) SaveGameRecord(record *models.GameRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *memStore) AddFriendship(userID, friendID string) error {
	for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
		if m.friends[pair[0]] == nil {
			m.friends[pair[0]] = make(map[string]bool)
		}
		m.friends[pair[0]][pair[1]] = true
	}
	return nil
}

func (m *memStore) RemoveFriendship(userID, friendID string) error {
	delete(m.friends[userID], friendID)
	delete(m.friends[friendID], userID)
	return nil
}

func (m *memStore) ListFriendIDs(userID string) ([]string, error) {
	var ids []string
	for id := range m.friends[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) Close() error { return nil }

func TestDeriveFriendCode(t *testing.T) {
	a := DeriveFriendCode("user-a")
	b := DeriveFriendCode("user-b")

	assert.Len(t, a, friendCodeLength)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, DeriveFriendCode("user-a"), "codes are stable")
	for i := 0; i < len(a); i++ {
		assert.Contains(t, game.CodeAlphabet(), string(a[i]))
	}
}

func TestEnsureProfile(t *testing.T) {
	store := newMemStore()
	s := NewProfileService(store)

	s.EnsureProfile("u1", "Ada", "🦉")
	profile, err := s.GetProfile("u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	assert.NotEmpty(t, profile.FriendCode)

	// Reconnecting with a new name keeps the stats row.
	s.EnsureProfile("u1", "Ada L.", "")
	profile, err = s.GetProfile("u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", profile.Name)
	assert.Equal(t, "🦉", profile.Avatar)
}

func settledSnap() *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Code:  "ABCDE",
		Phase: models.PhaseGameOver,
		Players: map[string]*models.Player{
			"winner": {ID: "winner", Name: "W", Index: 0},
			"loser":  {ID: "loser", Name: "L", Index: 1},
			"bot_1":  {ID: "bot_1", Name: "Bot Alpha", Index: 2, IsBot: true},
		},
		Cards: map[string]*models.CardState{},
		Rankings: []models.RankingEntry{
			{PlayerIDs: []string{"winner"}, Position: 0},
			{PlayerIDs: []string{"bot_1"}, Position: 1},
			{PlayerIDs: []string{"loser"}, Position: 2},
		},
		MoveHistory: []models.MoveRecord{
			{PlayerID: "winner", Number: 1, Timestamp: 1000},
			{PlayerID: "loser", Number: 2, Timestamp: 31000},
		},
	}
	for id := range snap.Players {
		snap.Cards[id] = models.NewCardState()
	}
	return snap
}

func TestSettleGame(t *testing.T) {
	store := newMemStore()
	s := NewProfileService(store)
	s.EnsureProfile("winner", "W", "")
	s.EnsureProfile("loser", "L", "")

	s.SettleGame(settledSnap())

	winner, err := s.GetProfile("winner")
	require.NoError(t, err)
	assert.Equal(t, 1, winner.GamesPlayed)
	assert.Equal(t, 1, winner.GamesWon)
	assert.Equal(t, 1, winner.WinStreak)
	assert.Equal(t, 1, winner.BestStreak)

	loser, err := s.GetProfile("loser")
	require.NoError(t, err)
	assert.Equal(t, 1, loser.GamesPlayed)
	assert.Zero(t, loser.GamesWon)

	_, err = s.GetProfile("bot_1")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound, "bots keep no profile")

	require.Len(t, store.records, 1)
	assert.Equal(t, "ABCDE", store.records[0].RoomCode)
	assert.Equal(t, 2, store.records[0].Moves)
	assert.Equal(t, 30, store.records[0].Duration)
}

func TestSettleGame_StreakReset(t *testing.T) {
	store := newMemStore()
	s := NewProfileService(store)
	s.EnsureProfile("winner", "W", "")
	s.EnsureProfile("loser", "L", "")

	s.SettleGame(settledSnap())
	s.SettleGame(settledSnap())

	winner, _ := s.GetProfile("winner")
	assert.Equal(t, 2, winner.WinStreak)
	assert.Equal(t, 2, winner.BestStreak)

	// The winner loses the next round.
	snap := settledSnap()
	snap.Rankings = []models.RankingEntry{
		{PlayerIDs: []string{"loser"}, Position: 0},
		{PlayerIDs: []string{"winner"}, Position: 1},
	}
	s.SettleGame(snap)

	winner, _ = s.GetProfile("winner")
	assert.Zero(t, winner.WinStreak)
	assert.Equal(t, 2, winner.BestStreak, "best streak survives a loss")
}

func TestFriends(t *testing.T) {
	store := newMemStore()
	s := NewProfileService(store)
	s.EnsureProfile("u1", "Ada", "")
	s.EnsureProfile("u2", "Bix", "")

	u2, err := s.GetProfile("u2")
	require.NoError(t, err)

	_, err = s.AddFriendByCode("u1", "ZZZZZZ")
	assert.ErrorIs(t, err, ErrFriendNotFound)

	u1, _ := s.GetProfile("u1")
	_, err = s.AddFriendByCode("u1", u1.FriendCode)
	assert.ErrorIs(t, err, ErrSelfFriend)

	info, err := s.AddFriendByCode("u1", u2.FriendCode)
	require.NoError(t, err)
	assert.Equal(t, "u2", info.UserID)

	friends, err := s.ListFriends("u2")
	require.NoError(t, err)
	require.Len(t, friends, 1, "friendship is mutual")
	assert.Equal(t, "u1", friends[0].UserID)

	require.NoError(t, s.RemoveFriend("u1", "u2"))
	friends, err = s.ListFriends("u1")
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestSettleGame_DisabledStore(t *testing.T) {
	var s *ProfileService
	// Must not panic without a backing store.
	s.SettleGame(settledSnap())
	NewProfileService(nil).SettleGame(settledSnap())
}
