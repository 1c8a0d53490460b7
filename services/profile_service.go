// services/profile_service.go
package services

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/monitor"
	"github.com/wfunc/bingoserver/persistence"
)

var (
	ErrFriendNotFound = errors.New("friend code not found")
	ErrSelfFriend     = errors.New("cannot add yourself as a friend")
)

// friendCodeLength 好友码长度，与房间码用同一套字符表
const friendCodeLength = 6

// ProfileService 玩家档案服务：战绩结算、好友码、好友关系。
// store 为 nil 时所有操作都是空操作，服务端可以无库运行。
type ProfileService struct {
	store persistence.ProfileStore
}

func NewProfileService(store persistence.ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// DeriveFriendCode maps a user id onto a stable 6-char shareable code.
func DeriveFriendCode(userID string) string {
	h := fnv.New64a()
	h.Write([]byte(userID))
	v := h.Sum64()

	alphabet := game.CodeAlphabet()
	code := make([]byte, friendCodeLength)
	for i := range code {
		code[i] = alphabet[v%uint64(len(alphabet))]
		v /= uint64(len(alphabet))
	}
	return string(code)
}

func (s *ProfileService) enabled() bool {
	return s != nil && s.store != nil
}

// EnsureProfile creates the profile on first sight and refreshes the
// display name and avatar on every connection.
func (s *ProfileService) EnsureProfile(userID, name, avatar string) {
	if !s.enabled() || userID == "" {
		return
	}

	profile, err := s.store.LoadProfile(userID)
	if err == persistence.ErrRecordNotFound {
		profile = &models.PlayerProfile{
			UserID:     userID,
			FriendCode: DeriveFriendCode(userID),
		}
	} else if err != nil {
		logger.Log.Warnf("load profile %s: %v", userID, err)
		return
	}

	if name != "" {
		profile.Name = name
	}
	if avatar != "" {
		profile.Avatar = avatar
	}
	if err := s.store.SaveProfile(profile); err != nil {
		logger.Log.Warnf("save profile %s: %v", userID, err)
	}
}

// GetProfile returns the stored profile.
func (s *ProfileService) GetProfile(userID string) (*models.PlayerProfile, error) {
	if !s.enabled() {
		return nil, persistence.ErrRecordNotFound
	}
	return s.store.LoadProfile(userID)
}

// SettleGame 结算一局：真人玩家的场次、胜场、连胜和总完成线数入库，
// 并保存一份对局存档。机器人不留档案。
func (s *ProfileService) SettleGame(snap *models.RoomSnapshot) {
	monitor.GameFinished()
	if !s.enabled() || snap == nil {
		return
	}

	positions := make(map[string]int, len(snap.Players))
	for id := range snap.Players {
		positions[id] = -1
	}
	for _, entry := range snap.Rankings {
		for _, id := range entry.PlayerIDs {
			positions[id] = entry.Position
		}
	}

	record := models.GameRecord{
		RoomCode:  snap.Code,
		Moves:     len(snap.MoveHistory),
		CreatedAt: time.Now(),
	}
	if n := len(snap.MoveHistory); n > 1 {
		first := snap.MoveHistory[0].Timestamp
		last := snap.MoveHistory[n-1].Timestamp
		record.Duration = int((last - first) / 1000)
	}

	for _, id := range snap.PlayerOrder() {
		p := snap.Players[id]
		sequences := 0
		if card, ok := snap.Cards[id]; ok {
			sequences = game.Evaluate(card.Marked).Count
		}

		record.Players = append(record.Players, models.PlayerResult{
			UserID:    id,
			Name:      p.Name,
			IsBot:     p.IsBot,
			Position:  positions[id],
			Sequences: sequences,
		})

		if p.IsBot {
			continue
		}
		s.settlePlayer(id, p, positions[id] == 0, sequences)
	}

	if err := s.store.SaveGameRecord(&record); err != nil {
		logger.Log.Warnf("save game record %s: %v", snap.Code, err)
	}
}

func (s *ProfileService) settlePlayer(userID string, p *models.Player, won bool, sequences int) {
	profile, err := s.store.LoadProfile(userID)
	if err == persistence.ErrRecordNotFound {
		profile = &models.PlayerProfile{
			UserID:     userID,
			Name:       p.Name,
			Avatar:     p.Avatar,
			FriendCode: DeriveFriendCode(userID),
		}
	} else if err != nil {
		logger.Log.Warnf("settle %s: %v", userID, err)
		return
	}

	profile.GamesPlayed++
	profile.TotalSequences += sequences
	if won {
		profile.GamesWon++
		profile.WinStreak++
		if profile.WinStreak > profile.BestStreak {
			profile.BestStreak = profile.WinStreak
		}
	} else {
		profile.WinStreak = 0
	}

	if err := s.store.SaveProfile(profile); err != nil {
		logger.Log.Warnf("settle %s: %v", userID, err)
	}
}

// AddFriendByCode links two players both ways given the friend's code.
func (s *ProfileService) AddFriendByCode(userID, friendCode string) (*models.FriendInfo, error) {
	if !s.enabled() {
		return nil, fmt.Errorf("profile store disabled")
	}

	friend, err := s.store.LoadProfileByFriendCode(friendCode)
	if err == persistence.ErrRecordNotFound {
		return nil, ErrFriendNotFound
	}
	if err != nil {
		return nil, err
	}
	if friend.UserID == userID {
		return nil, ErrSelfFriend
	}

	if err := s.store.AddFriendship(userID, friend.UserID); err != nil {
		return nil, err
	}
	return &models.FriendInfo{
		UserID:     friend.UserID,
		Name:       friend.Name,
		Avatar:     friend.Avatar,
		FriendCode: friend.FriendCode,
	}, nil
}

// RemoveFriend unlinks both directions.
func (s *ProfileService) RemoveFriend(userID, friendID string) error {
	if !s.enabled() {
		return nil
	}
	return s.store.RemoveFriendship(userID, friendID)
}

// ListFriends resolves a player's friends into display entries.
func (s *ProfileService) ListFriends(userID string) ([]models.FriendInfo, error) {
	if !s.enabled() {
		return nil, nil
	}

	ids, err := s.store.ListFriendIDs(userID)
	if err != nil {
		return nil, err
	}

	var friends []models.FriendInfo
	for _, id := range ids {
		profile, err := s.store.LoadProfile(id)
		if err != nil {
			continue
		}
		friends = append(friends, models.FriendInfo{
			UserID:     profile.UserID,
			Name:       profile.Name,
			Avatar:     profile.Avatar,
			FriendCode: profile.FriendCode,
		})
	}
	return friends, nil
}

// FriendIDSet returns the friend ids as a lookup set.
func (s *ProfileService) FriendIDSet(userID string) (map[string]bool, error) {
	if !s.enabled() {
		return nil, nil
	}

	ids, err := s.store.ListFriendIDs(userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
