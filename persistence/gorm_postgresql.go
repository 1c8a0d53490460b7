// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/bingoserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormProfile{},
		&models.GormGameRecord{},
		&models.GormFriendship{},
	)
}

func fromGorm(row *models.GormProfile) *models.PlayerProfile {
	return &models.PlayerProfile{
		UserID:         row.UserID,
		Name:           row.Name,
		Avatar:         row.Avatar,
		FriendCode:     row.FriendCode,
		GamesPlayed:    row.GamesPlayed,
		GamesWon:       row.GamesWon,
		WinStreak:      row.WinStreak,
		BestStreak:     row.BestStreak,
		TotalSequences: row.TotalSequences,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// SaveProfile 保存玩家档案，按 user_id UPSERT
func (p *GormPostgreSQL) SaveProfile(profile *models.PlayerProfile) error {
	var row models.GormProfile
	result := p.db.Where("user_id = ?", profile.UserID).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormProfile{
			UserID:     profile.UserID,
			FriendCode: profile.FriendCode,
		}
	} else if result.Error != nil {
		return result.Error
	}

	row.Name = profile.Name
	row.Avatar = profile.Avatar
	row.GamesPlayed = profile.GamesPlayed
	row.GamesWon = profile.GamesWon
	row.WinStreak = profile.WinStreak
	row.BestStreak = profile.BestStreak
	row.TotalSequences = profile.TotalSequences

	return p.db.Save(&row).Error
}

// LoadProfile 加载玩家档案
func (p *GormPostgreSQL) LoadProfile(userID string) (*models.PlayerProfile, error) {
	var row models.GormProfile
	if err := p.db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return fromGorm(&row), nil
}

// LoadProfileByFriendCode 按好友码查档案
func (p *GormPostgreSQL) LoadProfileByFriendCode(friendCode string) (*models.PlayerProfile, error) {
	var row models.GormProfile
	if err := p.db.Where("friend_code = ?", friendCode).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return fromGorm(&row), nil
}

// SaveGameRecord 保存对局存档
func (p *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, result := range record.Players {
		players[result.UserID] = map[string]interface{}{
			"name":      result.Name,
			"is_bot":    result.IsBot,
			"position":  result.Position,
			"sequences": result.Sequences,
		}
	}

	row := models.GormGameRecord{
		RoomCode: record.RoomCode,
		Players:  players,
		Moves:    record.Moves,
		Duration: record.Duration,
	}

	return p.db.Create(&row).Error
}

// AddFriendship 建立双向好友关系
func (p *GormPostgreSQL) AddFriendship(userID, friendID string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
			row := models.GormFriendship{UserID: pair[0], FriendID: pair[1]}
			if err := tx.Where(&row).FirstOrCreate(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveFriendship 解除双向好友关系
func (p *GormPostgreSQL) RemoveFriendship(userID, friendID string) error {
	return p.db.
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.GormFriendship{}).Error
}

// ListFriendIDs 列出好友 id
func (p *GormPostgreSQL) ListFriendIDs(userID string) ([]string, error) {
	var ids []string
	err := p.db.Model(&models.GormFriendship{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	return ids, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// 添加事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

// 添加高级查询方法
func (p *GormPostgreSQL) GetPlayerStats(userID string) (map[string]interface{}, error) {
	var stats map[string]interface{}

	// 示例：使用原生SQL查询
	err := p.db.Raw(
		`
        SELECT
            COUNT(*) as total_games,
            SUM(CASE WHEN players->?->>'position' = '0' THEN 1 ELSE 0 END) as wins
        FROM gorm_game_records
        WHERE jsonb_exists(players, ?)`,
		userID, userID,
	).Scan(&stats).Error

	return stats, err
}
