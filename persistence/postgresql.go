// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/bingoserver/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	// 创建档案表
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS profiles (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(64) UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            avatar VARCHAR(64) DEFAULT '',
            friend_code VARCHAR(16) UNIQUE NOT NULL,
            games_played INT DEFAULT 0,
            games_won INT DEFAULT 0,
            win_streak INT DEFAULT 0,
            best_streak INT DEFAULT 0,
            total_sequences INT DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建对局存档表
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_code VARCHAR(16) NOT NULL,
            players JSONB NOT NULL,
            moves INT DEFAULT 0,
            duration INT DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建好友关系表，每个方向一行
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS friendships (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(64) NOT NULL,
            friend_id VARCHAR(64) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (user_id, friend_id)
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_profiles_friend_code ON profiles(friend_code);
        CREATE INDEX IF NOT EXISTS idx_game_records_room_code ON game_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_game_records_created_at ON game_records(created_at);
        CREATE INDEX IF NOT EXISTS idx_friendships_user_id ON friendships(user_id);
    `)

	return err
}

// SaveProfile 保存玩家档案，按 user_id UPSERT
func (p *PostgreSQL) SaveProfile(profile *models.PlayerProfile) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO profiles
            (user_id, name, avatar, friend_code, games_played, games_won,
             win_streak, best_streak, total_sequences)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (user_id)
        DO UPDATE SET
            name = $2, avatar = $3,
            games_played = $5, games_won = $6,
            win_streak = $7, best_streak = $8, total_sequences = $9,
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := p.db.ExecContext(ctx, query,
		profile.UserID, profile.Name, profile.Avatar, profile.FriendCode,
		profile.GamesPlayed, profile.GamesWon,
		profile.WinStreak, profile.BestStreak, profile.TotalSequences)
	return err
}

func (p *PostgreSQL) loadProfileWhere(clause string, arg interface{}) (*models.PlayerProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT user_id, name, avatar, friend_code, games_played, games_won,
               win_streak, best_streak, total_sequences, created_at, updated_at
        FROM profiles WHERE ` + clause

	var profile models.PlayerProfile
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.UserID, &profile.Name, &profile.Avatar, &profile.FriendCode,
		&profile.GamesPlayed, &profile.GamesWon,
		&profile.WinStreak, &profile.BestStreak, &profile.TotalSequences,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// LoadProfile 加载玩家档案
func (p *PostgreSQL) LoadProfile(userID string) (*models.PlayerProfile, error) {
	return p.loadProfileWhere("user_id = $1", userID)
}

// LoadProfileByFriendCode 按好友码查档案
func (p *PostgreSQL) LoadProfileByFriendCode(friendCode string) (*models.PlayerProfile, error) {
	return p.loadProfileWhere("friend_code = $1", friendCode)
}

// SaveGameRecord 保存对局存档
func (p *PostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO game_records (room_code, players, moves, duration)
        VALUES ($1, $2, $3, $4)
    `

	_, err = p.db.ExecContext(ctx, query,
		record.RoomCode, playersJSON, record.Moves, record.Duration)
	return err
}

// AddFriendship 建立双向好友关系
func (p *PostgreSQL) AddFriendship(userID, friendID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO friendships (user_id, friend_id)
        VALUES ($1, $2), ($2, $1)
        ON CONFLICT (user_id, friend_id) DO NOTHING
    `
	_, err := p.db.ExecContext(ctx, query, userID, friendID)
	return err
}

// RemoveFriendship 解除双向好友关系
func (p *PostgreSQL) RemoveFriendship(userID, friendID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        DELETE FROM friendships
        WHERE (user_id = $1 AND friend_id = $2)
           OR (user_id = $2 AND friend_id = $1)
    `
	_, err := p.db.ExecContext(ctx, query, userID, friendID)
	return err
}

// ListFriendIDs 列出好友 id
func (p *PostgreSQL) ListFriendIDs(userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
