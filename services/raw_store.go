package services

import (
	"database/sql"
	"fmt"
	"time"

	"boxscore-service/database"
)

// RawGameStore 原始文档存储。每场比赛一条记录，整体替换，不做局部更新。
// 规范化表全部可以从这里重建。
type RawGameStore struct {
	db *sql.DB
}

// NewRawGameStore 创建原始文档存储
func NewRawGameStore(db *sql.DB) *RawGameStore {
	return &RawGameStore{db: db}
}

// Get 按比赛 ID 获取原始文档
func (s *RawGameStore) Get(gameID string) (*database.RawGame, error) {
	var raw database.RawGame
	err := s.db.QueryRow(`
		SELECT game_id, season, game_type, source_url, payload, retrieved_at, updated_at
		FROM raw_games WHERE game_id = $1
	`, gameID).Scan(
		&raw.GameID, &raw.Season, &raw.GameType, &raw.SourceURL,
		&raw.Payload, &raw.RetrievedAt, &raw.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw game %s: %w", gameID, err)
	}
	return &raw, nil
}

// Replace 整体替换原始文档 (先删后插，同一事务)
func (s *RawGameStore) Replace(raw *database.RawGame) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM raw_games WHERE game_id = $1`, raw.GameID); err != nil {
		return fmt.Errorf("failed to delete raw game %s: %w", raw.GameID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO raw_games (game_id, season, game_type, source_url, payload, retrieved_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, raw.GameID, raw.Season, raw.GameType, raw.SourceURL, raw.Payload, raw.RetrievedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert raw game %s: %w", raw.GameID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListIDs 列出所有比赛 ID
func (s *RawGameStore) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT game_id FROM raw_games ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan raw game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw games: %w", err)
	}
	return ids, nil
}

// ListSeasonIDs 列出某赛季的所有比赛 ID
func (s *RawGameStore) ListSeasonIDs(season string) ([]string, error) {
	rows, err := s.db.Query(`SELECT game_id FROM raw_games WHERE season = $1 ORDER BY game_id`, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw games for season %s: %w", season, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan raw game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw games for season %s: %w", season, err)
	}
	return ids, nil
}

// Count 统计原始文档数量
func (s *RawGameStore) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_games`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count raw games: %w", err)
	}
	return count, nil
}
