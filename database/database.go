package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 原始文档表 (每场比赛一条，整体替换)
		`CREATE TABLE IF NOT EXISTS raw_games (
			game_id VARCHAR(50) PRIMARY KEY,
			season VARCHAR(20) NOT NULL,
			game_type VARCHAR(20) NOT NULL DEFAULT 'regular',
			source_url TEXT NOT NULL,
			payload TEXT NOT NULL,
			retrieved_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_games_season ON raw_games(season)`,

		// 场馆表
		`CREATE TABLE IF NOT EXISTS venues (
			id BIGSERIAL PRIMARY KEY,
			venue_id VARCHAR(50) UNIQUE NOT NULL,
			name VARCHAR(200),
			city VARCHAR(100),
			first_used DATE,
			last_used DATE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 球队表
		`CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			team_id VARCHAR(50) UNIQUE NOT NULL,
			abbreviation VARCHAR(10),
			name VARCHAR(200),
			city VARCHAR(100),
			first_used DATE,
			last_used DATE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 人员表 (球员、教练、裁判)
		`CREATE TABLE IF NOT EXISTS persons (
			id BIGSERIAL PRIMARY KEY,
			person_id VARCHAR(50) UNIQUE NOT NULL,
			name VARCHAR(200),
			role VARCHAR(30),
			first_used DATE,
			last_used DATE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 比赛表
		`CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			game_id VARCHAR(50) UNIQUE NOT NULL,
			season VARCHAR(20) NOT NULL,
			game_type VARCHAR(20) NOT NULL DEFAULT 'regular',
			game_date DATE,
			venue_id BIGINT NOT NULL REFERENCES venues(id),
			home_team_id BIGINT REFERENCES teams(id),
			away_team_id BIGINT REFERENCES teams(id),
			home_score INTEGER,
			away_score INTEGER,
			winner VARCHAR(10),
			attendance INTEGER,
			duration_minutes INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_game_date ON games(game_date)`,
		`CREATE INDEX IF NOT EXISTS idx_games_venue_id ON games(venue_id)`,

		// 比赛-球队关联表
		`CREATE TABLE IF NOT EXISTS game_teams (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(id),
			team_id BIGINT NOT NULL REFERENCES teams(id),
			is_home BOOLEAN NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (game_id, team_id)
		)`,

		// 比赛-人员关联表 (team_id 可为空，例如裁判)
		`CREATE TABLE IF NOT EXISTS game_persons (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(id),
			person_id BIGINT NOT NULL REFERENCES persons(id),
			team_id BIGINT REFERENCES teams(id),
			role VARCHAR(30),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_game_persons_identity
			ON game_persons(game_id, person_id, COALESCE(team_id, 0))`,

		// 逐回合事件表
		`CREATE TABLE IF NOT EXISTS play_events (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(id),
			seq INTEGER NOT NULL,
			period INTEGER,
			clock VARCHAR(20),
			team_id BIGINT REFERENCES teams(id),
			person_id BIGINT REFERENCES persons(id),
			event_type VARCHAR(50),
			description TEXT,
			home_score INTEGER,
			away_score INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (game_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_events_game_id ON play_events(game_id)`,

		// 统计行表 (team/starters/bench/player 四种范围)
		`CREATE TABLE IF NOT EXISTS stat_lines (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(id),
			team_id BIGINT REFERENCES teams(id),
			person_id BIGINT REFERENCES persons(id),
			scope VARCHAR(20) NOT NULL,
			minutes INTEGER,
			points INTEGER,
			rebounds INTEGER,
			assists INTEGER,
			steals INTEGER,
			blocks INTEGER,
			turnovers INTEGER,
			field_goals_made INTEGER,
			field_goals_attempted INTEGER,
			three_points_made INTEGER,
			free_throws_made INTEGER,
			free_throws_attempted INTEGER,
			fouls INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stat_lines_identity
			ON stat_lines(game_id, COALESCE(team_id, 0), COALESCE(person_id, 0), scope)`,
		`CREATE INDEX IF NOT EXISTS idx_stat_lines_game_id ON stat_lines(game_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
