package services

import (
	"database/sql"
	"fmt"

	"boxscore-service/logger"
)

// IntegrityReport 外键一致性检查结果。非零计数说明规范化数据有
// 悬空引用，需要上报；检查本身不修改任何数据。
type IntegrityReport struct {
	OrphanGameVenues  int64 `json:"orphan_game_venues"`
	OrphanGameTeams   int64 `json:"orphan_game_teams"`
	OrphanGamePersons int64 `json:"orphan_game_persons"`
	OrphanPlayEvents  int64 `json:"orphan_play_events"`
	OrphanStatLines   int64 `json:"orphan_stat_lines"`
	GamesWithoutRaw   int64 `json:"games_without_raw"`
}

// Total 返回违规总数
func (r *IntegrityReport) Total() int64 {
	return r.OrphanGameVenues + r.OrphanGameTeams + r.OrphanGamePersons +
		r.OrphanPlayEvents + r.OrphanStatLines + r.GamesWithoutRaw
}

// IntegrityChecker 批量入库后的固定一致性检查集
type IntegrityChecker struct {
	db *sql.DB
}

// NewIntegrityChecker 创建一致性检查器
func NewIntegrityChecker(db *sql.DB) *IntegrityChecker {
	return &IntegrityChecker{db: db}
}

// Check 执行全部检查
func (c *IntegrityChecker) Check() (*IntegrityReport, error) {
	report := &IntegrityReport{}

	checks := []struct {
		name   string
		query  string
		target *int64
	}{
		{
			name: "games -> venues",
			query: `SELECT COUNT(*) FROM games g
				LEFT JOIN venues v ON g.venue_id = v.id WHERE v.id IS NULL`,
			target: &report.OrphanGameVenues,
		},
		{
			name: "game_teams -> games/teams",
			query: `SELECT COUNT(*) FROM game_teams gt
				LEFT JOIN games g ON gt.game_id = g.id
				LEFT JOIN teams t ON gt.team_id = t.id
				WHERE g.id IS NULL OR t.id IS NULL`,
			target: &report.OrphanGameTeams,
		},
		{
			name: "game_persons -> games/persons",
			query: `SELECT COUNT(*) FROM game_persons gp
				LEFT JOIN games g ON gp.game_id = g.id
				LEFT JOIN persons p ON gp.person_id = p.id
				WHERE g.id IS NULL OR p.id IS NULL`,
			target: &report.OrphanGamePersons,
		},
		{
			name: "play_events -> games",
			query: `SELECT COUNT(*) FROM play_events e
				LEFT JOIN games g ON e.game_id = g.id WHERE g.id IS NULL`,
			target: &report.OrphanPlayEvents,
		},
		{
			name: "stat_lines -> games",
			query: `SELECT COUNT(*) FROM stat_lines s
				LEFT JOIN games g ON s.game_id = g.id WHERE g.id IS NULL`,
			target: &report.OrphanStatLines,
		},
		{
			name: "games -> raw_games",
			query: `SELECT COUNT(*) FROM games g
				LEFT JOIN raw_games r ON g.game_id = r.game_id WHERE r.game_id IS NULL`,
			target: &report.GamesWithoutRaw,
		},
	}

	for _, check := range checks {
		if err := c.db.QueryRow(check.query).Scan(check.target); err != nil {
			return nil, fmt.Errorf("integrity check %s failed: %w", check.name, err)
		}
		if *check.target > 0 {
			logger.Errorf("[Integrity] ❌ %s: %d violations", check.name, *check.target)
		}
	}

	return report, nil
}
