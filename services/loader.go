package services

import (
	"database/sql"
	"fmt"

	"boxscore-service/database"
)

// BulkLoader 幂等批量写入器。所有插入都是 insert-skip：自然键已存在的行
// 静默跳过，不更新也不报错。返回值是真正插入的行数，调用方据此区分
// "整批已存在" 和部分失败。存储层错误中止整批并向上传播。
type BulkLoader struct{}

// NewBulkLoader 创建批量写入器
func NewBulkLoader() *BulkLoader {
	return &BulkLoader{}
}

// InsertVenues 批量插入场馆
func (l *BulkLoader) InsertVenues(tx *sql.Tx, batch []VenueCandidate) (int, error) {
	inserted := 0
	for _, v := range batch {
		res, err := tx.Exec(`
			INSERT INTO venues (venue_id, name, city)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
			ON CONFLICT (venue_id) DO NOTHING
		`, v.VenueID, v.Name, v.City)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert venue %s: %w", v.VenueID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertTeams 批量插入球队
func (l *BulkLoader) InsertTeams(tx *sql.Tx, batch []TeamCandidate) (int, error) {
	inserted := 0
	for _, t := range batch {
		res, err := tx.Exec(`
			INSERT INTO teams (team_id, abbreviation, name, city)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
			ON CONFLICT (team_id) DO NOTHING
		`, t.TeamID, t.Abbreviation, t.Name, t.City)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert team %s: %w", t.TeamID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertPersons 批量插入人员
func (l *BulkLoader) InsertPersons(tx *sql.Tx, batch []PersonCandidate) (int, error) {
	inserted := 0
	for _, p := range batch {
		res, err := tx.Exec(`
			INSERT INTO persons (person_id, name, role)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
			ON CONFLICT (person_id) DO NOTHING
		`, p.PersonID, p.Name, p.Role)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert person %s: %w", p.PersonID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertGame 插入比赛记录，返回内部 ID 和插入行数。
// 已存在时 (inserted=0) 返回现有内部 ID。
func (l *BulkLoader) InsertGame(tx *sql.Tx, g *database.Game) (int64, int, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO games (
			game_id, season, game_type, game_date, venue_id,
			home_team_id, away_team_id, home_score, away_score,
			winner, attendance, duration_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (game_id) DO NOTHING
		RETURNING id
	`, g.GameID, g.Season, g.GameType, g.GameDate, g.VenueID,
		g.HomeTeamID, g.AwayTeamID, g.HomeScore, g.AwayScore,
		g.Winner, g.Attendance, g.DurationMinutes).Scan(&id)

	if err == nil {
		return id, 1, nil
	}
	if err != sql.ErrNoRows {
		return 0, 0, fmt.Errorf("failed to insert game %s: %w", g.GameID, err)
	}

	// 冲突跳过，取现有内部 ID
	if err := tx.QueryRow(`SELECT id FROM games WHERE game_id = $1`, g.GameID).Scan(&id); err != nil {
		return 0, 0, fmt.Errorf("failed to resolve existing game %s: %w", g.GameID, err)
	}
	return id, 0, nil
}

// InsertGameTeams 批量插入比赛-球队关联
func (l *BulkLoader) InsertGameTeams(tx *sql.Tx, batch []database.GameTeam) (int, error) {
	inserted := 0
	for _, gt := range batch {
		res, err := tx.Exec(`
			INSERT INTO game_teams (game_id, team_id, is_home)
			VALUES ($1, $2, $3)
			ON CONFLICT (game_id, team_id) DO NOTHING
		`, gt.GameID, gt.TeamID, gt.IsHome)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert game_team (%d, %d): %w", gt.GameID, gt.TeamID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertGamePersons 批量插入比赛-人员关联 (裁判 team_id 为空)
func (l *BulkLoader) InsertGamePersons(tx *sql.Tx, batch []database.GamePerson) (int, error) {
	inserted := 0
	for _, gp := range batch {
		res, err := tx.Exec(`
			INSERT INTO game_persons (game_id, person_id, team_id, role)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			ON CONFLICT (game_id, person_id, COALESCE(team_id, 0)) DO NOTHING
		`, gp.GameID, gp.PersonID, gp.TeamID, derefString(gp.Role))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert game_person (%d, %d): %w", gp.GameID, gp.PersonID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertPlayEvents 批量插入逐回合事件 ((game_id, seq) 为自然键)
func (l *BulkLoader) InsertPlayEvents(tx *sql.Tx, batch []database.PlayEvent) (int, error) {
	inserted := 0
	for _, e := range batch {
		res, err := tx.Exec(`
			INSERT INTO play_events (
				game_id, seq, period, clock, team_id, person_id,
				event_type, description, home_score, away_score
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (game_id, seq) DO NOTHING
		`, e.GameID, e.Seq, e.Period, e.Clock, e.TeamID, e.PersonID,
			e.EventType, e.Description, e.HomeScore, e.AwayScore)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert play_event (%d, %d): %w", e.GameID, e.Seq, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// InsertStatLines 批量插入统计行 ((game_id, team_id, person_id, scope) 为自然键)
func (l *BulkLoader) InsertStatLines(tx *sql.Tx, batch []database.StatLine) (int, error) {
	inserted := 0
	for _, s := range batch {
		res, err := tx.Exec(`
			INSERT INTO stat_lines (
				game_id, team_id, person_id, scope, minutes, points, rebounds,
				assists, steals, blocks, turnovers, field_goals_made,
				field_goals_attempted, three_points_made, free_throws_made,
				free_throws_attempted, fouls
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (game_id, COALESCE(team_id, 0), COALESCE(person_id, 0), scope) DO NOTHING
		`, s.GameID, s.TeamID, s.PersonID, s.Scope, s.Minutes, s.Points, s.Rebounds,
			s.Assists, s.Steals, s.Blocks, s.Turnovers, s.FieldGoalsMade,
			s.FieldGoalsAttempted, s.ThreePointsMade, s.FreeThrowsMade,
			s.FreeThrowsAttempted, s.Fouls)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert stat_line (%d, %s): %w", s.GameID, s.Scope, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
