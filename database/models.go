package database

import (
	"time"
)

// RawGame 原始比赛文档
type RawGame struct {
	GameID      string    `db:"game_id"`
	Season      string    `db:"season"`
	GameType    string    `db:"game_type"`
	SourceURL   string    `db:"source_url"`
	Payload     string    `db:"payload"`
	RetrievedAt time.Time `db:"retrieved_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Venue 场馆
type Venue struct {
	ID        int64      `db:"id"`
	VenueID   string     `db:"venue_id"`
	Name      *string    `db:"name"`
	City      *string    `db:"city"`
	FirstUsed *time.Time `db:"first_used"`
	LastUsed  *time.Time `db:"last_used"`
	CreatedAt time.Time  `db:"created_at"`
}

// Team 球队
type Team struct {
	ID           int64      `db:"id"`
	TeamID       string     `db:"team_id"`
	Abbreviation *string    `db:"abbreviation"`
	Name         *string    `db:"name"`
	City         *string    `db:"city"`
	FirstUsed    *time.Time `db:"first_used"`
	LastUsed     *time.Time `db:"last_used"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Person 人员 (球员、教练、裁判)
type Person struct {
	ID        int64      `db:"id"`
	PersonID  string     `db:"person_id"`
	Name      *string    `db:"name"`
	Role      *string    `db:"role"`
	FirstUsed *time.Time `db:"first_used"`
	LastUsed  *time.Time `db:"last_used"`
	CreatedAt time.Time  `db:"created_at"`
}

// Game 比赛
type Game struct {
	ID              int64      `db:"id"`
	GameID          string     `db:"game_id"`
	Season          string     `db:"season"`
	GameType        string     `db:"game_type"`
	GameDate        *time.Time `db:"game_date"`
	VenueID         int64      `db:"venue_id"`
	HomeTeamID      *int64     `db:"home_team_id"`
	AwayTeamID      *int64     `db:"away_team_id"`
	HomeScore       *int       `db:"home_score"`
	AwayScore       *int       `db:"away_score"`
	Winner          *string    `db:"winner"`
	Attendance      *int       `db:"attendance"`
	DurationMinutes *int       `db:"duration_minutes"`
	CreatedAt       time.Time  `db:"created_at"`
}

// GameTeam 比赛-球队关联
type GameTeam struct {
	ID        int64     `db:"id"`
	GameID    int64     `db:"game_id"`
	TeamID    int64     `db:"team_id"`
	IsHome    bool      `db:"is_home"`
	CreatedAt time.Time `db:"created_at"`
}

// GamePerson 比赛-人员关联 (裁判的 team_id 为空)
type GamePerson struct {
	ID        int64     `db:"id"`
	GameID    int64     `db:"game_id"`
	PersonID  int64     `db:"person_id"`
	TeamID    *int64    `db:"team_id"`
	Role      *string   `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// PlayEvent 逐回合事件
type PlayEvent struct {
	ID          int64     `db:"id"`
	GameID      int64     `db:"game_id"`
	Seq         int       `db:"seq"`
	Period      *int      `db:"period"`
	Clock       *string   `db:"clock"`
	TeamID      *int64    `db:"team_id"`
	PersonID    *int64    `db:"person_id"`
	EventType   *string   `db:"event_type"`
	Description *string   `db:"description"`
	HomeScore   *int      `db:"home_score"`
	AwayScore   *int      `db:"away_score"`
	CreatedAt   time.Time `db:"created_at"`
}

// StatLine 统计行
type StatLine struct {
	ID                  int64     `db:"id"`
	GameID              int64     `db:"game_id"`
	TeamID              *int64    `db:"team_id"`
	PersonID            *int64    `db:"person_id"`
	Scope               string    `db:"scope"` // team, starters, bench, player
	Minutes             *int      `db:"minutes"`
	Points              *int      `db:"points"`
	Rebounds            *int      `db:"rebounds"`
	Assists             *int      `db:"assists"`
	Steals              *int      `db:"steals"`
	Blocks              *int      `db:"blocks"`
	Turnovers           *int      `db:"turnovers"`
	FieldGoalsMade      *int      `db:"field_goals_made"`
	FieldGoalsAttempted *int      `db:"field_goals_attempted"`
	ThreePointsMade     *int      `db:"three_points_made"`
	FreeThrowsMade      *int      `db:"free_throws_made"`
	FreeThrowsAttempted *int      `db:"free_throws_attempted"`
	Fouls               *int      `db:"fouls"`
	CreatedAt           time.Time `db:"created_at"`
}
