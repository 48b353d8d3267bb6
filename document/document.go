package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// GameType values accepted from the source feed.
const (
	GameTypeRegular = "regular"
	GameTypePlayoff = "playoff"
)

// SentinelDate is used for documents whose date cannot be parsed. It sorts
// before any real game so unparseable documents never corrupt chronological
// ordering.
var SentinelDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// GameDocument is the typed envelope for one game's boxscore payload.
// The source delivers loosely structured JSON; this struct is validated
// once at the boundary so downstream code never does ad-hoc field lookups.
type GameDocument struct {
	GameID     string     `json:"game_id"`
	Season     string     `json:"season"`
	GameType   string     `json:"game_type"`
	Status     string     `json:"status"`
	Period     int        `json:"period"`
	Clock      string     `json:"clock"`
	Date       string     `json:"date"`
	Attendance int        `json:"attendance"`
	Duration   int        `json:"duration_minutes"`
	Venue      VenueInfo  `json:"venue"`
	Home       TeamSide   `json:"home"`
	Away       TeamSide   `json:"away"`
	Officials  []Official `json:"officials"`
	Events     []Event    `json:"events"`
}

// VenueInfo identifies the venue a game was played at.
type VenueInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// TeamInfo identifies one team.
type TeamInfo struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	City         string `json:"city"`
}

// TeamSide holds one side's team, score, aggregate stats and roster.
type TeamSide struct {
	Team     TeamInfo       `json:"team"`
	Score    int            `json:"score"`
	Stats    map[string]int `json:"stats"`
	Starters map[string]int `json:"starters"`
	Bench    map[string]int `json:"bench"`
	Players  []PlayerLine   `json:"players"`
}

// PersonInfo identifies a person (player, coach or official).
type PersonInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// PlayerLine is one player's boxscore line.
type PlayerLine struct {
	Person  PersonInfo     `json:"person"`
	Starter bool           `json:"starter"`
	Stats   map[string]int `json:"stats"`
}

// Official is one member of the officiating crew.
type Official struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Event is one entry of the ordered play-by-play stream.
type Event struct {
	Seq         int    `json:"seq"`
	Period      int    `json:"period"`
	Clock       string `json:"clock"`
	TeamID      string `json:"team_id"`
	PersonID    string `json:"person_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	HomeScore   int    `json:"home_score"`
	AwayScore   int    `json:"away_score"`
}

// Parse decodes and validates a raw payload into a GameDocument.
// A document without a game_id is rejected.
func Parse(raw []byte) (*GameDocument, error) {
	var doc GameDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse game document: %w", err)
	}

	if doc.GameID == "" {
		return nil, fmt.Errorf("game document missing game_id")
	}

	// Default policy for optional fields
	if doc.GameType == "" {
		doc.GameType = GameTypeRegular
	}

	return &doc, nil
}

// ParsedDate returns the game's date. Documents with a missing or
// unparseable date get SentinelDate.
func (d *GameDocument) ParsedDate() time.Time {
	if d.Date == "" {
		return SentinelDate
	}

	if t, err := time.Parse(time.RFC3339, d.Date); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", d.Date); err == nil {
		return t
	}

	return SentinelDate
}

// HasDate reports whether the document carries a parseable date.
func (d *GameDocument) HasDate() bool {
	return !d.ParsedDate().Equal(SentinelDate)
}

// Winner returns "home", "away" or "" for a tie/unknown outcome.
func (d *GameDocument) Winner() string {
	if d.Home.Score > d.Away.Score {
		return "home"
	}
	if d.Away.Score > d.Home.Score {
		return "away"
	}
	return ""
}

// StructurallyEqual compares two raw payloads for deep equality after
// decoding, so formatting and key order differences do not count as
// changes. Used as the last-resort comparator when no section reports
// a difference.
func StructurallyEqual(a, b []byte) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return deepEqual(va, vb)
}

func deepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, ok := bv[k]
			if !ok || !deepEqual(v, bval) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
