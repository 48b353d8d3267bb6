package document

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	raw := []byte(`{
		"game_id": "bos-lal-20250115",
		"season": "2025",
		"status": "final",
		"date": "2025-01-15",
		"venue": {"id": "v-td-garden", "name": "TD Garden", "city": "Boston"},
		"home": {"team": {"id": "t-bos", "name": "Celtics"}, "score": 112},
		"away": {"team": {"id": "t-lal", "name": "Lakers"}, "score": 105}
	}`)

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Expected parse to succeed, got error: %v", err)
	}

	if doc.GameID != "bos-lal-20250115" {
		t.Errorf("Expected game_id 'bos-lal-20250115', got '%s'", doc.GameID)
	}

	if doc.GameType != GameTypeRegular {
		t.Errorf("Expected default game_type 'regular', got '%s'", doc.GameType)
	}

	if doc.Home.Score != 112 || doc.Away.Score != 105 {
		t.Errorf("Expected score 112-105, got %d-%d", doc.Home.Score, doc.Away.Score)
	}
}

func TestParseMissingGameID(t *testing.T) {
	raw := []byte(`{"season": "2025", "status": "final"}`)

	_, err := Parse(raw)
	if err == nil {
		t.Fatal("Expected error for document without game_id")
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}

func TestParsedDate(t *testing.T) {
	tests := []struct {
		date     string
		expected time.Time
	}{
		{"2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-01-15T19:30:00Z", time.Date(2025, 1, 15, 19, 30, 0, 0, time.UTC)},
		{"", SentinelDate},
		{"not-a-date", SentinelDate},
	}

	for _, tt := range tests {
		doc := &GameDocument{Date: tt.date}
		got := doc.ParsedDate()
		if !got.Equal(tt.expected) {
			t.Errorf("ParsedDate(%q) = %v, expected %v", tt.date, got, tt.expected)
		}
	}
}

func TestHasDate(t *testing.T) {
	doc := &GameDocument{Date: "2025-01-15"}
	if !doc.HasDate() {
		t.Error("Expected HasDate to be true for a parseable date")
	}

	doc = &GameDocument{Date: "garbage"}
	if doc.HasDate() {
		t.Error("Expected HasDate to be false for an unparseable date")
	}
}

func TestWinner(t *testing.T) {
	doc := &GameDocument{
		Home: TeamSide{Score: 112},
		Away: TeamSide{Score: 105},
	}
	if doc.Winner() != "home" {
		t.Errorf("Expected winner 'home', got '%s'", doc.Winner())
	}

	doc.Away.Score = 120
	if doc.Winner() != "away" {
		t.Errorf("Expected winner 'away', got '%s'", doc.Winner())
	}

	doc.Away.Score = 112
	if doc.Winner() != "" {
		t.Errorf("Expected no winner for a tie, got '%s'", doc.Winner())
	}
}

func TestStructurallyEqual(t *testing.T) {
	a := []byte(`{"game_id": "g1", "home": {"score": 100, "team": {"id": "t1"}}}`)
	b := []byte(`{"home": {"team": {"id": "t1"}, "score": 100}, "game_id": "g1"}`)

	// key order and formatting differences are not changes
	if !StructurallyEqual(a, b) {
		t.Error("Expected documents with reordered keys to be structurally equal")
	}

	c := []byte(`{"game_id": "g1", "home": {"score": 102, "team": {"id": "t1"}}}`)
	if StructurallyEqual(a, c) {
		t.Error("Expected documents with different scores to differ")
	}
}

func TestStructurallyEqualArrays(t *testing.T) {
	a := []byte(`{"events": [{"seq": 1}, {"seq": 2}]}`)
	b := []byte(`{"events": [{"seq": 2}, {"seq": 1}]}`)

	// array order is significant
	if StructurallyEqual(a, b) {
		t.Error("Expected documents with reordered events to differ")
	}
}
