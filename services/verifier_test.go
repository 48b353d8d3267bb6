package services

import (
	"testing"

	"boxscore-service/document"
)

func verifyDocument() *document.GameDocument {
	return &document.GameDocument{
		GameID: "bos-lal-20250115",
		Status: "final",
		Period: 4,
		Home: document.TeamSide{
			Team:  document.TeamInfo{ID: "t-bos"},
			Score: 100,
			Stats: map[string]int{"points": 100, "rebounds": 42, "assists": 25},
			Players: []document.PlayerLine{
				{Person: document.PersonInfo{ID: "p1"}},
				{Person: document.PersonInfo{ID: "p2"}},
			},
		},
		Away: document.TeamSide{
			Team:  document.TeamInfo{ID: "t-lal"},
			Score: 90,
			Stats: map[string]int{"points": 90, "rebounds": 38, "assists": 20},
			Players: []document.PlayerLine{
				{Person: document.PersonInfo{ID: "p3"}},
			},
		},
		Officials: []document.Official{
			{ID: "o1", Name: "Scott Foster"},
			{ID: "o2", Name: "Jane Smith"},
		},
		Events: []document.Event{
			{Seq: 1, Period: 1, Clock: "12:00", Type: "jumpball"},
			{Seq: 2, Period: 1, Clock: "11:42", Type: "shot", HomeScore: 2, AwayScore: 0},
		},
	}
}

func TestCompareDocumentsIdentical(t *testing.T) {
	report := CompareDocuments(verifyDocument(), verifyDocument())

	if report.TotalChanges != 0 {
		t.Errorf("Expected 0 changes for identical documents, got %d: %v",
			report.TotalChanges, report.Details)
	}
	if len(report.SectionsChanged) != 0 {
		t.Errorf("Expected no changed sections, got %v", report.SectionsChanged)
	}
}

func TestCompareDocumentsScoreChange(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Home.Score = 102

	report := CompareDocuments(old, fresh)

	if report.TotalChanges != 1 {
		t.Fatalf("Expected 1 change, got %d: %v", report.TotalChanges, report.Details)
	}
	if len(report.SectionsChanged) != 1 || report.SectionsChanged[0] != "game_metadata" {
		t.Errorf("Expected sections ['game_metadata'], got %v", report.SectionsChanged)
	}

	expected := "Score: 90-100 → 90-102"
	if report.Details["game_metadata"][0] != expected {
		t.Errorf("Expected detail '%s', got '%s'", expected, report.Details["game_metadata"][0])
	}
}

func TestCompareDocumentsStatusChange(t *testing.T) {
	old := verifyDocument()
	old.Status = "live"
	fresh := verifyDocument()

	report := CompareDocuments(old, fresh)

	if report.Details["game_metadata"][0] != "Status: live → final" {
		t.Errorf("Unexpected status detail: %v", report.Details["game_metadata"])
	}
}

func TestCompareDocumentsEventCountChange(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Events = append(fresh.Events, document.Event{Seq: 3, Type: "foul"})

	report := CompareDocuments(old, fresh)

	if report.Details["events"][0] != "Events: 2 → 3 entries" {
		t.Errorf("Unexpected events detail: %v", report.Details["events"])
	}
}

func TestCompareDocumentsEventDiffLimit(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	old.Events = nil
	fresh.Events = nil
	for i := 0; i < 20; i++ {
		old.Events = append(old.Events, document.Event{Seq: i, Type: "shot"})
		fresh.Events = append(fresh.Events, document.Event{Seq: i, Type: "foul"})
	}

	report := CompareDocuments(old, fresh)

	// 每条事件的 type 都不同，但上报条数封顶
	if len(report.Details["events"]) != eventReportLimit {
		t.Errorf("Expected %d reported event diffs, got %d",
			eventReportLimit, len(report.Details["events"]))
	}
	if report.Details["events"][0] != "Event 0: type shot → foul" {
		t.Errorf("Unexpected first event diff: %s", report.Details["events"][0])
	}
}

func TestCompareDocumentsTeamStats(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Away.Stats["rebounds"] = 40

	report := CompareDocuments(old, fresh)

	if len(report.SectionsChanged) != 1 || report.SectionsChanged[0] != "team_stats" {
		t.Fatalf("Expected sections ['team_stats'], got %v", report.SectionsChanged)
	}
	if report.Details["team_stats"][0] != "away rebounds: 38 → 40" {
		t.Errorf("Unexpected team stats detail: %v", report.Details["team_stats"])
	}
}

func TestCompareDocumentsUntrackedStatIgnored(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Home.Stats["turnovers"] = 15

	report := CompareDocuments(old, fresh)

	if report.TotalChanges != 0 {
		t.Errorf("Expected untracked stat key to be ignored, got %v", report.Details)
	}
}

func TestCompareDocumentsRosterChange(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Home.Players = fresh.Home.Players[:1]

	report := CompareDocuments(old, fresh)

	if report.Details["rosters"][0] != "home roster: 2 → 1 players" {
		t.Errorf("Unexpected rosters detail: %v", report.Details["rosters"])
	}
}

func TestCompareDocumentsOfficialsChange(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Officials = fresh.Officials[:1]

	report := CompareDocuments(old, fresh)

	if report.Details["officials"][0] != "officials: 2 → 1" {
		t.Errorf("Unexpected officials detail: %v", report.Details["officials"])
	}
}

func TestCompareDocumentsMultipleSections(t *testing.T) {
	old := verifyDocument()
	fresh := verifyDocument()
	fresh.Status = "corrected"
	fresh.Home.Stats["points"] = 102
	fresh.Officials = fresh.Officials[:1]

	report := CompareDocuments(old, fresh)

	if len(report.SectionsChanged) != 3 {
		t.Errorf("Expected 3 changed sections, got %v", report.SectionsChanged)
	}
	if report.TotalChanges != 3 {
		t.Errorf("Expected 3 total changes, got %d", report.TotalChanges)
	}
}

func TestChangeReportAddSection(t *testing.T) {
	report := newChangeReport()
	report.addSection("events", nil)

	if report.TotalChanges != 0 || len(report.SectionsChanged) != 0 {
		t.Error("Expected empty change list to be skipped")
	}

	report.addSection("events", []string{"a", "b"})
	if report.TotalChanges != 2 {
		t.Errorf("Expected 2 total changes, got %d", report.TotalChanges)
	}
}

func TestDiffEventOrder(t *testing.T) {
	// type 差异优先于其他字段的差异
	old := document.Event{Type: "shot", Clock: "10:00"}
	fresh := document.Event{Type: "foul", Clock: "09:58"}

	diff := diffEvent(3, old, fresh)
	if diff != "Event 3: type shot → foul" {
		t.Errorf("Unexpected diff: %s", diff)
	}
}
