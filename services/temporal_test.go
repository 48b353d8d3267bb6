package services

import (
	"testing"
	"time"

	"boxscore-service/document"
)

func TestSortChronologically(t *testing.T) {
	day := func(d string) time.Time {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			t.Fatalf("Bad test date %s: %v", d, err)
		}
		return parsed
	}

	queue := []QueuedGame{
		{GameID: "g3", Date: day("2025-03-10")},
		{GameID: "g1", Date: day("2025-01-05")},
		{GameID: "g4", Date: document.SentinelDate},
		{GameID: "g2", Date: day("2025-01-05")},
	}

	SortChronologically(queue)

	// 哨兵日期排最前，其余按日期排序，同日按比赛 ID
	expected := []string{"g4", "g1", "g2", "g3"}
	for i, id := range expected {
		if queue[i].GameID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, queue[i].GameID)
		}
	}
}

func TestSortChronologicallyStable(t *testing.T) {
	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	queue := []QueuedGame{
		{GameID: "b", Date: date},
		{GameID: "a", Date: date},
		{GameID: "c", Date: date},
	}

	SortChronologically(queue)

	if queue[0].GameID != "a" || queue[1].GameID != "b" || queue[2].GameID != "c" {
		t.Errorf("Expected same-day games ordered by id, got %s %s %s",
			queue[0].GameID, queue[1].GameID, queue[2].GameID)
	}
}

func TestSortChronologicallyEmpty(t *testing.T) {
	SortChronologically(nil)
	SortChronologically([]QueuedGame{})
}

func TestDatesEqual(t *testing.T) {
	d1 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	same := d1

	tests := []struct {
		name     string
		a, b     *time.Time
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"same date", &d1, &same, true},
		{"different dates", &d1, &d2, false},
		// 实体不再被任何带日期的比赛引用时，残留日期与空的计算结果不相等，
		// 触发清空写入
		{"stale date vs nil", &d1, nil, false},
		{"nil vs new date", nil, &d2, false},
	}

	for _, tt := range tests {
		if got := datesEqual(tt.a, tt.b); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestReconcileResultTotalCorrected(t *testing.T) {
	result := &ReconcileResult{
		Corrected: map[string]int{"venues": 1, "teams": 3, "persons": 0},
	}
	if result.TotalCorrected() != 4 {
		t.Errorf("Expected total 4, got %d", result.TotalCorrected())
	}
}
