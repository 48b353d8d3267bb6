package services

import (
	"testing"

	"boxscore-service/document"
)

func sampleDocument() *document.GameDocument {
	return &document.GameDocument{
		GameID: "bos-lal-20250115",
		Season: "2025",
		Venue:  document.VenueInfo{ID: "v-td-garden", Name: "TD Garden", City: "Boston"},
		Home: document.TeamSide{
			Team:  document.TeamInfo{ID: "t-bos", Name: "Celtics"},
			Score: 112,
			Players: []document.PlayerLine{
				{Person: document.PersonInfo{ID: "p-tatum", Name: "Jayson Tatum"}},
				{Person: document.PersonInfo{ID: "p-brown", Name: "Jaylen Brown"}},
			},
		},
		Away: document.TeamSide{
			Team:  document.TeamInfo{ID: "t-lal", Name: "Lakers"},
			Score: 105,
			Players: []document.PlayerLine{
				{Person: document.PersonInfo{ID: "p-james", Name: "LeBron James"}},
			},
		},
		Officials: []document.Official{
			{ID: "o-foster", Name: "Scott Foster", Role: "crew_chief"},
			{ID: "o-foster", Name: "Scott Foster", Role: "referee"},
			{ID: "o-smith", Name: "Jane Smith"},
		},
	}
}

func TestExtractCandidates(t *testing.T) {
	resolver := NewEntityResolver()
	set := resolver.ExtractCandidates(sampleDocument())

	if len(set.Venues) != 1 {
		t.Fatalf("Expected 1 venue candidate, got %d", len(set.Venues))
	}
	if set.Venues[0].VenueID != "v-td-garden" {
		t.Errorf("Expected venue 'v-td-garden', got '%s'", set.Venues[0].VenueID)
	}

	// 主客两队是不同球队，不算重复
	if len(set.Teams) != 2 {
		t.Errorf("Expected 2 team candidates, got %d", len(set.Teams))
	}

	// 3 名球员 + 2 名裁判 (o-foster 出现两次，合并为一条)
	if len(set.Persons) != 5 {
		t.Errorf("Expected 5 person candidates, got %d", len(set.Persons))
	}

	if set.Dropped() != 0 {
		t.Errorf("Expected no dropped candidates, got %d", set.Dropped())
	}
}

func TestExtractCandidatesDuplicateOfficialMerged(t *testing.T) {
	resolver := NewEntityResolver()
	set := resolver.ExtractCandidates(sampleDocument())

	count := 0
	for _, p := range set.Persons {
		if p.PersonID == "o-foster" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected duplicate official to merge to 1 candidate, got %d", count)
	}
}

func TestExtractCandidatesOfficialDefaultRole(t *testing.T) {
	resolver := NewEntityResolver()
	set := resolver.ExtractCandidates(sampleDocument())

	for _, p := range set.Persons {
		if p.PersonID == "o-smith" && p.Role != "official" {
			t.Errorf("Expected default role 'official', got '%s'", p.Role)
		}
	}
}

func TestExtractCandidatesDropsInvalid(t *testing.T) {
	doc := sampleDocument()
	doc.Venue.ID = ""
	doc.Away.Team.ID = ""
	doc.Home.Players = append(doc.Home.Players, document.PlayerLine{
		Person: document.PersonInfo{Name: "No ID Player"},
	})

	resolver := NewEntityResolver()
	set := resolver.ExtractCandidates(doc)

	if len(set.Venues) != 0 {
		t.Errorf("Expected venue without natural key to be dropped, got %d venues", len(set.Venues))
	}
	if set.DroppedVenues != 1 {
		t.Errorf("Expected 1 dropped venue, got %d", set.DroppedVenues)
	}

	if len(set.Teams) != 1 {
		t.Errorf("Expected 1 valid team, got %d", len(set.Teams))
	}
	if set.DroppedTeams != 1 {
		t.Errorf("Expected 1 dropped team, got %d", set.DroppedTeams)
	}

	if set.DroppedPersons != 1 {
		t.Errorf("Expected 1 dropped person, got %d", set.DroppedPersons)
	}

	if set.Dropped() != 3 {
		t.Errorf("Expected 3 total dropped, got %d", set.Dropped())
	}
}

func TestPopulateError(t *testing.T) {
	err := NewPopulateError("g1", "phase2", ErrMissingVenue)

	expected := "populate g1 failed in phase2: game has no resolvable venue"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}

	if err.Unwrap() != ErrMissingVenue {
		t.Error("Expected Unwrap to return the cause")
	}
}
