package services

import (
	"database/sql"
	"fmt"

	"boxscore-service/document"
	"boxscore-service/logger"
)

// Querier 查询接口，*sql.DB 和 *sql.Tx 都满足。
// 关联行写入时的自然 ID 查询总是走这里，不走进程内缓存。
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// VenueCandidate 场馆候选记录
type VenueCandidate struct {
	VenueID string
	Name    string
	City    string
}

// TeamCandidate 球队候选记录
type TeamCandidate struct {
	TeamID       string
	Abbreviation string
	Name         string
	City         string
}

// PersonCandidate 人员候选记录
type PersonCandidate struct {
	PersonID string
	Name     string
	Role     string
}

// CandidateSet 一份文档提取出的全部候选实体。
// 无效候选 (缺少自然 ID) 已被丢弃，只保留计数。
type CandidateSet struct {
	Venues  []VenueCandidate
	Teams   []TeamCandidate
	Persons []PersonCandidate

	DroppedVenues  int
	DroppedTeams   int
	DroppedPersons int
}

// Dropped 返回丢弃的候选总数
func (c *CandidateSet) Dropped() int {
	return c.DroppedVenues + c.DroppedTeams + c.DroppedPersons
}

// EntityResolver 实体解析器。从文档提取候选实体，并把自然 ID 解析为内部 ID。
type EntityResolver struct{}

// NewEntityResolver 创建实体解析器
func NewEntityResolver() *EntityResolver {
	return &EntityResolver{}
}

// ExtractCandidates 从一份文档提取候选实体。
// 同一自然 ID 在文档内出现多次时合并为一条 (主客队是不同球队，不算重复；
// 同一名裁判按角色槽位出现多次则需要合并)。
func (r *EntityResolver) ExtractCandidates(doc *document.GameDocument) *CandidateSet {
	set := &CandidateSet{}

	// 场馆
	if doc.Venue.ID != "" {
		set.Venues = append(set.Venues, VenueCandidate{
			VenueID: doc.Venue.ID,
			Name:    doc.Venue.Name,
			City:    doc.Venue.City,
		})
	} else {
		set.DroppedVenues++
	}

	// 球队 (主客两侧)
	seenTeams := make(map[string]bool)
	for _, side := range []document.TeamSide{doc.Home, doc.Away} {
		if side.Team.ID == "" {
			set.DroppedTeams++
			continue
		}
		if seenTeams[side.Team.ID] {
			continue
		}
		seenTeams[side.Team.ID] = true
		set.Teams = append(set.Teams, TeamCandidate{
			TeamID:       side.Team.ID,
			Abbreviation: side.Team.Abbreviation,
			Name:         side.Team.Name,
			City:         side.Team.City,
		})
	}

	// 人员 (球员 + 裁判)
	seenPersons := make(map[string]bool)
	addPerson := func(id, name, role string) {
		if id == "" {
			set.DroppedPersons++
			return
		}
		if seenPersons[id] {
			return
		}
		seenPersons[id] = true
		set.Persons = append(set.Persons, PersonCandidate{
			PersonID: id,
			Name:     name,
			Role:     role,
		})
	}

	for _, side := range []document.TeamSide{doc.Home, doc.Away} {
		for _, player := range side.Players {
			addPerson(player.Person.ID, player.Person.Name, "player")
		}
	}
	for _, official := range doc.Officials {
		role := official.Role
		if role == "" {
			role = "official"
		}
		addPerson(official.ID, official.Name, role)
	}

	if set.Dropped() > 0 {
		logger.Warnf("[Resolver] Dropped %d invalid candidates for game %s (venues=%d teams=%d persons=%d)",
			set.Dropped(), doc.GameID, set.DroppedVenues, set.DroppedTeams, set.DroppedPersons)
	}

	return set
}

// VenueInternalID 场馆自然 ID → 内部 ID。找不到时返回 ErrNotFound。
func (r *EntityResolver) VenueInternalID(q Querier, venueID string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM venues WHERE venue_id = $1`, venueID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve venue %s: %w", venueID, err)
	}
	return id, nil
}

// TeamInternalID 球队自然 ID → 内部 ID。找不到时返回 nil (引用缺口，可空外键留空)。
func (r *EntityResolver) TeamInternalID(q Querier, teamID string) (*int64, error) {
	if teamID == "" {
		return nil, nil
	}
	var id int64
	err := q.QueryRow(`SELECT id FROM teams WHERE team_id = $1`, teamID).Scan(&id)
	if err == sql.ErrNoRows {
		logger.Warnf("[Resolver] Referential gap: team %s has no internal id", teamID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team %s: %w", teamID, err)
	}
	return &id, nil
}

// PersonInternalID 人员自然 ID → 内部 ID。找不到时返回 nil。
func (r *EntityResolver) PersonInternalID(q Querier, personID string) (*int64, error) {
	if personID == "" {
		return nil, nil
	}
	var id int64
	err := q.QueryRow(`SELECT id FROM persons WHERE person_id = $1`, personID).Scan(&id)
	if err == sql.ErrNoRows {
		logger.Warnf("[Resolver] Referential gap: person %s has no internal id", personID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve person %s: %w", personID, err)
	}
	return &id, nil
}

// GameInternalID 比赛自然 ID → 内部 ID。找不到时返回 ErrNotFound。
func (r *EntityResolver) GameInternalID(q Querier, gameID string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM games WHERE game_id = $1`, gameID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve game %s: %w", gameID, err)
	}
	return id, nil
}
