package services

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"boxscore-service/database"
	"boxscore-service/document"
	"boxscore-service/logger"
)

// ProgressNotifier 接口用于广播进度，避免循环依赖
type ProgressNotifier interface {
	Broadcast(msg interface{})
}

// TableCounts 各表插入行数
type TableCounts map[string]int

// Add 累加另一份计数
func (c TableCounts) Add(other TableCounts) {
	for table, n := range other {
		c[table] += n
	}
}

// PopulateSummary 批量入库汇总。单场失败不会中止批次，
// 调用方拿到的永远是结构化汇总而不是裸异常。
type PopulateSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	FailedIDs []string      `json:"failed_ids"`
	Inserted  TableCounts   `json:"per_table_inserted"`
	Duration  time.Duration `json:"duration"`

	Integrity *IntegrityReport `json:"integrity,omitempty"`
}

// GamePopulator 比赛入库编排器。每场比赛按依赖顺序分三个阶段写入，
// 整场跑在一个事务里，任何阶段失败只回滚这一场。
type GamePopulator struct {
	db       *sql.DB
	rawStore *RawGameStore
	resolver *EntityResolver
	loader   *BulkLoader
	temporal *TemporalTracker
	checker  *IntegrityChecker
	workers  int
	notifier ProgressNotifier
}

// NewGamePopulator 创建入库编排器
func NewGamePopulator(db *sql.DB, rawStore *RawGameStore, temporal *TemporalTracker, workers int) *GamePopulator {
	if workers <= 0 {
		workers = 1
	}
	return &GamePopulator{
		db:       db,
		rawStore: rawStore,
		resolver: NewEntityResolver(),
		loader:   NewBulkLoader(),
		temporal: temporal,
		checker:  NewIntegrityChecker(db),
		workers:  workers,
	}
}

// SetNotifier 设置进度广播器
func (p *GamePopulator) SetNotifier(n ProgressNotifier) {
	p.notifier = n
}

// PopulateGame 入库单场比赛。override 为真时先清掉这场比赛在所有
// 依赖表里的旧行 (逆依赖顺序)，支持安全重处理。
func (p *GamePopulator) PopulateGame(gameID string, override bool) (TableCounts, error) {
	raw, err := p.rawStore.Get(gameID)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse([]byte(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return p.populateDocument(doc, override)
}

// PopulateStored 批量入库已存储的比赛。队列先按文档日期排序，
// 这样实体创建顺序与时间顺序一致，first_used 可以在创建时直接落准。
// 多场比赛之间用固定大小的 worker 池并发，单场失败只记入汇总。
func (p *GamePopulator) PopulateStored(gameIDs []string, override bool) *PopulateSummary {
	start := time.Now()
	summary := &PopulateSummary{
		Total:    len(gameIDs),
		Inserted: make(TableCounts),
	}

	// 加载并解析，解析失败的直接记为失败
	var queue []QueuedGame
	var mu sync.Mutex
	for _, gameID := range gameIDs {
		raw, err := p.rawStore.Get(gameID)
		if err != nil {
			logger.Errorf("[Populator] ❌ Failed to load raw game %s: %v", gameID, err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, gameID)
			continue
		}
		doc, err := document.Parse([]byte(raw.Payload))
		if err != nil {
			logger.Errorf("[Populator] ❌ Failed to parse game %s: %v", gameID, err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, gameID)
			continue
		}
		queue = append(queue, QueuedGame{GameID: gameID, Date: doc.ParsedDate(), Doc: doc})
	}

	// 按时间顺序处理
	SortChronologically(queue)

	// 固定大小 worker 池。共享实体的插入靠 insert-skip 并发安全，
	// 时间字段靠单调 min/max 规则并发安全。
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for _, item := range queue {
		wg.Add(1)
		sem <- struct{}{}
		go func(item QueuedGame) {
			defer wg.Done()
			defer func() { <-sem }()

			counts, err := p.populateDocument(item.Doc, override)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Errorf("[Populator] ❌ Game %s failed: %v", item.GameID, err)
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, item.GameID)
			} else {
				summary.Succeeded++
				summary.Inserted.Add(counts)
			}
			p.broadcastProgress(item.GameID, err)
		}(item)
	}
	wg.Wait()

	summary.Duration = time.Since(start)

	// 批量入库后的外键一致性检查。非零计数是需要上报的错误，
	// 但检查本身不改数据。
	report, err := p.checker.Check()
	if err != nil {
		logger.Errorf("[Populator] ❌ Integrity check failed: %v", err)
	} else {
		summary.Integrity = report
		if report.Total() > 0 {
			logger.Errorf("[Populator] ❌ Integrity violations detected: %d", report.Total())
		}
	}

	logger.Printf("[Populator] ✅ Batch completed in %v: total=%d succeeded=%d failed=%d",
		summary.Duration, summary.Total, summary.Succeeded, summary.Failed)

	return summary
}

// populateDocument 单场比赛的完整入库。阶段顺序:
// Phase 1 独立实体 → Phase 2 比赛记录 → Phase 3 关联行和明细。
func (p *GamePopulator) populateDocument(doc *document.GameDocument, override bool) (TableCounts, error) {
	counts := make(TableCounts)

	tx, err := p.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if override {
		if err := p.deleteGameRows(tx, doc.GameID); err != nil {
			return nil, NewPopulateError(doc.GameID, "override", err)
		}
	}

	// Phase 1: 独立实体 (场馆、球队、人员，彼此无序)
	candidates := p.resolver.ExtractCandidates(doc)

	n, err := p.loader.InsertVenues(tx, candidates.Venues)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase1", err)
	}
	counts["venues"] = n

	n, err = p.loader.InsertTeams(tx, candidates.Teams)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase1", err)
	}
	counts["teams"] = n

	n, err = p.loader.InsertPersons(tx, candidates.Persons)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase1", err)
	}
	counts["persons"] = n

	// Phase 2: 比赛记录。场馆必须已可解析，否则立即失败。
	if doc.Venue.ID == "" {
		return nil, NewPopulateError(doc.GameID, "phase2", ErrMissingVenue)
	}
	venueID, err := p.resolver.VenueInternalID(tx, doc.Venue.ID)
	if err != nil {
		if err == ErrNotFound {
			return nil, NewPopulateError(doc.GameID, "phase2", ErrMissingVenue)
		}
		return nil, NewPopulateError(doc.GameID, "phase2", err)
	}

	homeTeamID, err := p.resolver.TeamInternalID(tx, doc.Home.Team.ID)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase2", err)
	}
	awayTeamID, err := p.resolver.TeamInternalID(tx, doc.Away.Team.ID)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase2", err)
	}

	game := &database.Game{
		GameID:     doc.GameID,
		Season:     doc.Season,
		GameType:   doc.GameType,
		VenueID:    venueID,
		HomeTeamID: homeTeamID,
		AwayTeamID: awayTeamID,
		HomeScore:  intPtr(doc.Home.Score),
		AwayScore:  intPtr(doc.Away.Score),
	}
	if doc.HasDate() {
		d := doc.ParsedDate()
		game.GameDate = &d
	}
	if w := doc.Winner(); w != "" {
		game.Winner = &w
	}
	if doc.Attendance > 0 {
		game.Attendance = intPtr(doc.Attendance)
	}
	if doc.Duration > 0 {
		game.DurationMinutes = intPtr(doc.Duration)
	}

	gameID, n, err := p.loader.InsertGame(tx, game)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase2", err)
	}
	counts["games"] = n

	// Phase 3: 关联行和明细。自然 ID → 内部 ID 的查询在写入时新鲜执行，
	// 结果只在这一场的事务内复用。
	teamIDs := make(map[string]*int64)
	teamIDs[doc.Home.Team.ID] = homeTeamID
	teamIDs[doc.Away.Team.ID] = awayTeamID
	personIDs := make(map[string]*int64)

	lookupTeam := func(naturalID string) (*int64, error) {
		if id, ok := teamIDs[naturalID]; ok {
			return id, nil
		}
		id, err := p.resolver.TeamInternalID(tx, naturalID)
		if err != nil {
			return nil, err
		}
		teamIDs[naturalID] = id
		return id, nil
	}
	lookupPerson := func(naturalID string) (*int64, error) {
		if id, ok := personIDs[naturalID]; ok {
			return id, nil
		}
		id, err := p.resolver.PersonInternalID(tx, naturalID)
		if err != nil {
			return nil, err
		}
		personIDs[naturalID] = id
		return id, nil
	}

	gameTeams, gamePersons, err := p.buildJunctions(gameID, doc, lookupTeam, lookupPerson)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}

	n, err = p.loader.InsertGameTeams(tx, gameTeams)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	counts["game_teams"] = n

	n, err = p.loader.InsertGamePersons(tx, gamePersons)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	counts["game_persons"] = n

	events, err := p.buildEvents(gameID, doc, lookupTeam, lookupPerson)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	n, err = p.loader.InsertPlayEvents(tx, events)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	counts["play_events"] = n

	statLines, err := p.buildStatLines(gameID, doc, lookupTeam, lookupPerson)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	n, err = p.loader.InsertStatLines(tx, statLines)
	if err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}
	counts["stat_lines"] = n

	// 单调更新引用实体的使用时间
	var touchedTeams, touchedPersons []int64
	for _, id := range teamIDs {
		if id != nil {
			touchedTeams = append(touchedTeams, *id)
		}
	}
	for _, id := range personIDs {
		if id != nil {
			touchedPersons = append(touchedPersons, *id)
		}
	}
	if err := p.temporal.TouchUsage(tx, doc.ParsedDate(), venueID, touchedTeams, touchedPersons); err != nil {
		return nil, NewPopulateError(doc.GameID, "phase3", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, NewPopulateError(doc.GameID, "commit", err)
	}

	return counts, nil
}

// buildJunctions 构造关联行，批内按复合键去重
func (p *GamePopulator) buildJunctions(
	gameID int64,
	doc *document.GameDocument,
	lookupTeam func(string) (*int64, error),
	lookupPerson func(string) (*int64, error),
) ([]database.GameTeam, []database.GamePerson, error) {
	var gameTeams []database.GameTeam
	seenTeams := make(map[int64]bool)

	for _, side := range []struct {
		s      document.TeamSide
		isHome bool
	}{{doc.Home, true}, {doc.Away, false}} {
		teamID, err := lookupTeam(side.s.Team.ID)
		if err != nil {
			return nil, nil, err
		}
		if teamID == nil || seenTeams[*teamID] {
			continue
		}
		seenTeams[*teamID] = true
		gameTeams = append(gameTeams, database.GameTeam{
			GameID: gameID,
			TeamID: *teamID,
			IsHome: side.isHome,
		})
	}

	var gamePersons []database.GamePerson
	type personKey struct {
		person int64
		team   int64
	}
	seenPersons := make(map[personKey]bool)

	addPerson := func(naturalPersonID string, teamID *int64, role string) error {
		personID, err := lookupPerson(naturalPersonID)
		if err != nil {
			return err
		}
		// 引用缺口: 人员无法解析时整行丢弃
		if personID == nil {
			return nil
		}
		key := personKey{person: *personID}
		if teamID != nil {
			key.team = *teamID
		}
		if seenPersons[key] {
			return nil
		}
		seenPersons[key] = true
		gamePersons = append(gamePersons, database.GamePerson{
			GameID:   gameID,
			PersonID: *personID,
			TeamID:   teamID,
			Role:     strPtr(role),
		})
		return nil
	}

	for _, side := range []document.TeamSide{doc.Home, doc.Away} {
		teamID, err := lookupTeam(side.Team.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, player := range side.Players {
			if err := addPerson(player.Person.ID, teamID, "player"); err != nil {
				return nil, nil, err
			}
		}
	}

	// 裁判不属于任何球队，team_id 留空
	for _, official := range doc.Officials {
		role := official.Role
		if role == "" {
			role = "official"
		}
		if err := addPerson(official.ID, nil, role); err != nil {
			return nil, nil, err
		}
	}

	return gameTeams, gamePersons, nil
}

// buildEvents 构造逐回合事件行
func (p *GamePopulator) buildEvents(
	gameID int64,
	doc *document.GameDocument,
	lookupTeam func(string) (*int64, error),
	lookupPerson func(string) (*int64, error),
) ([]database.PlayEvent, error) {
	var events []database.PlayEvent
	for _, e := range doc.Events {
		teamID, err := lookupTeam(e.TeamID)
		if err != nil {
			return nil, err
		}
		personID, err := lookupPerson(e.PersonID)
		if err != nil {
			return nil, err
		}
		events = append(events, database.PlayEvent{
			GameID:      gameID,
			Seq:         e.Seq,
			Period:      intPtr(e.Period),
			Clock:       strPtr(e.Clock),
			TeamID:      teamID,
			PersonID:    personID,
			EventType:   strPtr(e.Type),
			Description: strPtr(e.Description),
			HomeScore:   intPtr(e.HomeScore),
			AwayScore:   intPtr(e.AwayScore),
		})
	}
	return events, nil
}

// buildStatLines 构造统计行：每侧一条 team 行，可选 starters/bench 聚合行，
// 以及每名球员一条 player 行。
func (p *GamePopulator) buildStatLines(
	gameID int64,
	doc *document.GameDocument,
	lookupTeam func(string) (*int64, error),
	lookupPerson func(string) (*int64, error),
) ([]database.StatLine, error) {
	var lines []database.StatLine

	for _, side := range []document.TeamSide{doc.Home, doc.Away} {
		teamID, err := lookupTeam(side.Team.ID)
		if err != nil {
			return nil, err
		}
		if teamID == nil {
			// 引用缺口: 球队无法解析，这一侧的统计行全部丢弃
			logger.Warnf("[Populator] Dropping stat lines for unresolvable team %s in game %s",
				side.Team.ID, doc.GameID)
			continue
		}

		if len(side.Stats) > 0 {
			lines = append(lines, statLine(gameID, teamID, nil, "team", side.Stats))
		}
		if len(side.Starters) > 0 {
			lines = append(lines, statLine(gameID, teamID, nil, "starters", side.Starters))
		}
		if len(side.Bench) > 0 {
			lines = append(lines, statLine(gameID, teamID, nil, "bench", side.Bench))
		}

		for _, player := range side.Players {
			personID, err := lookupPerson(player.Person.ID)
			if err != nil {
				return nil, err
			}
			if personID == nil {
				continue
			}
			lines = append(lines, statLine(gameID, teamID, personID, "player", player.Stats))
		}
	}

	return lines, nil
}

func statLine(gameID int64, teamID, personID *int64, scope string, stats map[string]int) database.StatLine {
	return database.StatLine{
		GameID:              gameID,
		TeamID:              teamID,
		PersonID:            personID,
		Scope:               scope,
		Minutes:             statPtr(stats, "minutes"),
		Points:              statPtr(stats, "points"),
		Rebounds:            statPtr(stats, "rebounds"),
		Assists:             statPtr(stats, "assists"),
		Steals:              statPtr(stats, "steals"),
		Blocks:              statPtr(stats, "blocks"),
		Turnovers:           statPtr(stats, "turnovers"),
		FieldGoalsMade:      statPtr(stats, "field_goals_made"),
		FieldGoalsAttempted: statPtr(stats, "field_goals_attempted"),
		ThreePointsMade:     statPtr(stats, "three_points_made"),
		FreeThrowsMade:      statPtr(stats, "free_throws_made"),
		FreeThrowsAttempted: statPtr(stats, "free_throws_attempted"),
		Fouls:               statPtr(stats, "fouls"),
	}
}

// deleteGameRows 逆依赖顺序清掉一场比赛的所有规范化行
func (p *GamePopulator) deleteGameRows(tx *sql.Tx, naturalGameID string) error {
	internalID, err := p.resolver.GameInternalID(tx, naturalGameID)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	tables := []string{"stat_lines", "play_events", "game_persons", "game_teams", "games"}
	for _, table := range tables {
		column := "game_id"
		if table == "games" {
			column = "id"
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, column)
		if _, err := tx.Exec(query, internalID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// HardReset 清空所有规范化表并重置序列。只用于从原始文档全量重建，
// 不会删除 raw_games。
func (p *GamePopulator) HardReset() (map[string]int64, error) {
	logger.Println("[Populator] Starting hard reset...")

	// 按依赖关系顺序删除数据
	tables := []string{
		"stat_lines",
		"play_events",
		"game_persons",
		"game_teams",
		"games",
		"persons",
		"teams",
		"venues",
	}

	deletedCounts := make(map[string]int64)
	for _, table := range tables {
		result, err := p.db.Exec("DELETE FROM " + table)
		if err != nil {
			return deletedCounts, fmt.Errorf("failed to delete from %s: %w", table, err)
		}
		count, _ := result.RowsAffected()
		deletedCounts[table] = count
		logger.Printf("[Populator] ✅ Deleted %d rows from %s", count, table)
	}

	// 重置序列
	sequences := []string{
		"stat_lines_id_seq",
		"play_events_id_seq",
		"game_persons_id_seq",
		"game_teams_id_seq",
		"games_id_seq",
		"persons_id_seq",
		"teams_id_seq",
		"venues_id_seq",
	}
	for _, seq := range sequences {
		if _, err := p.db.Exec("ALTER SEQUENCE IF EXISTS " + seq + " RESTART WITH 1"); err != nil {
			logger.Warnf("[Populator] Failed to reset sequence %s: %v", seq, err)
		}
	}

	logger.Println("[Populator] ✅ Hard reset completed")
	return deletedCounts, nil
}

func (p *GamePopulator) broadcastProgress(gameID string, err error) {
	if p.notifier == nil {
		return
	}
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	p.notifier.Broadcast(map[string]interface{}{
		"type":    "populate_progress",
		"game_id": gameID,
		"status":  status,
	})
}

func intPtr(v int) *int {
	return &v
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func statPtr(stats map[string]int, key string) *int {
	if v, ok := stats[key]; ok {
		return &v
	}
	return nil
}
