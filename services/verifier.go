package services

import (
	"fmt"
	"time"

	"boxscore-service/database"
	"boxscore-service/document"
	"boxscore-service/logger"
)

// VerifyStatus 校验结果状态
type VerifyStatus string

const (
	VerifyIdentical VerifyStatus = "identical"
	VerifyUpdated   VerifyStatus = "updated"
	VerifyFailed    VerifyStatus = "failed"
	VerifyNotFound  VerifyStatus = "not_found"
)

const (
	// eventComparePrefix 逐回合比较的前缀上限
	eventComparePrefix = 100

	// eventReportLimit 每次最多上报的事件差异条数
	eventReportLimit = 5
)

// trackedStatKeys 聚合统计比较的固定键集
var trackedStatKeys = []string{
	"points", "rebounds", "assists", "field_goals_made", "free_throws_made",
}

// ChangeReport 一场比赛的变更报告
type ChangeReport struct {
	TotalChanges    int                 `json:"total_changes"`
	SectionsChanged []string            `json:"sections_changed"`
	Details         map[string][]string `json:"details"`
}

func newChangeReport() *ChangeReport {
	return &ChangeReport{
		SectionsChanged: []string{},
		Details:         make(map[string][]string),
	}
}

func (r *ChangeReport) addSection(section string, changes []string) {
	if len(changes) == 0 {
		return
	}
	r.SectionsChanged = append(r.SectionsChanged, section)
	r.Details[section] = changes
	r.TotalChanges += len(changes)
}

// VerifyResult 单场比赛的校验结果
type VerifyResult struct {
	GameID  string        `json:"game_id"`
	Status  VerifyStatus  `json:"status"`
	Changes *ChangeReport `json:"changes,omitempty"`
	Outcome string        `json:"fetch_outcome,omitempty"`
}

// VerifySummary 批量校验汇总
type VerifySummary struct {
	Total     int             `json:"total"`
	Identical int             `json:"identical"`
	Updated   int             `json:"updated"`
	Failed    int             `json:"failed"`
	NotFound  int             `json:"not_found"`
	Results   []*VerifyResult `json:"results"`
	Duration  time.Duration   `json:"duration"`
}

// GameVerifier 校验引擎。重新抓取一场比赛的文档，与已存储的逐节比较，
// 判定 no-op 还是整体替换。判定替换时先删后插原始文档，
// 再用 override 模式重跑入库。
type GameVerifier struct {
	rawStore   *RawGameStore
	populator  *GamePopulator
	fetcher    document.Fetcher
	batchSize  int
	batchPause time.Duration
	notifier   ProgressNotifier
}

// NewGameVerifier 创建校验引擎
func NewGameVerifier(rawStore *RawGameStore, populator *GamePopulator, fetcher document.Fetcher, batchSize int, batchPause time.Duration) *GameVerifier {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &GameVerifier{
		rawStore:   rawStore,
		populator:  populator,
		fetcher:    fetcher,
		batchSize:  batchSize,
		batchPause: batchPause,
	}
}

// SetNotifier 设置进度广播器
func (v *GameVerifier) SetNotifier(n ProgressNotifier) {
	v.notifier = n
}

// CompareAndUpdate 校验单场比赛。
// 判定策略: 全部一致 → 不写; 检测到变更 → 替换原始文档并 override 重入库;
// 抓取失败 → failed，存量不动; 本地没有这场比赛 → not_found。
func (v *GameVerifier) CompareAndUpdate(gameID string) *VerifyResult {
	stored, err := v.rawStore.Get(gameID)
	if err == ErrNotFound {
		return &VerifyResult{GameID: gameID, Status: VerifyNotFound}
	}
	if err != nil {
		logger.Errorf("[Verifier] ❌ Failed to load stored game %s: %v", gameID, err)
		return &VerifyResult{GameID: gameID, Status: VerifyFailed}
	}

	fetch := v.fetcher.FetchGame(stored.SourceURL)
	if fetch.Outcome != document.OutcomeSuccess {
		logger.Errorf("[Verifier] ❌ Fetch failed for %s: %s (%v)", gameID, fetch.Outcome, fetch.Err)
		return &VerifyResult{GameID: gameID, Status: VerifyFailed, Outcome: fetch.Outcome.String()}
	}

	storedDoc, err := document.Parse([]byte(stored.Payload))
	if err != nil {
		// 存量文档损坏时按变更处理，用新文档整体替换
		logger.Errorf("[Verifier] ⚠️  Stored payload for %s unparseable, replacing: %v", gameID, err)
		return v.replace(gameID, stored, fetch, &ChangeReport{
			TotalChanges:    1,
			SectionsChanged: []string{"document"},
			Details:         map[string][]string{"document": {"Stored payload unparseable"}},
		})
	}

	report := CompareDocuments(storedDoc, fetch.Document)
	if report.TotalChanges == 0 {
		// 各节都没发现差异时，用整文档结构比较兜底，
		// 防止变更发生在比较器不认识的字段上
		if !document.StructurallyEqual([]byte(stored.Payload), fetch.Raw) {
			report.addSection("document", []string{"Document changed outside tracked sections"})
		}
	}

	if report.TotalChanges == 0 {
		return &VerifyResult{GameID: gameID, Status: VerifyIdentical, Changes: report}
	}

	return v.replace(gameID, stored, fetch, report)
}

// replace 整体替换原始文档并 override 重入库
func (v *GameVerifier) replace(gameID string, stored *database.RawGame, fetch document.FetchResult, report *ChangeReport) *VerifyResult {
	raw := &database.RawGame{
		GameID:      gameID,
		Season:      fetch.Document.Season,
		GameType:    fetch.Document.GameType,
		SourceURL:   stored.SourceURL,
		Payload:     string(fetch.Raw),
		RetrievedAt: time.Now(),
	}
	if raw.Season == "" {
		raw.Season = stored.Season
	}

	if err := v.rawStore.Replace(raw); err != nil {
		logger.Errorf("[Verifier] ❌ Failed to replace raw game %s: %v", gameID, err)
		return &VerifyResult{GameID: gameID, Status: VerifyFailed, Changes: report}
	}

	if _, err := v.populator.PopulateGame(gameID, true); err != nil {
		logger.Errorf("[Verifier] ❌ Failed to repopulate game %s: %v", gameID, err)
		return &VerifyResult{GameID: gameID, Status: VerifyFailed, Changes: report}
	}

	logger.Printf("[Verifier] 🔄 Game %s updated: %d changes in %v",
		gameID, report.TotalChanges, report.SectionsChanged)

	return &VerifyResult{GameID: gameID, Status: VerifyUpdated, Changes: report}
}

// VerifyBatch 批量校验。按固定批大小分批，批与批之间暂停，
// 避免压垮数据源。
func (v *GameVerifier) VerifyBatch(gameIDs []string) *VerifySummary {
	start := time.Now()
	summary := &VerifySummary{Total: len(gameIDs)}

	for i, gameID := range gameIDs {
		if i > 0 && i%v.batchSize == 0 && v.batchPause > 0 {
			logger.Printf("[Verifier] ⏸️  Pausing %v between batches (%d/%d done)",
				v.batchPause, i, len(gameIDs))
			time.Sleep(v.batchPause)
		}

		result := v.CompareAndUpdate(gameID)
		summary.Results = append(summary.Results, result)

		switch result.Status {
		case VerifyIdentical:
			summary.Identical++
		case VerifyUpdated:
			summary.Updated++
		case VerifyFailed:
			summary.Failed++
		case VerifyNotFound:
			summary.NotFound++
		}

		if v.notifier != nil {
			v.notifier.Broadcast(map[string]interface{}{
				"type":    "verify_progress",
				"game_id": gameID,
				"status":  string(result.Status),
			})
		}
	}

	summary.Duration = time.Since(start)
	logger.Printf("[Verifier] ✅ Batch completed in %v: identical=%d updated=%d failed=%d not_found=%d",
		summary.Duration, summary.Identical, summary.Updated, summary.Failed, summary.NotFound)

	return summary
}

// CompareDocuments 逐节比较两份文档，生成变更报告。
// 五个固定节独立比较: 比赛元数据、事件流、聚合统计、名单人数、裁判人数。
func CompareDocuments(old, fresh *document.GameDocument) *ChangeReport {
	report := newChangeReport()
	report.addSection("game_metadata", compareMetadata(old, fresh))
	report.addSection("events", compareEvents(old.Events, fresh.Events))
	report.addSection("team_stats", compareTeamStats(old, fresh))
	report.addSection("rosters", compareRosters(old, fresh))
	report.addSection("officials", compareOfficials(old.Officials, fresh.Officials))
	return report
}

// compareMetadata 比较比赛状态、节次和比分
func compareMetadata(old, fresh *document.GameDocument) []string {
	var changes []string

	if old.Status != fresh.Status {
		changes = append(changes, fmt.Sprintf("Status: %s → %s", old.Status, fresh.Status))
	}
	if old.Period != fresh.Period {
		changes = append(changes, fmt.Sprintf("Period: %d → %d", old.Period, fresh.Period))
	}
	if old.Home.Score != fresh.Home.Score || old.Away.Score != fresh.Away.Score {
		changes = append(changes, fmt.Sprintf("Score: %d-%d → %d-%d",
			old.Away.Score, old.Home.Score, fresh.Away.Score, fresh.Home.Score))
	}

	return changes
}

// compareEvents 比较事件流。先比长度，再逐条比较有限前缀，
// 上报的差异条数有上限，保证输出有界。
func compareEvents(old, fresh []document.Event) []string {
	var changes []string

	if len(old) != len(fresh) {
		changes = append(changes, fmt.Sprintf("Events: %d → %d entries", len(old), len(fresh)))
	}

	limit := len(old)
	if len(fresh) < limit {
		limit = len(fresh)
	}
	if limit > eventComparePrefix {
		limit = eventComparePrefix
	}

	reported := 0
	for i := 0; i < limit && reported < eventReportLimit; i++ {
		if diff := diffEvent(i, old[i], fresh[i]); diff != "" {
			changes = append(changes, diff)
			reported++
		}
	}

	return changes
}

func diffEvent(i int, old, fresh document.Event) string {
	switch {
	case old.Type != fresh.Type:
		return fmt.Sprintf("Event %d: type %s → %s", i, old.Type, fresh.Type)
	case old.Description != fresh.Description:
		return fmt.Sprintf("Event %d: description %q → %q", i, old.Description, fresh.Description)
	case old.Clock != fresh.Clock:
		return fmt.Sprintf("Event %d: clock %s → %s", i, old.Clock, fresh.Clock)
	case old.HomeScore != fresh.HomeScore || old.AwayScore != fresh.AwayScore:
		return fmt.Sprintf("Event %d: score %d-%d → %d-%d", i,
			old.AwayScore, old.HomeScore, fresh.AwayScore, fresh.HomeScore)
	case old.TeamID != fresh.TeamID:
		return fmt.Sprintf("Event %d: team %s → %s", i, old.TeamID, fresh.TeamID)
	case old.PersonID != fresh.PersonID:
		return fmt.Sprintf("Event %d: person %s → %s", i, old.PersonID, fresh.PersonID)
	}
	return ""
}

// compareTeamStats 比较两侧聚合统计的固定键集
func compareTeamStats(old, fresh *document.GameDocument) []string {
	var changes []string

	sides := []struct {
		name       string
		old, fresh map[string]int
	}{
		{"home", old.Home.Stats, fresh.Home.Stats},
		{"away", old.Away.Stats, fresh.Away.Stats},
	}

	for _, side := range sides {
		for _, key := range trackedStatKeys {
			oldVal := side.old[key]
			freshVal := side.fresh[key]
			if oldVal != freshVal {
				changes = append(changes, fmt.Sprintf("%s %s: %d → %d", side.name, key, oldVal, freshVal))
			}
		}
	}

	return changes
}

// compareRosters 比较两侧名单人数
func compareRosters(old, fresh *document.GameDocument) []string {
	var changes []string

	if len(old.Home.Players) != len(fresh.Home.Players) {
		changes = append(changes, fmt.Sprintf("home roster: %d → %d players",
			len(old.Home.Players), len(fresh.Home.Players)))
	}
	if len(old.Away.Players) != len(fresh.Away.Players) {
		changes = append(changes, fmt.Sprintf("away roster: %d → %d players",
			len(old.Away.Players), len(fresh.Away.Players)))
	}

	return changes
}

// compareOfficials 比较裁判组人数
func compareOfficials(old, fresh []document.Official) []string {
	if len(old) != len(fresh) {
		return []string{fmt.Sprintf("officials: %d → %d", len(old), len(fresh))}
	}
	return nil
}
