package services

import (
	"time"

	"boxscore-service/database"
	"boxscore-service/document"
	"boxscore-service/logger"
)

// IngestSummary 抓取入库汇总
type IngestSummary struct {
	Total     int           `json:"total"`
	Fetched   int           `json:"fetched"`
	Failed    int           `json:"failed"`
	FailedIDs []string      `json:"failed_ids"`
	Duration  time.Duration `json:"duration"`

	Populate *PopulateSummary `json:"populate,omitempty"`
}

// GameIngestor 抓取编排。从数据源拉取比赛文档，写入原始文档存储，
// 然后批量入库。抓取受共享限速约束，批与批之间暂停。
type GameIngestor struct {
	client     *document.Client
	rawStore   *RawGameStore
	populator  *GamePopulator
	temporal   *TemporalTracker
	batchSize  int
	batchPause time.Duration
	reconcile  bool
}

// NewGameIngestor 创建抓取编排器
func NewGameIngestor(client *document.Client, rawStore *RawGameStore, populator *GamePopulator, temporal *TemporalTracker, batchSize int, batchPause time.Duration, reconcile bool) *GameIngestor {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &GameIngestor{
		client:     client,
		rawStore:   rawStore,
		populator:  populator,
		temporal:   temporal,
		batchSize:  batchSize,
		batchPause: batchPause,
		reconcile:  reconcile,
	}
}

// IngestGames 抓取并入库一批比赛。抓取失败的比赛只记入汇总，
// 不影响其他比赛；入库阶段交给 PopulateStored 按时间顺序处理。
func (g *GameIngestor) IngestGames(gameIDs []string, season string, populate bool) *IngestSummary {
	start := time.Now()
	summary := &IngestSummary{Total: len(gameIDs)}

	var storedIDs []string
	for i, gameID := range gameIDs {
		if i > 0 && i%g.batchSize == 0 && g.batchPause > 0 {
			logger.Printf("[Ingestor] ⏸️  Pausing %v between batches (%d/%d done)",
				g.batchPause, i, len(gameIDs))
			time.Sleep(g.batchPause)
		}

		sourceURL := g.client.BoxscoreURL(gameID)
		fetch := g.client.FetchGame(sourceURL)
		if fetch.Outcome != document.OutcomeSuccess {
			logger.Errorf("[Ingestor] ❌ Fetch failed for %s: %s (%v)", gameID, fetch.Outcome, fetch.Err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, gameID)
			continue
		}

		raw := &database.RawGame{
			GameID:      gameID,
			Season:      fetch.Document.Season,
			GameType:    fetch.Document.GameType,
			SourceURL:   sourceURL,
			Payload:     string(fetch.Raw),
			RetrievedAt: time.Now(),
		}
		if raw.Season == "" {
			raw.Season = season
		}

		if err := g.rawStore.Replace(raw); err != nil {
			logger.Errorf("[Ingestor] ❌ Failed to store raw game %s: %v", gameID, err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, gameID)
			continue
		}

		summary.Fetched++
		storedIDs = append(storedIDs, gameID)
		logger.Printf("[Ingestor] 📥 Stored %s (%d bytes in %v)", gameID, fetch.Bytes, fetch.Duration)
	}

	if populate && len(storedIDs) > 0 {
		summary.Populate = g.populator.PopulateStored(storedIDs, false)

		if g.reconcile {
			if _, err := g.temporal.ReconcileUsage(); err != nil {
				logger.Errorf("[Ingestor] ❌ Reconcile after ingest failed: %v", err)
			}
		}
	}

	summary.Duration = time.Since(start)
	logger.Printf("[Ingestor] ✅ Ingest completed in %v: fetched=%d failed=%d",
		summary.Duration, summary.Fetched, summary.Failed)

	return summary
}
