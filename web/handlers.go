package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ingestRequest 抓取请求体
type ingestRequest struct {
	GameIDs  []string `json:"game_ids"`
	Season   string   `json:"season"`
	Populate *bool    `json:"populate"`
}

// handleIngest 抓取并入库一批比赛
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.GameIDs) == 0 {
		http.Error(w, "game_ids is required", http.StatusBadRequest)
		return
	}

	populate := true
	if req.Populate != nil {
		populate = *req.Populate
	}

	log.Printf("[API] Ingest requested: %d games (populate=%v)", len(req.GameIDs), populate)
	summary := s.ingestor.IngestGames(req.GameIDs, req.Season, populate)
	writeJSON(w, http.StatusOK, summary)
}

// populateRequest 入库请求体
type populateRequest struct {
	GameIDs  []string `json:"game_ids"`
	Override bool     `json:"override"`
}

// handlePopulateBatch 批量入库已存储的比赛 (缺省为全部)
func (s *Server) handlePopulateBatch(w http.ResponseWriter, r *http.Request) {
	var req populateRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	gameIDs := req.GameIDs
	if len(gameIDs) == 0 {
		var err error
		gameIDs, err = s.rawStore.ListIDs()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	log.Printf("[API] Populate requested: %d games (override=%v)", len(gameIDs), req.Override)
	summary := s.populator.PopulateStored(gameIDs, req.Override)
	writeJSON(w, http.StatusOK, summary)
}

// handlePopulateGame 入库单场比赛
func (s *Server) handlePopulateGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]
	override := r.URL.Query().Get("override") == "true"

	counts, err := s.populator.PopulateGame(gameID, override)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":  gameID,
		"override": override,
		"inserted": counts,
	})
}

// handleRebuild 全量重建: 清空规范化表后从原始文档重新入库并校正时间字段
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		http.Error(w, "Missing confirmation. Add ?confirm=yes to proceed", http.StatusBadRequest)
		return
	}

	deleted, err := s.populator.HardReset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	gameIDs, err := s.rawStore.ListIDs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summary := s.populator.PopulateStored(gameIDs, false)

	reconcile, err := s.temporal.ReconcileUsage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted_counts": deleted,
		"populate":       summary,
		"reconcile":      reconcile,
	})
}

// handleReset 清空所有规范化表 (保留原始文档)
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		http.Error(w, "Missing confirmation. Add ?confirm=yes to proceed", http.StatusBadRequest)
		return
	}

	deleted, err := s.populator.HardReset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	total := int64(0)
	for _, n := range deleted {
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"total_deleted":  total,
		"deleted_counts": deleted,
	})
}

// verifyRequest 校验请求体
type verifyRequest struct {
	GameIDs []string `json:"game_ids"`
	Season  string   `json:"season"`
}

// handleVerifyBatch 批量校验 (缺省为全部已存储比赛)
func (s *Server) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	gameIDs := req.GameIDs
	if len(gameIDs) == 0 {
		var err error
		if req.Season != "" {
			gameIDs, err = s.rawStore.ListSeasonIDs(req.Season)
		} else {
			gameIDs, err = s.rawStore.ListIDs()
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	log.Printf("[API] Verify requested: %d games", len(gameIDs))
	summary := s.verifier.VerifyBatch(gameIDs)
	writeJSON(w, http.StatusOK, summary)
}

// handleVerifyGame 校验单场比赛
func (s *Server) handleVerifyGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]
	result := s.verifier.CompareAndUpdate(gameID)

	status := http.StatusOK
	if result.Status == "not_found" {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

// handleReconcile 执行时间字段校正
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.temporal.ReconcileUsage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleIntegrity 执行一致性检查
func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.checker.Check()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": report.Total(),
		"report":     report,
	})
}

// handleListGames 查询比赛列表
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	season := query.Get("season")

	sqlQuery := `
		SELECT g.game_id, g.season, g.game_type, g.game_date,
			v.name, ht.name, at.name, g.home_score, g.away_score, g.winner
		FROM games g
		JOIN venues v ON g.venue_id = v.id
		LEFT JOIN teams ht ON g.home_team_id = ht.id
		LEFT JOIN teams at ON g.away_team_id = at.id
	`
	args := []interface{}{}
	if season != "" {
		sqlQuery += ` WHERE g.season = $1`
		args = append(args, season)
	}
	sqlQuery += fmt.Sprintf(` ORDER BY g.game_date DESC NULLS LAST LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	games := []map[string]interface{}{}
	for rows.Next() {
		var gameID, seasonVal, gameType string
		var gameDate, venueName, homeTeam, awayTeam, winner *string
		var homeScore, awayScore *int

		if err := rows.Scan(&gameID, &seasonVal, &gameType, &gameDate,
			&venueName, &homeTeam, &awayTeam, &homeScore, &awayScore, &winner); err != nil {
			continue
		}

		games = append(games, map[string]interface{}{
			"game_id":    gameID,
			"season":     seasonVal,
			"game_type":  gameType,
			"game_date":  gameDate,
			"venue":      venueName,
			"home_team":  homeTeam,
			"away_team":  awayTeam,
			"home_score": homeScore,
			"away_score": awayScore,
			"winner":     winner,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// handleGetGame 查询单场比赛详情
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]

	var seasonVal, gameType string
	var gameDate, venueName, homeTeam, awayTeam, winner *string
	var homeScore, awayScore, attendance, duration *int
	var internalID int64

	err := s.db.QueryRow(`
		SELECT g.id, g.season, g.game_type, g.game_date,
			v.name, ht.name, at.name, g.home_score, g.away_score,
			g.winner, g.attendance, g.duration_minutes
		FROM games g
		JOIN venues v ON g.venue_id = v.id
		LEFT JOIN teams ht ON g.home_team_id = ht.id
		LEFT JOIN teams at ON g.away_team_id = at.id
		WHERE g.game_id = $1
	`, gameID).Scan(&internalID, &seasonVal, &gameType, &gameDate,
		&venueName, &homeTeam, &awayTeam, &homeScore, &awayScore,
		&winner, &attendance, &duration)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	var eventCount, statLineCount, personCount int
	s.db.QueryRow(`SELECT COUNT(*) FROM play_events WHERE game_id = $1`, internalID).Scan(&eventCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM stat_lines WHERE game_id = $1`, internalID).Scan(&statLineCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM game_persons WHERE game_id = $1`, internalID).Scan(&personCount)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":          gameID,
		"season":           seasonVal,
		"game_type":        gameType,
		"game_date":        gameDate,
		"venue":            venueName,
		"home_team":        homeTeam,
		"away_team":        awayTeam,
		"home_score":       homeScore,
		"away_score":       awayScore,
		"winner":           winner,
		"attendance":       attendance,
		"duration_minutes": duration,
		"play_events":      eventCount,
		"stat_lines":       statLineCount,
		"participants":     personCount,
	})
}

// handleGetRawGame 查询原始文档
func (s *Server) handleGetRawGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]

	raw, err := s.rawStore.Get(gameID)
	if err != nil {
		http.Error(w, "raw game not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":      raw.GameID,
		"season":       raw.Season,
		"game_type":    raw.GameType,
		"source_url":   raw.SourceURL,
		"payload":      json.RawMessage(raw.Payload),
		"retrieved_at": raw.RetrievedAt,
		"updated_at":   raw.UpdatedAt,
	})
}

// handleStats 各表行数统计
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tables := []string{
		"raw_games", "venues", "teams", "persons", "games",
		"game_teams", "game_persons", "play_events", "stat_lines",
	}

	counts := make(map[string]int64)
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			// 如果表不存在，跳过
			continue
		}
		counts[table] = count
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"row_counts": counts,
	})
}
