package services

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"boxscore-service/document"
	"boxscore-service/logger"
)

// QueuedGame 待处理队列中的一场比赛
type QueuedGame struct {
	GameID string
	Date   time.Time
	Doc    *document.GameDocument
}

// SortChronologically 按比赛日期排序待处理队列。
// 没有可解析日期的文档带哨兵日期，排在最前，不会破坏真实顺序。
// 同一天的比赛按比赛 ID 排序，保证批次可复现。
func SortChronologically(queue []QueuedGame) {
	sort.SliceStable(queue, func(i, j int) bool {
		if !queue[i].Date.Equal(queue[j].Date) {
			return queue[i].Date.Before(queue[j].Date)
		}
		return queue[i].GameID < queue[j].GameID
	})
}

// ReconcileResult 时间字段校正结果
type ReconcileResult struct {
	Checked   map[string]int
	Corrected map[string]int
	Duration  time.Duration
}

// TotalCorrected 返回校正的总行数
func (r *ReconcileResult) TotalCorrected() int {
	total := 0
	for _, n := range r.Corrected {
		total += n
	}
	return total
}

// TemporalTracker 时间跟踪器。维护引用实体的 first_used/last_used：
// 入库时用单调 min/max 规则就地更新；独立的校正任务按关联比赛的
// 实际日期范围修正漂移，可任意次重复执行。
type TemporalTracker struct {
	db        *sql.DB
	batchSize int
}

// NewTemporalTracker 创建时间跟踪器
func NewTemporalTracker(db *sql.DB, batchSize int) *TemporalTracker {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &TemporalTracker{db: db, batchSize: batchSize}
}

// TouchUsage 入库时更新实体的使用时间。只用单调规则
// (first_used 取 min，last_used 取 max)，并发写同一实体时结果与顺序无关。
// 哨兵日期不参与更新。
func (t *TemporalTracker) TouchUsage(tx *sql.Tx, date time.Time, venueID int64, teamIDs, personIDs []int64) error {
	if date.Equal(document.SentinelDate) {
		return nil
	}

	if venueID != 0 {
		if err := t.touch(tx, "venues", date, []int64{venueID}); err != nil {
			return err
		}
	}
	if err := t.touch(tx, "teams", date, teamIDs); err != nil {
		return err
	}
	return t.touch(tx, "persons", date, personIDs)
}

func (t *TemporalTracker) touch(tx *sql.Tx, table string, date time.Time, ids []int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			first_used = LEAST(COALESCE(first_used, $1::date), $1::date),
			last_used = GREATEST(COALESCE(last_used, $1::date), $1::date)
		WHERE id = $2
	`, table)

	for _, id := range ids {
		if _, err := tx.Exec(query, date, id); err != nil {
			return fmt.Errorf("failed to touch %s %d: %w", table, id, err)
		}
	}
	return nil
}

// ReconcileUsage 校正所有引用实体的 first_used/last_used，使其严格等于
// 关联比赛日期的 min/max。分批处理，不一次性加载全部实体；
// 已正确的行不产生写入，重复执行无副作用。
func (t *TemporalTracker) ReconcileUsage() (*ReconcileResult, error) {
	start := time.Now()
	result := &ReconcileResult{
		Checked:   make(map[string]int),
		Corrected: make(map[string]int),
	}

	specs := []struct {
		table string
		query string
	}{
		{
			table: "venues",
			query: `
				SELECT v.id, v.first_used, v.last_used, MIN(g.game_date), MAX(g.game_date)
				FROM venues v
				LEFT JOIN games g ON g.venue_id = v.id AND g.game_date IS NOT NULL
				WHERE v.id > $1
				GROUP BY v.id
				ORDER BY v.id
				LIMIT $2`,
		},
		{
			table: "teams",
			query: `
				SELECT t.id, t.first_used, t.last_used, MIN(g.game_date), MAX(g.game_date)
				FROM teams t
				LEFT JOIN game_teams gt ON gt.team_id = t.id
				LEFT JOIN games g ON g.id = gt.game_id AND g.game_date IS NOT NULL
				WHERE t.id > $1
				GROUP BY t.id
				ORDER BY t.id
				LIMIT $2`,
		},
		{
			table: "persons",
			query: `
				SELECT p.id, p.first_used, p.last_used, MIN(g.game_date), MAX(g.game_date)
				FROM persons p
				LEFT JOIN game_persons gp ON gp.person_id = p.id
				LEFT JOIN games g ON g.id = gp.game_id AND g.game_date IS NOT NULL
				WHERE p.id > $1
				GROUP BY p.id
				ORDER BY p.id
				LIMIT $2`,
		},
	}

	for _, spec := range specs {
		checked, corrected, err := t.reconcileTable(spec.table, spec.query)
		if err != nil {
			return nil, err
		}
		result.Checked[spec.table] = checked
		result.Corrected[spec.table] = corrected
	}

	result.Duration = time.Since(start)
	logger.Printf("[Temporal] ✅ Reconcile completed in %v: corrected %d rows (venues=%d teams=%d persons=%d)",
		result.Duration, result.TotalCorrected(),
		result.Corrected["venues"], result.Corrected["teams"], result.Corrected["persons"])

	return result, nil
}

// reconcileTable 分批校正单个实体表
func (t *TemporalTracker) reconcileTable(table, query string) (int, int, error) {
	checked := 0
	corrected := 0
	lastID := int64(0)

	for {
		batch, err := t.fetchBatch(query, lastID)
		if err != nil {
			return checked, corrected, fmt.Errorf("failed to scan %s batch: %w", table, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, row := range batch {
			lastID = row.id
			checked++

			// minDate/maxDate 为空表示没有任何带日期的比赛引用这个实体，
			// 残留的时间字段也会被清空 (写入 NULL)
			if datesEqual(row.firstUsed, row.minDate) && datesEqual(row.lastUsed, row.maxDate) {
				continue
			}

			updateQuery := fmt.Sprintf(`UPDATE %s SET first_used = $1, last_used = $2 WHERE id = $3`, table)
			if _, err := t.db.Exec(updateQuery, row.minDate, row.maxDate, row.id); err != nil {
				return checked, corrected, fmt.Errorf("failed to correct %s %d: %w", table, row.id, err)
			}
			corrected++
		}

		logger.Printf("[Temporal] 🔄 Reconciled %s batch: checked=%d corrected=%d (last id %d)",
			table, checked, corrected, lastID)

		if len(batch) < t.batchSize {
			break
		}
	}

	return checked, corrected, nil
}

type usageRow struct {
	id        int64
	firstUsed *time.Time
	lastUsed  *time.Time
	minDate   *time.Time
	maxDate   *time.Time
}

func (t *TemporalTracker) fetchBatch(query string, lastID int64) ([]usageRow, error) {
	rows, err := t.db.Query(query, lastID, t.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batch []usageRow
	for rows.Next() {
		var row usageRow
		if err := rows.Scan(&row.id, &row.firstUsed, &row.lastUsed, &row.minDate, &row.maxDate); err != nil {
			return nil, err
		}
		batch = append(batch, row)
	}
	return batch, rows.Err()
}

func datesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
