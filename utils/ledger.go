package utils

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/cppla/pdftoolkit/models"
)

// KindStats aggregates operations of one kind.
type KindStats struct {
	Kind          string  `json:"kind"`
	Count         int64   `json:"count"`
	Failed        int64   `json:"failed"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	Files         int64   `json:"files"`
}

// LedgerSummary is served by /api/stats.
type LedgerSummary struct {
	Total     int64       `json:"total"`
	Succeeded int64       `json:"succeeded"`
	Failed    int64       `json:"failed"`
	ByKind    []KindStats `json:"by_kind"`
}

// Ledger records processing operations.
type Ledger interface {
	Record(ctx context.Context, op models.Operation) error
	Summary(ctx context.Context) (LedgerSummary, error)
}

// NewLedger returns a database backed ledger, or an in-memory one when db is nil.
func NewLedger(db *gorm.DB) Ledger {
	if db == nil {
		return &memoryLedger{}
	}
	return &gormLedger{db: db}
}

type gormLedger struct {
	db *gorm.DB
}

func (l *gormLedger) Record(ctx context.Context, op models.Operation) error {
	return l.db.WithContext(ctx).Create(&op).Error
}

func (l *gormLedger) Summary(ctx context.Context) (LedgerSummary, error) {
	var rows []KindStats
	err := l.db.WithContext(ctx).Model(&models.Operation{}).
		Select("kind, COUNT(*) AS count, " +
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END),0) AS failed, " +
			"COALESCE(AVG(duration_ms),0) AS avg_duration_ms, " +
			"COALESCE(SUM(file_count),0) AS files").
		Group("kind").
		Order("kind").
		Scan(&rows).Error
	if err != nil {
		return LedgerSummary{}, err
	}
	return summarize(rows), nil
}

type memoryLedger struct {
	mu  sync.Mutex
	ops []models.Operation
}

func (l *memoryLedger) Record(_ context.Context, op models.Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
	return nil
}

func (l *memoryLedger) Summary(_ context.Context) (LedgerSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byKind := map[string]*KindStats{}
	durations := map[string]int64{}
	for _, op := range l.ops {
		ks, ok := byKind[op.Kind]
		if !ok {
			ks = &KindStats{Kind: op.Kind}
			byKind[op.Kind] = ks
		}
		ks.Count++
		if !op.Success {
			ks.Failed++
		}
		ks.Files += int64(op.FileCount)
		durations[op.Kind] += op.DurationMS
	}

	rows := make([]KindStats, 0, len(byKind))
	for kind, ks := range byKind {
		ks.AvgDurationMS = float64(durations[kind]) / float64(ks.Count)
		rows = append(rows, *ks)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Kind < rows[j].Kind })
	return summarize(rows), nil
}

func summarize(rows []KindStats) LedgerSummary {
	s := LedgerSummary{ByKind: rows}
	for _, r := range rows {
		s.Total += r.Count
		s.Failed += r.Failed
	}
	s.Succeeded = s.Total - s.Failed
	if s.ByKind == nil {
		s.ByKind = []KindStats{}
	}
	return s
}
