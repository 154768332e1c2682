package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save inserts or updates a history snapshot.
func (r *HistoryRepository) Save(ctx context.Context, s *domain.HistorySnapshot) error {
	const q = `
INSERT INTO analysis_history
  (analysis_id, filename, health_score, overall_risk, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (analysis_id) DO UPDATE SET
  filename=EXCLUDED.filename,
  health_score=EXCLUDED.health_score,
  overall_risk=EXCLUDED.overall_risk;
`
	createdAt := s.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, s.AnalysisID, s.Filename, s.HealthScore, string(s.OverallRisk), createdAt)
	return err
}

// Latest returns the most recent snapshots, newest first.
func (r *HistoryRepository) Latest(ctx context.Context, limit int) ([]*domain.HistorySnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT analysis_id, filename, health_score, overall_risk, created_at
FROM analysis_history
ORDER BY created_at DESC, analysis_id DESC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HistorySnapshot
	for rows.Next() {
		var s domain.HistorySnapshot
		var risk string
		if err := rows.Scan(&s.AnalysisID, &s.Filename, &s.HealthScore, &risk, &s.Timestamp); err != nil {
			return nil, err
		}
		s.OverallRisk = domain.Risk(risk)
		out = append(out, &s)
	}
	return out, rows.Err()
}
