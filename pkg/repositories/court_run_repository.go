package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
)

// CourtRunRepository provides read access to court runs.
type CourtRunRepository interface {
	// ListByCase returns a case's court runs, newest first.
	ListByCase(ctx context.Context, q database.Querier, caseID uuid.UUID) ([]*models.CourtRun, error)
}

type courtRunRepository struct{}

// NewCourtRunRepository creates a new CourtRunRepository.
func NewCourtRunRepository() CourtRunRepository {
	return &courtRunRepository{}
}

var _ CourtRunRepository = (*courtRunRepository)(nil)

func (r *courtRunRepository) ListByCase(ctx context.Context, q database.Querier, caseID uuid.UUID) ([]*models.CourtRun, error) {
	query := `
		SELECT id, case_id, model, started_at, ended_at, status, artifacts
		FROM court_runs
		WHERE case_id = $1
		ORDER BY started_at DESC`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list court runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CourtRun
	for rows.Next() {
		var run models.CourtRun
		var artifacts []byte
		err := rows.Scan(
			&run.ID, &run.CaseID, &run.Model, &run.StartedAt, &run.EndedAt,
			&run.Status, &artifacts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan court run: %w", err)
		}
		if err := unmarshalJSONB(artifacts, &run.Artifacts); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating court runs: %w", err)
	}

	return runs, nil
}
