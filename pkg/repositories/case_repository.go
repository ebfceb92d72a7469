package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
)

// CaseRepository provides read access to ingested cases. Cases are written
// by external ingestion tooling; this engine only serves them.
type CaseRepository interface {
	// ListWithLatestRun returns all cases, newest first, each with its most
	// recent court run when one exists.
	ListWithLatestRun(ctx context.Context, q database.Querier) ([]*models.CaseWithLatestRun, error)

	// GetByID returns a single case, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Case, error)
}

type caseRepository struct{}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository() CaseRepository {
	return &caseRepository{}
}

var _ CaseRepository = (*caseRepository)(nil)

func (r *caseRepository) ListWithLatestRun(ctx context.Context, q database.Querier) ([]*models.CaseWithLatestRun, error) {
	query := `
		SELECT
			c.id, c.created_at, c.source, c.metadata, c.summary, c.status,
			c.redaction_policy_version,
			cr.id, cr.status, cr.started_at, cr.ended_at, cr.model
		FROM cases c
		LEFT JOIN (
			SELECT case_id, MAX(started_at) AS max_started_at
			FROM court_runs
			GROUP BY case_id
		) latest ON latest.case_id = c.id
		LEFT JOIN court_runs cr
			ON cr.case_id = c.id AND cr.started_at = latest.max_started_at
		ORDER BY c.created_at DESC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.CaseWithLatestRun
	for rows.Next() {
		var c models.CaseWithLatestRun
		var source, metadata []byte
		var runID *uuid.UUID
		var runStatus, runModel *string
		var runStartedAt, runEndedAt *time.Time

		err := rows.Scan(
			&c.ID, &c.CreatedAt, &source, &metadata, &c.Summary, &c.Status,
			&c.RedactionPolicyVersion,
			&runID, &runStatus, &runStartedAt, &runEndedAt, &runModel,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}

		if err := unmarshalJSONB(source, &c.Source); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(metadata, &c.Metadata); err != nil {
			return nil, err
		}

		if runID != nil {
			run := models.CaseRunSummary{ID: *runID, EndedAt: runEndedAt, Model: runModel}
			if runStatus != nil {
				run.Status = *runStatus
			}
			if runStartedAt != nil {
				run.StartedAt = *runStartedAt
			}
			c.LatestCourtRun = &run
		}

		cases = append(cases, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}

	return cases, nil
}

func (r *caseRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Case, error) {
	query := `
		SELECT id, created_at, source, metadata, summary, status, redaction_policy_version
		FROM cases
		WHERE id = $1`

	var c models.Case
	var source, metadata []byte
	err := q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CreatedAt, &source, &metadata, &c.Summary, &c.Status,
		&c.RedactionPolicyVersion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan case: %w", err)
	}

	if err := unmarshalJSONB(source, &c.Source); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(metadata, &c.Metadata); err != nil {
		return nil, err
	}

	return &c, nil
}

// unmarshalJSONB decodes a jsonb column into a map, tolerating SQL NULL and
// json null.
func unmarshalJSONB(data []byte, out *map[string]any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb column: %w", err)
	}
	return nil
}
