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

// PromptUpdateRepository provides data access for prompt update proposals.
// Methods take an explicit database.Querier so the workflow can run them
// inside its own transaction.
type PromptUpdateRepository interface {
	// Create inserts a new proposal in the proposed state.
	Create(ctx context.Context, q database.Querier, update *models.PromptUpdate) error

	// GetByID returns a single proposal, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error)

	// GetByIDForUpdate returns a proposal under a row-level lock. The lock
	// is held until the caller's transaction commits or rolls back.
	GetByIDForUpdate(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error)

	// List returns proposals, newest first, optionally filtered by case and status.
	List(ctx context.Context, q database.Querier, caseID *uuid.UUID, status string) ([]*models.PromptUpdate, error)

	// UpdateReview sets the review outcome on a proposal and returns the updated row.
	UpdateReview(ctx context.Context, q database.Querier, id uuid.UUID, status string, approvedAt *time.Time, approvedBy, comment *string) (*models.PromptUpdate, error)

	// MarkApplied transitions a proposal to applied and stamps applied_at.
	MarkApplied(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error)
}

type promptUpdateRepository struct{}

// NewPromptUpdateRepository creates a new PromptUpdateRepository.
func NewPromptUpdateRepository() PromptUpdateRepository {
	return &promptUpdateRepository{}
}

var _ PromptUpdateRepository = (*promptUpdateRepository)(nil)

const promptUpdateColumns = `
	id, case_id, agent_id, role, from_version, proposal, reason, status,
	created_at, approved_at, applied_at, approved_by, review_comment`

func (r *promptUpdateRepository) Create(ctx context.Context, q database.Querier, update *models.PromptUpdate) error {
	proposal, err := json.Marshal(update.Proposal)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}

	query := `
		INSERT INTO prompt_updates (
			id, case_id, agent_id, role, from_version, proposal, reason, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if update.ID == uuid.Nil {
		update.ID = uuid.New()
	}
	update.Status = models.PromptUpdateStatusProposed

	err = q.QueryRow(ctx, query,
		update.ID,
		update.CaseID,
		update.AgentID,
		update.Role,
		update.FromVersion,
		proposal,
		update.Reason,
		update.Status,
	).Scan(&update.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt update: %w", err)
	}

	return nil
}

func (r *promptUpdateRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error) {
	query := `SELECT ` + promptUpdateColumns + ` FROM prompt_updates WHERE id = $1`
	return scanPromptUpdate(q.QueryRow(ctx, query, id))
}

func (r *promptUpdateRepository) GetByIDForUpdate(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error) {
	query := `SELECT ` + promptUpdateColumns + ` FROM prompt_updates WHERE id = $1 FOR UPDATE`
	return scanPromptUpdate(q.QueryRow(ctx, query, id))
}

func (r *promptUpdateRepository) List(ctx context.Context, q database.Querier, caseID *uuid.UUID, status string) ([]*models.PromptUpdate, error) {
	query := `
		SELECT ` + promptUpdateColumns + `
		FROM prompt_updates
		WHERE ($1::uuid IS NULL OR case_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, caseID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt updates: %w", err)
	}
	defer rows.Close()

	var updates []*models.PromptUpdate
	for rows.Next() {
		update, err := scanPromptUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompt updates: %w", err)
	}

	return updates, nil
}

func (r *promptUpdateRepository) UpdateReview(ctx context.Context, q database.Querier, id uuid.UUID, status string, approvedAt *time.Time, approvedBy, comment *string) (*models.PromptUpdate, error) {
	query := `
		UPDATE prompt_updates
		SET status = $2, approved_at = $3, approved_by = $4, review_comment = $5
		WHERE id = $1
		RETURNING ` + promptUpdateColumns

	return scanPromptUpdate(q.QueryRow(ctx, query, id, status, approvedAt, approvedBy, comment))
}

func (r *promptUpdateRepository) MarkApplied(ctx context.Context, q database.Querier, id uuid.UUID) (*models.PromptUpdate, error) {
	query := `
		UPDATE prompt_updates
		SET status = $2, applied_at = now()
		WHERE id = $1
		RETURNING ` + promptUpdateColumns

	return scanPromptUpdate(q.QueryRow(ctx, query, id, models.PromptUpdateStatusApplied))
}

func scanPromptUpdate(row pgx.Row) (*models.PromptUpdate, error) {
	var u models.PromptUpdate
	var proposal []byte

	err := row.Scan(
		&u.ID,
		&u.CaseID,
		&u.AgentID,
		&u.Role,
		&u.FromVersion,
		&proposal,
		&u.Reason,
		&u.Status,
		&u.CreatedAt,
		&u.ApprovedAt,
		&u.AppliedAt,
		&u.ApprovedBy,
		&u.ReviewComment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan prompt update: %w", err)
	}

	if len(proposal) > 0 {
		if err := json.Unmarshal(proposal, &u.Proposal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
		}
	}

	return &u, nil
}
