package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
)

// RolePromptRepository provides data access for versioned role prompts.
type RolePromptRepository interface {
	// GetActive returns the currently active prompt for a role, or
	// apperrors.ErrNotFound when the role has no prompts yet.
	GetActive(ctx context.Context, q database.Querier, role string) (*models.RolePrompt, error)

	// Get returns one specific version of a role's prompt.
	Get(ctx context.Context, q database.Querier, role string, version int) (*models.RolePrompt, error)

	// LockRole takes row-level locks on every prompt row of a role. Callers
	// must hold this lock before reading MaxVersion and inserting the next
	// version, otherwise two concurrent appliers could compute the same
	// base version.
	LockRole(ctx context.Context, q database.Querier, role string) error

	// MaxVersion returns the highest version for a role, 0 if none exist.
	MaxVersion(ctx context.Context, q database.Querier, role string) (int, error)

	// Insert adds a new prompt version row.
	Insert(ctx context.Context, q database.Querier, prompt *models.RolePrompt) error

	// DeactivateOthers clears is_active on every other row of the role.
	DeactivateOthers(ctx context.Context, q database.Querier, role string, keepID uuid.UUID) error
}

type rolePromptRepository struct{}

// NewRolePromptRepository creates a new RolePromptRepository.
func NewRolePromptRepository() RolePromptRepository {
	return &rolePromptRepository{}
}

var _ RolePromptRepository = (*rolePromptRepository)(nil)

const rolePromptColumns = `id, role, version, prompt, created_at, is_active`

func (r *rolePromptRepository) GetActive(ctx context.Context, q database.Querier, role string) (*models.RolePrompt, error) {
	query := `
		SELECT ` + rolePromptColumns + `
		FROM role_prompts
		WHERE role = $1 AND is_active = true
		ORDER BY version DESC
		LIMIT 1`
	return scanRolePrompt(q.QueryRow(ctx, query, role))
}

func (r *rolePromptRepository) Get(ctx context.Context, q database.Querier, role string, version int) (*models.RolePrompt, error) {
	query := `SELECT ` + rolePromptColumns + ` FROM role_prompts WHERE role = $1 AND version = $2 LIMIT 1`
	return scanRolePrompt(q.QueryRow(ctx, query, role, version))
}

func (r *rolePromptRepository) LockRole(ctx context.Context, q database.Querier, role string) error {
	rows, err := q.Query(ctx, `SELECT id FROM role_prompts WHERE role = $1 FOR UPDATE`, role)
	if err != nil {
		return fmt.Errorf("failed to lock role prompts: %w", err)
	}
	rows.Close()
	return rows.Err()
}

func (r *rolePromptRepository) MaxVersion(ctx context.Context, q database.Querier, role string) (int, error) {
	var maxVersion int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0)::int FROM role_prompts WHERE role = $1`,
		role,
	).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to read max prompt version: %w", err)
	}
	return maxVersion, nil
}

func (r *rolePromptRepository) Insert(ctx context.Context, q database.Querier, prompt *models.RolePrompt) error {
	if prompt.ID == uuid.Nil {
		prompt.ID = uuid.New()
	}

	query := `
		INSERT INTO role_prompts (id, role, version, prompt, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := q.QueryRow(ctx, query,
		prompt.ID,
		prompt.Role,
		prompt.Version,
		prompt.Prompt,
		prompt.IsActive,
	).Scan(&prompt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert role prompt: %w", err)
	}

	return nil
}

func (r *rolePromptRepository) DeactivateOthers(ctx context.Context, q database.Querier, role string, keepID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE role_prompts
		SET is_active = false
		WHERE role = $1 AND id <> $2 AND is_active = true`,
		role, keepID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate prior prompt versions: %w", err)
	}
	return nil
}

func scanRolePrompt(row pgx.Row) (*models.RolePrompt, error) {
	var p models.RolePrompt
	err := row.Scan(&p.ID, &p.Role, &p.Version, &p.Prompt, &p.CreatedAt, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan role prompt: %w", err)
	}
	return &p, nil
}
