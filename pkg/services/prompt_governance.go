package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/audit"
	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
	"github.com/GSN-OMG/Prism/pkg/redaction"
	"github.com/GSN-OMG/Prism/pkg/repositories"
)

// proposalPromptKeys are the accepted locations of the prompt text inside a
// proposal object, checked in priority order.
var proposalPromptKeys = []string{"prompt", "full_prompt", "fullPrompt"}

// ProposeInput is the creation payload for a new prompt update proposal.
type ProposeInput struct {
	CaseID      uuid.UUID
	AgentID     *string
	Role        string
	FromVersion *int
	Proposal    any
	Reason      *string
}

// ApplyResult pairs the new active prompt with the applied proposal.
type ApplyResult struct {
	RolePrompt   *models.RolePrompt   `json:"rolePrompt"`
	PromptUpdate *models.PromptUpdate `json:"promptUpdate"`
}

// PromptGovernanceService orchestrates the propose -> review -> apply
// lifecycle of role prompt edits. Every boundary where human or model text
// enters persisted state passes through the sensitive-data guard first.
type PromptGovernanceService interface {
	// Propose records a new proposal in the proposed state.
	Propose(ctx context.Context, input ProposeInput) (*models.PromptUpdate, error)

	// Review approves or rejects a proposed update.
	Review(ctx context.Context, id uuid.UUID, action string, comment, reviewer *string) (*models.PromptUpdate, error)

	// Apply makes an approved update the role's new active prompt.
	Apply(ctx context.Context, id uuid.UUID) (*ApplyResult, error)

	// List returns proposals filtered by case and status.
	List(ctx context.Context, caseID *uuid.UUID, status string) ([]*models.PromptUpdate, error)

	// ActivePrompt returns the currently active prompt for a role.
	ActivePrompt(ctx context.Context, role string) (*models.RolePrompt, error)
}

type promptGovernanceService struct {
	db         database.Pool
	updateRepo repositories.PromptUpdateRepository
	promptRepo repositories.RolePromptRepository
	policy     *redaction.Policy
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
}

// NewPromptGovernanceService creates a new prompt governance service.
func NewPromptGovernanceService(
	db database.Pool,
	updateRepo repositories.PromptUpdateRepository,
	promptRepo repositories.RolePromptRepository,
	policy *redaction.Policy,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) PromptGovernanceService {
	return &promptGovernanceService{
		db:         db,
		updateRepo: updateRepo,
		promptRepo: promptRepo,
		policy:     policy,
		auditor:    auditor,
		logger:     logger,
	}
}

var _ PromptGovernanceService = (*promptGovernanceService)(nil)

func (s *promptGovernanceService) Propose(ctx context.Context, input ProposeInput) (*models.PromptUpdate, error) {
	if input.Role == "" {
		return nil, fmt.Errorf("%w: role is required", apperrors.ErrInvalidProposal)
	}
	if _, ok := extractProposedPrompt(input.Proposal); !ok {
		return nil, fmt.Errorf("%w: no prompt text under accepted keys", apperrors.ErrInvalidProposal)
	}

	if err := s.guard(uuid.Nil, "", "propose", map[string]any{
		"proposal": input.Proposal,
		"reason":   derefOrEmpty(input.Reason),
	}); err != nil {
		return nil, err
	}

	update := &models.PromptUpdate{
		CaseID:      input.CaseID,
		AgentID:     input.AgentID,
		Role:        input.Role,
		FromVersion: input.FromVersion,
		Proposal:    input.Proposal,
		Reason:      input.Reason,
	}

	if err := s.updateRepo.Create(ctx, s.db, update); err != nil {
		return nil, err
	}

	s.logger.Info("Prompt update proposed",
		zap.String("update_id", update.ID.String()),
		zap.String("role", update.Role))

	return update, nil
}

func (s *promptGovernanceService) Review(ctx context.Context, id uuid.UUID, action string, comment, reviewer *string) (updated *models.PromptUpdate, err error) {
	if action != models.ReviewActionApprove && action != models.ReviewActionReject {
		return nil, fmt.Errorf("invalid review action: %q", action)
	}

	// Free-text human input is the most likely leak vector: gate it before
	// touching any state.
	if err := s.guard(id, derefOrEmpty(reviewer), "review", map[string]any{
		"review_comment": derefOrEmpty(comment),
		"approved_by":    derefOrEmpty(reviewer),
	}); err != nil {
		return nil, err
	}
	s.auditor.AuditFreeText(id, derefOrEmpty(reviewer), "review_comment", derefOrEmpty(comment))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, err := s.updateRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.PromptUpdateStatusProposed {
		return nil, fmt.Errorf("%w: prompt update is %s, not proposed", apperrors.ErrInvalidStatus, existing.Status)
	}

	newStatus := models.PromptUpdateStatusRejected
	var approvedAt *time.Time
	if action == models.ReviewActionApprove {
		newStatus = models.PromptUpdateStatusApproved
		now := time.Now().UTC()
		approvedAt = &now
	}

	updated, err = s.updateRepo.UpdateReview(ctx, tx, id, newStatus, approvedAt, reviewer, comment)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	s.logger.Info("Prompt update reviewed",
		zap.String("update_id", id.String()),
		zap.String("status", newStatus))

	return updated, nil
}

func (s *promptGovernanceService) Apply(ctx context.Context, id uuid.UUID) (result *ApplyResult, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	update, err := s.updateRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if update.Status != models.PromptUpdateStatusApproved {
		return nil, fmt.Errorf("%w: prompt update is %s, not approved", apperrors.ErrInvalidStatus, update.Status)
	}

	prompt, ok := extractProposedPrompt(update.Proposal)
	if !ok {
		return nil, fmt.Errorf("%w: no prompt text under accepted keys", apperrors.ErrInvalidProposal)
	}

	// Last line of defense before the prompt becomes live.
	if err = s.guard(id, derefOrEmpty(update.ApprovedBy), "apply", map[string]any{"prompt": prompt}); err != nil {
		return nil, err
	}

	// Lock the role's prompt rows before reading the max version, so two
	// concurrent applies cannot both compute the same base version.
	if err = s.promptRepo.LockRole(ctx, tx, update.Role); err != nil {
		return nil, err
	}

	baseVersion, err := s.promptRepo.MaxVersion(ctx, tx, update.Role)
	if err != nil {
		return nil, err
	}

	if update.FromVersion != nil && *update.FromVersion != baseVersion {
		return nil, fmt.Errorf("%w: proposal based on version %d, current is %d",
			apperrors.ErrFromVersionMismatch, *update.FromVersion, baseVersion)
	}

	newPrompt := &models.RolePrompt{
		Role:     update.Role,
		Version:  baseVersion + 1,
		Prompt:   prompt,
		IsActive: true,
	}
	if err = s.promptRepo.Insert(ctx, tx, newPrompt); err != nil {
		return nil, err
	}
	if err = s.promptRepo.DeactivateOthers(ctx, tx, update.Role, newPrompt.ID); err != nil {
		return nil, err
	}

	applied, err := s.updateRepo.MarkApplied(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit apply: %w", err)
	}

	s.logger.Info("Prompt update applied",
		zap.String("update_id", id.String()),
		zap.String("role", update.Role),
		zap.Int("version", newPrompt.Version))

	return &ApplyResult{RolePrompt: newPrompt, PromptUpdate: applied}, nil
}

func (s *promptGovernanceService) List(ctx context.Context, caseID *uuid.UUID, status string) ([]*models.PromptUpdate, error) {
	return s.updateRepo.List(ctx, s.db, caseID, status)
}

func (s *promptGovernanceService) ActivePrompt(ctx context.Context, role string) (*models.RolePrompt, error) {
	return s.promptRepo.GetActive(ctx, s.db, role)
}

// guard runs the sensitive-data check and records a security audit event on
// rejection. The returned error is the guard's *redaction.UnredactedDataError.
func (s *promptGovernanceService) guard(updateID uuid.UUID, actor, operation string, value any) error {
	err := redaction.AssertNoSensitiveData(value, s.policy)
	if err == nil {
		return nil
	}

	if ure, ok := err.(*redaction.UnredactedDataError); ok {
		s.auditor.LogGuardRejection(updateID, actor, audit.GuardRejectionDetails{
			RuleName:  ure.RuleName,
			JSONPath:  ure.JSONPath,
			Operation: operation,
		})
	}
	return err
}

// extractProposedPrompt pulls the prompt text out of a proposal payload:
// either the payload is a bare string, or an object carrying a string under
// one of the accepted keys.
func extractProposedPrompt(proposal any) (string, bool) {
	switch v := proposal.(type) {
	case string:
		return v, true
	case map[string]any:
		for _, key := range proposalPromptKeys {
			if text, ok := v[key].(string); ok {
				return text, true
			}
		}
	}
	return "", false
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
