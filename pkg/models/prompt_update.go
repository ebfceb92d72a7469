package models

import (
	"time"

	"github.com/google/uuid"
)

// Prompt update status constants. Transitions are one-directional:
// proposed -> approved -> applied, or proposed -> rejected.
// rejected and applied are terminal.
const (
	PromptUpdateStatusProposed = "proposed"
	PromptUpdateStatusApproved = "approved"
	PromptUpdateStatusRejected = "rejected"
	PromptUpdateStatusApplied  = "applied"
)

// Review action constants for the review endpoint.
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// PromptUpdate is a pending edit to a role's prompt, awaiting human review.
// Created at proposal time, mutated only through the governance workflow,
// never deleted.
type PromptUpdate struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"case_id"`
	AgentID     *string   `json:"agent_id"`
	Role        string    `json:"role"`
	FromVersion *int      `json:"from_version"`
	// Proposal is the opaque jsonb payload: either an object carrying the
	// prompt text under an accepted key, or a bare string.
	Proposal      any        `json:"proposal"`
	Reason        *string    `json:"reason"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at"`
	AppliedAt     *time.Time `json:"applied_at"`
	ApprovedBy    *string    `json:"approved_by"`
	ReviewComment *string    `json:"review_comment"`
}
