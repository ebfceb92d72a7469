package models

import (
	"time"

	"github.com/google/uuid"
)

// RolePrompt is one version of the instruction text driving a named role.
// Versions for a role form a contiguous sequence starting at 1; exactly one
// row per role is active at any time. Rows are inserted when a proposal is
// applied and never updated in place, except for the is_active flag flip
// that happens atomically with the insertion of the next version.
type RolePrompt struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Version   int       `json:"version"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}
