package models

import (
	"time"

	"github.com/google/uuid"
)

// CourtRun is one review session over a case, produced by the external
// court orchestrator. Served read-only by this engine.
type CourtRun struct {
	ID        uuid.UUID      `json:"id"`
	CaseID    uuid.UUID      `json:"case_id"`
	Model     *string        `json:"model"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	Status    string         `json:"status"`
	Artifacts map[string]any `json:"artifacts"`
}
