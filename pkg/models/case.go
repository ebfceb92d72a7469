package models

import (
	"time"

	"github.com/google/uuid"
)

// Case is an ingested review case. Case content is produced by external
// collaborators (scrapers, agent runs) and is stored already redacted;
// RedactionPolicyVersion records the policy version that sanitized it.
type Case struct {
	ID                     uuid.UUID      `json:"id"`
	CreatedAt              time.Time      `json:"created_at"`
	Source                 map[string]any `json:"source"`
	Metadata               map[string]any `json:"metadata"`
	Summary                *string        `json:"summary"`
	Status                 *string        `json:"status"`
	RedactionPolicyVersion *string        `json:"redaction_policy_version"`
}

// CaseRunSummary is the latest court run attached to a case listing.
type CaseRunSummary struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Model     *string    `json:"model"`
}

// CaseWithLatestRun pairs a case with its most recent court run, if any.
type CaseWithLatestRun struct {
	Case
	LatestCourtRun *CaseRunSummary `json:"latest_court_run"`
}
