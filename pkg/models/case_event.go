package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseEvent is a single timeline entry of a case: a message, tool call, or
// decision trace produced during ingestion or a court run.
type CaseEvent struct {
	ID         int64          `json:"id"`
	CaseID     uuid.UUID      `json:"case_id"`
	TS         *time.Time     `json:"ts"`
	Seq        *int64         `json:"seq"`
	IngestedAt time.Time      `json:"ingested_at"`
	ActorType  string         `json:"actor_type"`
	ActorID    *string        `json:"actor_id"`
	Role       *string        `json:"role"`
	EventType  string         `json:"event_type"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta"`
	CourtRunID *uuid.UUID     `json:"court_run_id"`
}

// CaseEventFilters narrows a case-event listing. Empty fields are ignored.
type CaseEventFilters struct {
	ActorType string
	ActorID   string
	Role      string
	EventType string
	Stage     string
}
