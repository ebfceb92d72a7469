package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
	"github.com/GSN-OMG/Prism/pkg/testhelpers"
)

func seedCase(t *testing.T, db *database.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO cases (id, summary, status, redaction_policy_version)
		 VALUES ($1, 'shortlisted dispute', 'ingested', '2025-08-01')`, id)
	if err != nil {
		t.Fatalf("failed to seed case: %v", err)
	}
	return id
}

func seedEvent(t *testing.T, db *database.DB, caseID uuid.UUID, ts *time.Time, seq *int64, actorType, eventType, content string, meta string) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO case_events (case_id, ts, seq, actor_type, event_type, content, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		caseID, ts, seq, actorType, eventType, content, meta)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
}

func TestCaseEventReplayOrder_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateGovernanceTables(t, testDB.DB)
	caseID := seedCase(t, testDB.DB)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	later := base.Add(time.Minute)
	seq1, seq2 := int64(1), int64(2)

	// Inserted out of order on purpose.
	seedEvent(t, testDB.DB, caseID, &later, nil, "agent", "message", "third", `{}`)
	seedEvent(t, testDB.DB, caseID, &base, &seq2, "agent", "message", "second", `{}`)
	seedEvent(t, testDB.DB, caseID, &base, &seq1, "agent", "message", "first", `{}`)
	seedEvent(t, testDB.DB, caseID, nil, nil, "system", "note", "last", `{}`)

	repo := NewCaseEventRepository()
	events, err := repo.ListByCase(context.Background(), testDB.DB, caseID, models.CaseEventFilters{})
	if err != nil {
		t.Fatalf("ListByCase failed: %v", err)
	}

	var got []string
	for _, e := range events {
		got = append(got, e.Content)
	}
	want := []string{"first", "second", "third", "last"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected replay order %v, got %v", want, got)
		}
	}
}

func TestCaseEventFilters_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateGovernanceTables(t, testDB.DB)
	caseID := seedCase(t, testDB.DB)

	now := time.Now().UTC()
	seedEvent(t, testDB.DB, caseID, &now, nil, "agent", "message", "agent says", `{"stage": "argument"}`)
	seedEvent(t, testDB.DB, caseID, &now, nil, "human", "message", "human says", `{"stage": "verdict"}`)
	seedEvent(t, testDB.DB, caseID, &now, nil, "agent", "tool_call", "agent acts", `{}`)

	repo := NewCaseEventRepository()
	ctx := context.Background()

	tests := []struct {
		name    string
		filters models.CaseEventFilters
		want    []string
	}{
		{
			name:    "by actor type",
			filters: models.CaseEventFilters{ActorType: "human"},
			want:    []string{"human says"},
		},
		{
			name:    "by event type",
			filters: models.CaseEventFilters{EventType: "message"},
			want:    []string{"agent says", "human says"},
		},
		{
			name:    "by stage in meta",
			filters: models.CaseEventFilters{Stage: "argument"},
			want:    []string{"agent says"},
		},
		{
			name:    "combined",
			filters: models.CaseEventFilters{ActorType: "agent", EventType: "tool_call"},
			want:    []string{"agent acts"},
		},
		{
			name:    "no match",
			filters: models.CaseEventFilters{Role: "narrator"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.ListByCase(ctx, testDB.DB, caseID, tt.filters)
			if err != nil {
				t.Fatalf("ListByCase failed: %v", err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(events))
			}
			for i, content := range tt.want {
				if events[i].Content != content {
					t.Errorf("event %d: expected %q, got %q", i, content, events[i].Content)
				}
			}
		})
	}
}

func TestCaseListWithLatestRun_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateGovernanceTables(t, testDB.DB)
	ctx := context.Background()

	withRuns := seedCase(t, testDB.DB)
	withoutRuns := seedCase(t, testDB.DB)

	earlier := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	latest := earlier.Add(2 * time.Hour)
	firstRun, latestRun := uuid.New(), uuid.New()
	for _, run := range []struct {
		id      uuid.UUID
		started time.Time
		status  string
	}{
		{firstRun, earlier, "completed"},
		{latestRun, latest, "running"},
	} {
		_, err := testDB.DB.Exec(ctx,
			`INSERT INTO court_runs (id, case_id, model, started_at, status)
			 VALUES ($1, $2, 'court-v1', $3, $4)`,
			run.id, withRuns, run.started, run.status)
		if err != nil {
			t.Fatalf("failed to seed court run: %v", err)
		}
	}

	repo := NewCaseRepository()
	cases, err := repo.ListWithLatestRun(ctx, testDB.DB)
	if err != nil {
		t.Fatalf("ListWithLatestRun failed: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}

	byID := make(map[uuid.UUID]*models.CaseWithLatestRun, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
	}

	got := byID[withRuns]
	if got == nil || got.LatestCourtRun == nil {
		t.Fatalf("expected a latest run for case %s", withRuns)
	}
	if got.LatestCourtRun.ID != latestRun {
		t.Errorf("expected latest run %s, got %s", latestRun, got.LatestCourtRun.ID)
	}
	if got.LatestCourtRun.Status != "running" {
		t.Errorf("expected status running, got %q", got.LatestCourtRun.Status)
	}

	if byID[withoutRuns] == nil {
		t.Fatalf("case without runs missing from listing")
	}
	if byID[withoutRuns].LatestCourtRun != nil {
		t.Error("case without runs must have a nil latest run")
	}

	runs, err := NewCourtRunRepository().ListByCase(ctx, testDB.DB, withRuns)
	if err != nil {
		t.Fatalf("ListByCase failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != latestRun {
		t.Errorf("expected newest-first runs, got %+v", runs)
	}
}

func TestCaseGetByID_Integration(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateGovernanceTables(t, testDB.DB)
	caseID := seedCase(t, testDB.DB)

	repo := NewCaseRepository()
	ctx := context.Background()

	got, err := repo.GetByID(ctx, testDB.DB, caseID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Summary == nil || *got.Summary != "shortlisted dispute" {
		t.Errorf("unexpected summary: %v", got.Summary)
	}
	if got.RedactionPolicyVersion == nil || *got.RedactionPolicyVersion != "2025-08-01" {
		t.Errorf("unexpected policy version: %v", got.RedactionPolicyVersion)
	}

	_, err = repo.GetByID(ctx, testDB.DB, uuid.New())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
