package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
)

// CaseEventRepository provides read access to case timeline events.
type CaseEventRepository interface {
	// ListByCase returns a case's events in replay order: event timestamp
	// first (nulls last), then sequence number (nulls last), then insertion
	// order.
	ListByCase(ctx context.Context, q database.Querier, caseID uuid.UUID, filters models.CaseEventFilters) ([]*models.CaseEvent, error)
}

type caseEventRepository struct{}

// NewCaseEventRepository creates a new CaseEventRepository.
func NewCaseEventRepository() CaseEventRepository {
	return &caseEventRepository{}
}

var _ CaseEventRepository = (*caseEventRepository)(nil)

func (r *caseEventRepository) ListByCase(ctx context.Context, q database.Querier, caseID uuid.UUID, filters models.CaseEventFilters) ([]*models.CaseEvent, error) {
	conditions := []string{"case_id = $1"}
	params := []any{caseID}

	addFilter := func(sql string, value string) {
		if value == "" {
			return
		}
		params = append(params, value)
		conditions = append(conditions, fmt.Sprintf(sql, len(params)))
	}

	addFilter("actor_type = $%d", filters.ActorType)
	addFilter("actor_id = $%d", filters.ActorID)
	addFilter("role = $%d", filters.Role)
	addFilter("event_type = $%d", filters.EventType)
	addFilter("meta->>'stage' = $%d", filters.Stage)

	query := `
		SELECT id, case_id, ts, seq, ingested_at, actor_type, actor_id, role,
		       event_type, content, meta, court_run_id
		FROM case_events
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY ts NULLS LAST, seq NULLS LAST, id ASC`

	rows, err := q.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list case events: %w", err)
	}
	defer rows.Close()

	var events []*models.CaseEvent
	for rows.Next() {
		var e models.CaseEvent
		var meta []byte
		err := rows.Scan(
			&e.ID, &e.CaseID, &e.TS, &e.Seq, &e.IngestedAt, &e.ActorType,
			&e.ActorID, &e.Role, &e.EventType, &e.Content, &meta, &e.CourtRunID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case event: %w", err)
		}
		if err := unmarshalJSONB(meta, &e.Meta); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case events: %w", err)
	}

	return events, nil
}
