package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/models"
	"github.com/GSN-OMG/Prism/pkg/repositories"
)

// CaseService is the read facade over ingested cases, their timelines, and
// their court runs. Ingestion itself happens outside this engine.
type CaseService interface {
	ListCases(ctx context.Context) ([]*models.CaseWithLatestRun, error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
	ListEvents(ctx context.Context, caseID uuid.UUID, filters models.CaseEventFilters) ([]*models.CaseEvent, error)
	ListCourtRuns(ctx context.Context, caseID uuid.UUID) ([]*models.CourtRun, error)
}

type caseService struct {
	db        database.Querier
	caseRepo  repositories.CaseRepository
	eventRepo repositories.CaseEventRepository
	runRepo   repositories.CourtRunRepository
}

// NewCaseService creates a new case service with dependencies.
func NewCaseService(
	db database.Querier,
	caseRepo repositories.CaseRepository,
	eventRepo repositories.CaseEventRepository,
	runRepo repositories.CourtRunRepository,
) CaseService {
	return &caseService{
		db:        db,
		caseRepo:  caseRepo,
		eventRepo: eventRepo,
		runRepo:   runRepo,
	}
}

var _ CaseService = (*caseService)(nil)

func (s *caseService) ListCases(ctx context.Context) ([]*models.CaseWithLatestRun, error) {
	return s.caseRepo.ListWithLatestRun(ctx, s.db)
}

func (s *caseService) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	return s.caseRepo.GetByID(ctx, s.db, id)
}

func (s *caseService) ListEvents(ctx context.Context, caseID uuid.UUID, filters models.CaseEventFilters) ([]*models.CaseEvent, error) {
	return s.eventRepo.ListByCase(ctx, s.db, caseID, filters)
}

func (s *caseService) ListCourtRuns(ctx context.Context, caseID uuid.UUID) ([]*models.CourtRun, error) {
	return s.runRepo.ListByCase(ctx, s.db, caseID)
}
