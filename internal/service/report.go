package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// ReportService aggregates locked-period data into VAT reports. A report
// handed back to a caller is always in the locked state: locking happens
// atomically with generation, mirroring the statutory requirement that a
// filed report be immutable once produced.
type ReportService struct {
	txRunner      repository.TxRunner
	reportRepo    repository.ReportRepository
	lockRepo      repository.PeriodLockRepository
	tripRepo      repository.TripRepository
	gate          *Gate
	exporter      Exporter
	exportTimeout time.Duration
	retries       int
	log           *logrus.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	txRunner repository.TxRunner,
	reportRepo repository.ReportRepository,
	lockRepo repository.PeriodLockRepository,
	tripRepo repository.TripRepository,
	gate *Gate,
	exporter Exporter,
	exportTimeout time.Duration,
	retries int,
	log *logrus.Logger,
) *ReportService {
	return &ReportService{
		txRunner:      txRunner,
		reportRepo:    reportRepo,
		lockRepo:      lockRepo,
		tripRepo:      tripRepo,
		gate:          gate,
		exporter:      exporter,
		exportTimeout: exportTimeout,
		retries:       retries,
		log:           log,
	}
}

// GenerateReportRequest contains the parameters for generating a report.
// An empty VehicleID requests the organization-wide report.
type GenerateReportRequest struct {
	PeriodKey string
	VehicleID string
}

// Generate produces the VAT report for a locked period. Regenerating for an
// unchanged period returns the stored report with identical totals.
func (s *ReportService) Generate(ctx context.Context, principal domain.Principal, req GenerateReportRequest) (*domain.VatReport, error) {
	if err := requireOp(s.gate, principal, OpReportGenerate, ""); err != nil {
		return nil, err
	}

	scope := req.VehicleID
	if scope == "" {
		scope = domain.ScopeOrganization
	}

	start, end, err := domain.ParsePeriodKey(req.PeriodKey)
	if err != nil {
		return nil, err
	}

	if err := s.requireLocked(ctx, scope, req.PeriodKey); err != nil {
		return nil, err
	}

	// An already-generated report is the report: the period is frozen, so
	// the totals cannot have changed.
	existing, err := s.reportRepo.GetByScopePeriod(ctx, scope, req.PeriodKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var trips []*domain.Trip
	if scope == domain.ScopeOrganization {
		trips, err = s.tripRepo.ListBetween(ctx, start, end)
	} else {
		trips, err = s.tripRepo.ListByVehicleBetween(ctx, scope, start, end)
	}
	if err != nil {
		return nil, err
	}

	report := &domain.VatReport{
		ID:          uuid.New().String(),
		Scope:       scope,
		PeriodKey:   req.PeriodKey,
		State:       domain.ReportStateDraft,
		GeneratedBy: principal.ID,
		GeneratedAt: time.Now(),
	}

	for _, trip := range trips {
		report.TotalKm += trip.DistanceKm
		report.CostTotalCents += trip.CostTotalCents()
		report.TripCount++
		if trip.Purpose == domain.TripPurposeBusiness {
			report.BusinessKm += trip.DistanceKm
		} else {
			report.PrivateKm += trip.DistanceKm
		}
	}

	artifactRef, err := callExternal(ctx, s.exportTimeout, s.retries, func(ctx context.Context) (string, error) {
		return s.exporter.Export(ctx, report)
	})
	if err != nil {
		// Nothing persisted yet; the caller retries the whole generation.
		return nil, err
	}

	report.ArtifactRef = artifactRef
	report.State = domain.ReportStateLocked

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.Reports.Create(ctx, report); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectVatReport,
			SubjectID:   report.ID,
			Op:          domain.AuditOpCreate,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			After:       snapshot(report),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"scope":      scope,
		"period_key": req.PeriodKey,
		"total_km":   report.TotalKm,
	}).Info("vat report generated")

	return report, nil
}

// Get retrieves a report by ID.
func (s *ReportService) Get(ctx context.Context, principal domain.Principal, reportID string) (*domain.VatReport, error) {
	if err := requireOp(s.gate, principal, OpReportView, ""); err != nil {
		return nil, err
	}
	return s.reportRepo.GetByID(ctx, reportID)
}

// requireLocked verifies the period is locked for the scope. A vehicle
// scope is also satisfied by an organization-wide lock of the same period.
func (s *ReportService) requireLocked(ctx context.Context, scope, periodKey string) error {
	lock, err := s.lockRepo.Get(ctx, scope, periodKey)
	if errors.Is(err, repository.ErrNotFound) && scope != domain.ScopeOrganization {
		lock, err = s.lockRepo.Get(ctx, domain.ScopeOrganization, periodKey)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrPeriodNotLocked, scope, periodKey)
	}
	if err != nil {
		return err
	}
	if lock.State != domain.LockStateLocked {
		return fmt.Errorf("%w: %s/%s", ErrPeriodNotLocked, scope, periodKey)
	}
	return nil
}
