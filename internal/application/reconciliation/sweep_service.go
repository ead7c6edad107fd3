package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// sweepActor stamps audit rows written by the background sweeps
const sweepActor = shared.Actor("system")

// SweepService runs the background reconciliation jobs: releasing expired
// reservations, auditing unit/invoice consistency, and the daily activity
// rollup. The audit only reports; it never mutates state.
type SweepService struct {
	scope    appinventory.TransactionScope
	units    inventory.UnitRepository
	changes  inventory.StatusChangeRecordRepository
	invoices billing.InvoiceRepository
	logger   *zap.Logger
}

// NewSweepService creates a new SweepService
func NewSweepService(scope appinventory.TransactionScope, units inventory.UnitRepository, changes inventory.StatusChangeRecordRepository, invoices billing.InvoiceRepository, logger *zap.Logger) *SweepService {
	return &SweepService{
		scope:    scope,
		units:    units,
		changes:  changes,
		invoices: invoices,
		logger:   logger,
	}
}

// ExpireReservations releases reservations whose expiry has passed. Only
// units with a non-nil expiry qualify; indefinite invoice reservations are
// never touched. Each release is re-validated under the transaction's lock
// because the unit may have been sold or released since the initial scan.
func (s *SweepService) ExpireReservations(ctx context.Context, now time.Time) (*ExpiryResult, error) {
	result := &ExpiryResult{}

	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		expired, err := repos.Units().FindExpiredReservations(ctx, now)
		if err != nil {
			return err
		}
		result.Examined = len(expired)

		for i := range expired {
			unit := &expired[i]
			if !unit.HasExpirableReservation(now) {
				continue
			}
			from := unit.InventoryStatus
			holderID := unit.ReservedForID
			holderType := string(unit.ReservedForType)
			if err := unit.ReleaseReservation(); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonSystemCleanup, holderType, holderID, sweepActor, "reservation expired")
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Released = append(result.Released, *unit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Released) > 0 {
		s.logger.Info("expired reservations released",
			zap.Int("examined", result.Examined),
			zap.Int("released", len(result.Released)),
		)
	}
	return result, nil
}

// AuditConsistency scans reserved and sold units for holders that no longer
// account for them: missing invoices, cancelled invoices still holding
// reservations, and sold units no invoice line references. Findings are
// reported for human review; the audit never repairs state on its own.
func (s *SweepService) AuditConsistency(ctx context.Context, now time.Time) (*AuditReport, error) {
	report := &AuditReport{GeneratedAt: now}

	reserved, err := s.units.FindByStatus(ctx, inventory.StatusReserved, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}
	report.ReservedExamined = len(reserved)
	for i := range reserved {
		if finding := s.auditHeldUnit(ctx, &reserved[i]); finding != nil {
			report.Findings = append(report.Findings, *finding)
		}
	}

	sold, err := s.units.FindByStatus(ctx, inventory.StatusSold, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}
	report.SoldExamined = len(sold)
	for i := range sold {
		if finding := s.auditHeldUnit(ctx, &sold[i]); finding != nil {
			report.Findings = append(report.Findings, *finding)
		}
	}

	if len(report.Findings) > 0 {
		s.logger.Warn("consistency audit found orphaned units",
			zap.Int("findings", len(report.Findings)),
			zap.Int("reserved_examined", report.ReservedExamined),
			zap.Int("sold_examined", report.SoldExamined),
		)
	} else {
		s.logger.Info("consistency audit clean",
			zap.Int("reserved_examined", report.ReservedExamined),
			zap.Int("sold_examined", report.SoldExamined),
		)
	}
	return report, nil
}

// DailyRollup summarizes status distribution and transition activity since
// the given time, normally the previous rollup's timestamp.
func (s *SweepService) DailyRollup(ctx context.Context, since time.Time) (*RollupReport, error) {
	statusCounts, err := s.units.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	transitionCounts, err := s.changes.CountByReasonSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &RollupReport{
		Since:            since,
		GeneratedAt:      time.Now(),
		StatusCounts:     statusCounts,
		TransitionCounts: transitionCounts,
	}

	s.logger.Info("daily rollup generated",
		zap.Time("since", since),
		zap.Int64("available", statusCounts[inventory.StatusAvailable]),
		zap.Int64("reserved", statusCounts[inventory.StatusReserved]),
		zap.Int64("sold", statusCounts[inventory.StatusSold]),
		zap.Int64("delivered", statusCounts[inventory.StatusDelivered]),
	)
	return report, nil
}

// auditHeldUnit checks one reserved or sold unit against its holder invoice
func (s *SweepService) auditHeldUnit(ctx context.Context, unit *inventory.Unit) *OrphanFinding {
	if unit.ReservedForID == nil {
		return &OrphanFinding{
			UnitID:       unit.ID,
			SerialNumber: unit.SerialNumber,
			Status:       unit.InventoryStatus,
			Problem:      "unit held with no holder reference",
		}
	}

	invoiceID := *unit.ReservedForID
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if shared.IsNotFound(err) {
			return &OrphanFinding{
				UnitID:       unit.ID,
				SerialNumber: unit.SerialNumber,
				Status:       unit.InventoryStatus,
				HolderID:     &invoiceID,
				Problem:      "holder invoice does not exist",
			}
		}
		s.logger.Error("audit failed to load holder invoice",
			zap.String("unit_id", unit.ID.String()),
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
		return nil
	}

	if unit.InventoryStatus == inventory.StatusReserved && invoice.Status == billing.InvoiceStatusCancelled {
		return &OrphanFinding{
			UnitID:       unit.ID,
			SerialNumber: unit.SerialNumber,
			Status:       unit.InventoryStatus,
			HolderID:     &invoiceID,
			Problem:      "holder invoice is cancelled but reservation was never released",
		}
	}

	if !s.invoiceReferencesUnit(ctx, invoiceID, unit.ID) {
		return &OrphanFinding{
			UnitID:       unit.ID,
			SerialNumber: unit.SerialNumber,
			Status:       unit.InventoryStatus,
			HolderID:     &invoiceID,
			Problem:      "no invoice line references this unit",
		}
	}
	return nil
}

func (s *SweepService) invoiceReferencesUnit(ctx context.Context, invoiceID, unitID uuid.UUID) bool {
	lines, err := s.invoices.FindLinesByUnit(ctx, unitID)
	if err != nil {
		return true
	}
	for i := range lines {
		if lines[i].InvoiceID == invoiceID {
			return true
		}
	}
	return false
}
