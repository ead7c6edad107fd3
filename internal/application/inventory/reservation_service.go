package inventory

import (
	"bytes"
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReservationService owns the unit lifecycle transitions. Every operation
// runs as one atomic transaction over the full unit set: either all units
// transition or none do. Units are always locked in ascending ID order so
// overlapping operations contend in a consistent global lock order instead
// of deadlocking.
type ReservationService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(scope TransactionScope, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		scope:  scope,
		logger: logger,
	}
}

// Reserve claims the given units for an invoice. Every id must resolve to a
// live unit in Available status; any mismatch fails the whole call with one
// detail entry per offending unit, and zero units are mutated. Invoice
// reservations are indefinite (no expiry).
func (s *ReservationService) Reserve(ctx context.Context, unitIDs []uuid.UUID, invoiceID uuid.UUID, actor shared.Actor) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one unit is required")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}

	ids := sortedUniqueIDs(unitIDs)
	result := &TransitionResult{}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		units, err := repos.Units().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		failures := collectMissing(ids, units)
		for i := range units {
			if units[i].InventoryStatus != inventory.StatusAvailable {
				failures = append(failures, unitFailure(&units[i]))
			}
		}
		if len(failures) > 0 {
			return shared.NewDomainErrorf("RESERVATION_FAILED",
				"%d of %d units cannot be reserved", len(failures), len(ids)).
				WithDetail("failures", failures)
		}

		for i := range units {
			unit := &units[i]
			from := unit.InventoryStatus
			if err := unit.Reserve(inventory.HolderTypeInvoice, invoiceID, actor, nil); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonInvoiceCreated, string(inventory.HolderTypeInvoice), &invoiceID, actor, "")
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Units = append(result.Units, *unit)
			result.Records = append(result.Records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("units reserved",
		zap.Int("count", result.Count()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("actor", actor.String()),
	)
	return result, nil
}

// Release reverts all units reserved for the invoice back to Available and
// clears their reservation metadata. Zero matching units is a valid no-op:
// cancelling an invoice whose units were already sold or never reserved
// succeeds with an empty result.
func (s *ReservationService) Release(ctx context.Context, invoiceID uuid.UUID, actor shared.Actor) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &TransitionResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		units, err := repos.Units().FindByHolderForUpdate(ctx, inventory.HolderTypeInvoice, invoiceID, inventory.StatusReserved)
		if err != nil {
			return err
		}

		for i := range units {
			unit := &units[i]
			from := unit.InventoryStatus
			if err := unit.ReleaseReservation(); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonInvoiceCancelled, string(inventory.HolderTypeInvoice), &invoiceID, actor, "")
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Units = append(result.Units, *unit)
			result.Records = append(result.Records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservations released",
		zap.Int("count", result.Count()),
		zap.String("invoice_id", invoiceID.String()),
	)
	return result, nil
}

// MarkSold transitions the invoice's reserved units to Sold. Zero matching
// units is a warning-level no-op so repeated payment-completion events stay
// idempotent.
func (s *ReservationService) MarkSold(ctx context.Context, invoiceID uuid.UUID, actor shared.Actor) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &TransitionResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		units, err := repos.Units().FindByHolderForUpdate(ctx, inventory.HolderTypeInvoice, invoiceID, inventory.StatusReserved)
		if err != nil {
			return err
		}

		for i := range units {
			unit := &units[i]
			from := unit.InventoryStatus
			if err := unit.MarkSold(); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonInvoicePaid, string(inventory.HolderTypeInvoice), &invoiceID, actor, "")
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Units = append(result.Units, *unit)
			result.Records = append(result.Records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Count() == 0 {
		s.logger.Warn("mark sold found no reserved units",
			zap.String("invoice_id", invoiceID.String()),
		)
		return result, nil
	}

	s.logger.Info("units marked sold",
		zap.Int("count", result.Count()),
		zap.String("invoice_id", invoiceID.String()),
	)
	return result, nil
}

// SellDirect transitions Available units straight to Sold for an immediate
// sale with no reservation step. Validation mirrors Reserve: all-or-nothing
// with per-unit failure details.
func (s *ReservationService) SellDirect(ctx context.Context, unitIDs []uuid.UUID, invoiceID uuid.UUID, actor shared.Actor) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one unit is required")
	}

	ids := sortedUniqueIDs(unitIDs)
	result := &TransitionResult{}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		units, err := repos.Units().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		failures := collectMissing(ids, units)
		for i := range units {
			if units[i].InventoryStatus != inventory.StatusAvailable {
				failures = append(failures, unitFailure(&units[i]))
			}
		}
		if len(failures) > 0 {
			return shared.NewDomainErrorf("SALE_FAILED",
				"%d of %d units cannot be sold", len(failures), len(ids)).
				WithDetail("failures", failures)
		}

		for i := range units {
			unit := &units[i]
			from := unit.InventoryStatus
			if err := unit.SellDirect(inventory.HolderTypeInvoice, invoiceID, actor); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonDirectSale, string(inventory.HolderTypeInvoice), &invoiceID, actor, "")
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Units = append(result.Units, *unit)
			result.Records = append(result.Records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("units sold directly",
		zap.Int("count", result.Count()),
		zap.String("invoice_id", invoiceID.String()),
	)
	return result, nil
}

// MarkDelivered transitions the invoice's sold units to Delivered and stamps
// the handover fields. Unlike Release and MarkSold, zero matching units is a
// caller mistake: delivering nothing fails with NO_SOLD_ITEMS.
func (s *ReservationService) MarkDelivered(ctx context.Context, invoiceID uuid.UUID, actor shared.Actor, info DeliveryInfo) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &TransitionResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		units, err := repos.Units().FindByHolderForUpdate(ctx, inventory.HolderTypeInvoice, invoiceID, inventory.StatusSold)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			return shared.NewDomainErrorf("NO_SOLD_ITEMS",
				"invoice %s has no sold units to deliver", invoiceID).
				WithDetail("invoice_id", invoiceID.String())
		}

		for i := range units {
			unit := &units[i]
			from := unit.InventoryStatus
			if err := unit.MarkDelivered(info.DeliveredTo, info.Notes); err != nil {
				return err
			}
			if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
				return err
			}
			record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
				inventory.ReasonInvoiceDelivered, string(inventory.HolderTypeInvoice), &invoiceID, actor, info.Notes)
			if err := repos.StatusChanges().Append(ctx, record); err != nil {
				return err
			}
			result.Units = append(result.Units, *unit)
			result.Records = append(result.Records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("units delivered",
		zap.Int("count", result.Count()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("delivered_to", info.DeliveredTo),
	)
	return result, nil
}

// sortedUniqueIDs deduplicates and orders unit ids ascending. The stable
// order is what keeps overlapping reservation requests from deadlocking.
func sortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// collectMissing reports every requested id that did not resolve to a live unit
func collectMissing(ids []uuid.UUID, units []inventory.Unit) []map[string]any {
	found := make(map[uuid.UUID]struct{}, len(units))
	for i := range units {
		found[units[i].ID] = struct{}{}
	}
	var failures []map[string]any
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			failures = append(failures, map[string]any{
				"unit_id": id.String(),
				"error":   "unit not found or deleted",
			})
		}
	}
	return failures
}

// unitFailure describes one unit that failed status validation, including
// the current holder when the unit is already reserved
func unitFailure(unit *inventory.Unit) map[string]any {
	failure := map[string]any{
		"unit_id":        unit.ID.String(),
		"serial_number":  unit.SerialNumber,
		"current_status": unit.InventoryStatus.String(),
	}
	if unit.InventoryStatus == inventory.StatusReserved && unit.ReservedForID != nil {
		failure["held_by_type"] = string(unit.ReservedForType)
		failure["held_by_id"] = unit.ReservedForID.String()
	}
	return failure
}
