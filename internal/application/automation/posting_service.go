package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/automation"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Source document type tags used on journals, bills and log entries
const (
	SourcePurchaseOrder = "PURCHASE_ORDER"
	SourceVendorBill    = "VENDOR_BILL"
	SourceInvoice       = "INVOICE"
)

// runLockTTL bounds how long a crashed run can block its source document
const runLockTTL = 30 * time.Second

// PostingService is the automation engine: it reacts to business events by
// posting journal entries, ledger rows and inventory updates. Every run is
// wrapped in a log entry written outside the business transaction, so a
// failed (rolled back) run still leaves a durable failure record that can
// be retried manually.
type PostingService struct {
	scope   TransactionScope
	logs    automation.LogEntryRepository
	numbers shared.NumberGenerator
	idem    IdempotencyStore
	logger  *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(scope TransactionScope, logs automation.LogEntryRepository, numbers shared.NumberGenerator, idem IdempotencyStore, logger *zap.Logger) *PostingService {
	return &PostingService{
		scope:   scope,
		logs:    logs,
		numbers: numbers,
		idem:    idem,
		logger:  logger,
	}
}

// OnPurchaseCompleted reacts to goods arriving for a purchase order: the
// order is completed, its units move into stock with movement records and
// the inventory/payable journal is posted. The vendor's balance and ledger
// move only when the bill is created.
func (s *PostingService) OnPurchaseCompleted(ctx context.Context, purchaseOrderID uuid.UUID, actor shared.Actor) (*PostingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, automation.ActionPurchaseCompleted, SourcePurchaseOrder, purchaseOrderID,
		func(repos TransactionalRepositories) ([]automation.AffectedRecord, error) {
			po, err := repos.PurchaseOrders().FindByID(ctx, purchaseOrderID)
			if err != nil {
				return nil, err
			}
			if err := po.MarkCompleted(); err != nil {
				return nil, err
			}
			if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
				return nil, err
			}
			affected := []automation.AffectedRecord{
				{Model: "PurchaseOrder", ID: po.ID, Action: "completed"},
			}

			units, err := repos.Units().FindByPurchaseOrder(ctx, purchaseOrderID)
			if err != nil {
				return nil, err
			}
			for i := range units {
				unit := &units[i]
				if err := unit.SetPhysicalStatus(inventory.PhysicalInStock); err != nil {
					return nil, err
				}
				if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
					return nil, err
				}
				poID := purchaseOrderID
				movement := inventory.NewMovement(unit.ID, inventory.MovementPurchaseReceipt,
					SourcePurchaseOrder, &poID, "Received on "+po.OrderNumber)
				if err := repos.Movements().Append(ctx, movement); err != nil {
					return nil, err
				}
				affected = append(affected,
					automation.AffectedRecord{Model: "Unit", ID: unit.ID, Action: "in_stock"},
					automation.AffectedRecord{Model: "Movement", ID: movement.ID, Action: "created"},
				)
			}

			entry, err := s.postPairedJournal(ctx, repos,
				"Goods received on "+po.OrderNumber, SourcePurchaseOrder, po.ID,
				finance.AccountCodeInventory, finance.AccountCodeAccountsPayable, po.Total)
			if err != nil {
				return nil, err
			}
			affected = append(affected, automation.AffectedRecord{Model: "JournalEntry", ID: entry.ID, Action: "posted"})
			return affected, nil
		})
}

// CreateBillFromPurchaseOrder records the vendor bill mirroring a completed
// purchase order and grows the vendor's balance and ledger by the bill
// total, with the vendor row locked. At most one bill exists per order.
func (s *PostingService) CreateBillFromPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID, actor shared.Actor) (*PostingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, automation.ActionBillFromPO, SourcePurchaseOrder, purchaseOrderID,
		func(repos TransactionalRepositories) ([]automation.AffectedRecord, error) {
			po, err := repos.PurchaseOrders().FindByID(ctx, purchaseOrderID)
			if err != nil {
				return nil, err
			}
			existing, err := repos.VendorBills().FindBySource(ctx, SourcePurchaseOrder, purchaseOrderID)
			if err != nil && !shared.IsNotFound(err) {
				return nil, err
			}
			if existing != nil {
				return nil, shared.NewDomainErrorf("BILL_ALREADY_EXISTS",
					"purchase order %s already has bill %s", po.OrderNumber, existing.BillNumber).
					WithDetail("bill_id", existing.ID.String())
			}

			number, err := s.numbers.Next(ctx, shared.SequenceVendorBill)
			if err != nil {
				return nil, err
			}
			bill, err := finance.NewVendorBill(number, po.VendorID, po.VendorName,
				SourcePurchaseOrder, po.ID, po.OrderNumber, po.Total, decimal.Zero, nil)
			if err != nil {
				return nil, err
			}
			if err := repos.VendorBills().Save(ctx, bill); err != nil {
				return nil, err
			}

			vendor, err := repos.Vendors().FindByIDForUpdate(ctx, po.VendorID)
			if err != nil {
				return nil, err
			}
			vendor.IncreaseBalance(bill.Total)
			if err := repos.Vendors().Save(ctx, vendor); err != nil {
				return nil, err
			}
			billID := bill.ID
			row, err := finance.NewLedgerEntry(finance.PartyTypeVendor, vendor.ID,
				bill.Total, decimal.Zero, vendor.Balance,
				"Bill "+bill.BillNumber, SourceVendorBill, &billID, bill.BillNumber)
			if err != nil {
				return nil, err
			}
			if err := repos.Ledger().Append(ctx, row); err != nil {
				return nil, err
			}
			return []automation.AffectedRecord{
				{Model: "VendorBill", ID: bill.ID, Action: "created"},
				{Model: "Vendor", ID: vendor.ID, Action: "balance_increased"},
				{Model: "LedgerEntry", ID: row.ID, Action: "appended"},
			}, nil
		})
}

// PostSupplierExpense posts the expense journal for a vendor bill exactly
// once. The bill's ExpensePosted flag is the database-level retry guard.
func (s *PostingService) PostSupplierExpense(ctx context.Context, billID uuid.UUID, actor shared.Actor) (*PostingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, automation.ActionSupplierExpense, SourceVendorBill, billID,
		func(repos TransactionalRepositories) ([]automation.AffectedRecord, error) {
			bill, err := repos.VendorBills().FindByID(ctx, billID)
			if err != nil {
				return nil, err
			}
			if bill.ExpensePosted {
				return nil, shared.NewDomainErrorf("EXPENSE_ALREADY_POSTED",
					"expense for bill %s was already posted", bill.BillNumber).
					WithDetail("bill_id", billID.String())
			}
			posted, err := repos.Journals().ExistsForSource(ctx, SourceVendorBill, billID)
			if err != nil {
				return nil, err
			}
			if posted {
				return nil, shared.NewDomainErrorf("EXPENSE_ALREADY_POSTED",
					"a journal entry already exists for bill %s", bill.BillNumber)
			}

			entry, err := s.postPairedJournal(ctx, repos,
				"Supplier expense on "+bill.BillNumber, SourceVendorBill, bill.ID,
				finance.AccountCodeSupplierExpense, finance.AccountCodeAccountsPayable, bill.Total)
			if err != nil {
				return nil, err
			}

			bill.MarkExpensePosted()
			if err := repos.VendorBills().Save(ctx, bill); err != nil {
				return nil, err
			}
			return []automation.AffectedRecord{
				{Model: "JournalEntry", ID: entry.ID, Action: "posted"},
				{Model: "VendorBill", ID: bill.ID, Action: "expense_posted"},
			}, nil
		})
}

// OnInvoicePaid reacts to an invoice reaching fully-paid status: its reserved
// units move to Sold, revenue is recognized and cost of goods sold is posted
// from the units' purchase prices. The journal-per-source guard makes the run
// idempotent; a retry after a rollback re-posts everything, a retry after
// success is rejected.
func (s *PostingService) OnInvoicePaid(ctx context.Context, invoiceID uuid.UUID, actor shared.Actor) (*PostingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, automation.ActionInvoicePaid, SourceInvoice, invoiceID,
		func(repos TransactionalRepositories) ([]automation.AffectedRecord, error) {
			invoice, err := repos.Invoices().FindByID(ctx, invoiceID)
			if err != nil {
				return nil, err
			}
			if invoice.Status != billing.InvoiceStatusPaid {
				return nil, shared.NewDomainErrorf("INVALID_STATE",
					"invoice %s is %s, postings run only for paid invoices",
					invoice.InvoiceNumber, invoice.Status)
			}
			posted, err := repos.Journals().ExistsForSource(ctx, SourceInvoice, invoiceID)
			if err != nil {
				return nil, err
			}
			if posted {
				return nil, shared.NewDomainErrorf("ALREADY_POSTED",
					"journal entries already exist for invoice %s", invoice.InvoiceNumber)
			}

			var affected []automation.AffectedRecord

			units, err := repos.Units().FindByHolderForUpdate(ctx,
				inventory.HolderTypeInvoice, invoiceID, inventory.StatusReserved)
			if err != nil {
				return nil, err
			}
			for i := range units {
				unit := &units[i]
				from := unit.InventoryStatus
				if err := unit.MarkSold(); err != nil {
					return nil, err
				}
				if err := repos.Units().SaveWithLock(ctx, unit); err != nil {
					return nil, err
				}
				record := inventory.NewStatusChangeRecord(unit, from, unit.InventoryStatus,
					inventory.ReasonInvoicePaid, SourceInvoice, &invoiceID, actor, "")
				if err := repos.StatusChanges().Append(ctx, record); err != nil {
					return nil, err
				}
				affected = append(affected, automation.AffectedRecord{Model: "Unit", ID: unit.ID, Action: "sold"})
			}

			revenue, err := s.postPairedJournal(ctx, repos,
				"Revenue on "+invoice.InvoiceNumber, SourceInvoice, invoice.ID,
				finance.AccountCodeAccountsReceivable, finance.AccountCodeSalesRevenue, invoice.Total)
			if err != nil {
				return nil, err
			}
			affected = append(affected, automation.AffectedRecord{Model: "JournalEntry", ID: revenue.ID, Action: "posted"})

			// COGS comes from the purchase price of each unit on the invoice,
			// not from the selling price
			cogs, err := s.costOfGoods(ctx, repos, invoiceID)
			if err != nil {
				return nil, err
			}
			if cogs.IsPositive() {
				entry, err := s.postPairedJournal(ctx, repos,
					"Cost of goods sold on "+invoice.InvoiceNumber, SourceInvoice, invoice.ID,
					finance.AccountCodeCostOfGoodsSold, finance.AccountCodeInventory, cogs)
				if err != nil {
					return nil, err
				}
				affected = append(affected, automation.AffectedRecord{Model: "JournalEntry", ID: entry.ID, Action: "posted"})
			}
			return affected, nil
		})
}

// Retry replays a failed automation run. Only failed entries can be retried;
// the per-action guards reject replays whose effects already committed.
func (s *PostingService) Retry(ctx context.Context, logEntryID uuid.UUID, actor shared.Actor) (*PostingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	entry, err := s.logs.FindByID(ctx, logEntryID)
	if err != nil {
		return nil, err
	}
	if !entry.CanRetry() {
		return nil, shared.NewDomainErrorf("RETRY_NOT_ALLOWED",
			"log entry %s is %s, only failed runs can be retried", entry.ID, entry.Status).
			WithDetail("status", string(entry.Status))
	}

	s.logger.Info("retrying automation run",
		zap.String("log_entry_id", logEntryID.String()),
		zap.String("action", string(entry.Action)),
		zap.String("source_id", entry.SourceID.String()),
	)

	switch entry.Action {
	case automation.ActionPurchaseCompleted:
		return s.OnPurchaseCompleted(ctx, entry.SourceID, actor)
	case automation.ActionBillFromPO:
		return s.CreateBillFromPurchaseOrder(ctx, entry.SourceID, actor)
	case automation.ActionSupplierExpense:
		return s.PostSupplierExpense(ctx, entry.SourceID, actor)
	case automation.ActionInvoicePaid:
		return s.OnInvoicePaid(ctx, entry.SourceID, actor)
	default:
		return nil, shared.NewDomainErrorf("INVALID_ACTION", "unknown automation action %q", entry.Action)
	}
}

// FailedRuns lists failed log entries awaiting manual retry, oldest first
func (s *PostingService) FailedRuns(ctx context.Context, limit int) ([]automation.LogEntry, error) {
	return s.logs.FindFailed(ctx, limit)
}

// run wraps one automation operation: lock the source, open the log entry,
// execute the transactional body, and close the log with the outcome. The
// log entry is saved outside the transaction on purpose.
func (s *PostingService) run(ctx context.Context, action automation.ActionType, sourceType string, sourceID uuid.UUID, fn func(repos TransactionalRepositories) ([]automation.AffectedRecord, error)) (*PostingResult, error) {
	key := fmt.Sprintf("automation:%s:%s", action, sourceID)
	acquired, err := s.idem.Acquire(ctx, key, runLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, shared.NewDomainErrorf("CONCURRENT_RUN",
			"another %s run for source %s is in progress", action, sourceID).
			WithDetail("source_id", sourceID.String())
	}
	defer func() {
		if err := s.idem.Release(ctx, key); err != nil {
			s.logger.Warn("failed to release automation lock", zap.String("key", key), zap.Error(err))
		}
	}()

	entry, err := automation.NewLogEntry(action, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Save(ctx, entry); err != nil {
		return nil, err
	}

	var affected []automation.AffectedRecord
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		affected, err = fn(repos)
		return err
	})
	if err != nil {
		entry.Fail(err)
		if saveErr := s.logs.Save(ctx, entry); saveErr != nil {
			s.logger.Error("failed to record automation failure",
				zap.String("log_entry_id", entry.ID.String()), zap.Error(saveErr))
		}
		s.logger.Error("automation run failed",
			zap.String("action", string(action)),
			zap.String("source_id", sourceID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	entry.Complete(affected)
	if err := s.logs.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("automation run completed",
		zap.String("action", string(action)),
		zap.String("source_id", sourceID.String()),
		zap.Int("affected", len(affected)),
	)
	return &PostingResult{Log: entry, Affected: affected}, nil
}

// postPairedJournal posts a two-line journal entry and moves both account
// balances in the same transaction, with both account rows locked
func (s *PostingService) postPairedJournal(ctx context.Context, repos TransactionalRepositories, description, sourceType string, sourceID uuid.UUID, debitCode, creditCode string, amount decimal.Decimal) (*finance.JournalEntry, error) {
	debitAccount, err := repos.Accounts().FindByCodeForUpdate(ctx, debitCode)
	if err != nil {
		return nil, err
	}
	creditAccount, err := repos.Accounts().FindByCodeForUpdate(ctx, creditCode)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, shared.SequenceJournalEntry)
	if err != nil {
		return nil, err
	}
	entry, err := finance.NewPairedJournalEntry(number, description, sourceType, sourceID,
		debitAccount, creditAccount, amount)
	if err != nil {
		return nil, err
	}
	if err := repos.Journals().Save(ctx, entry); err != nil {
		return nil, err
	}

	debitAccount.ApplyDebit(entry.Lines[0].Debit)
	creditAccount.ApplyCredit(entry.Lines[1].Credit)
	if err := repos.Accounts().Save(ctx, debitAccount); err != nil {
		return nil, err
	}
	if err := repos.Accounts().Save(ctx, creditAccount); err != nil {
		return nil, err
	}
	return entry, nil
}

// costOfGoods sums purchase price times line quantity for every unit on the
// invoice
func (s *PostingService) costOfGoods(ctx context.Context, repos TransactionalRepositories, invoiceID uuid.UUID) (decimal.Decimal, error) {
	lines, err := repos.Invoices().FindLinesByInvoice(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range lines {
		unit, err := repos.Units().FindByID(ctx, lines[i].UnitID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(unit.PurchasePrice.Mul(lines[i].Quantity))
	}
	return total.Round(2), nil
}
