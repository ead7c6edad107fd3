package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stockledger/backend/internal/domain/automation"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/partner"
	"github.com/stockledger/backend/internal/domain/trade"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/numbering"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	log.Info("Running schema migration")
	if err := migrate(db.DB); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Seeding chart of accounts")
	if err := seedAccounts(db.DB); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Migration complete")
}

// migrate creates or updates all tables
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&inventory.Unit{},
		&inventory.StatusChangeRecord{},
		&inventory.Movement{},
		&billing.Invoice{},
		&billing.InvoiceLine{},
		&billing.InstallmentPlan{},
		&billing.Installment{},
		&billing.Payment{},
		&finance.Account{},
		&finance.JournalEntry{},
		&finance.JournalLine{},
		&finance.LedgerEntry{},
		&finance.VendorBill{},
		&partner.Customer{},
		&partner.Vendor{},
		&trade.PurchaseOrder{},
		&trade.PurchaseOrderItem{},
		&automation.LogEntry{},
		&numbering.SequenceCounter{},
	)
}

// seedAccounts inserts the accounts the posting engine requires. Existing
// accounts are left untouched so reruns are safe.
func seedAccounts(db *gorm.DB) error {
	for _, account := range finance.DefaultChartOfAccounts() {
		var existing finance.Account
		err := db.First(&existing, "code = ?", account.Code).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(account).Error; err != nil {
			return fmt.Errorf("seed account %s: %w", account.Code, err)
		}
	}
	return nil
}
