package finance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// AccountType classifies a chart-of-accounts entry and determines which side
// carries its normal balance
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Well-known account codes used by the posting engine. Postings resolve
// accounts through the repository by code; account ids are never hard-coded.
const (
	AccountCodeAccountsReceivable = "1200"
	AccountCodeInventory          = "1400"
	AccountCodeAccountsPayable    = "2100"
	AccountCodeSalesRevenue       = "4000"
	AccountCodeCostOfGoodsSold    = "5000"
	AccountCodeSupplierExpense    = "6100"
)

// Account is one row of the chart of accounts with a running balance.
// Balance updates happen in the same transaction as the journal lines that
// cause them.
type Account struct {
	shared.BaseAggregateRoot
	Code    string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name    string          `gorm:"size:200;not null" json:"name"`
	Type    AccountType     `gorm:"size:20;not null" json:"type"`
	Balance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	Active  bool            `gorm:"not null;default:true" json:"active"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a chart-of-accounts entry
func NewAccount(code, name string, accountType AccountType) (*Account, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_ACCOUNT_TYPE", "unknown account type %q", accountType)
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Type:              accountType,
		Balance:           decimal.Zero,
		Active:            true,
	}, nil
}

// ApplyDebit adjusts the running balance for a debit. Debits increase asset
// and expense accounts and decrease the rest.
func (a *Account) ApplyDebit(amount decimal.Decimal) {
	switch a.Type {
	case AccountTypeAsset, AccountTypeExpense:
		a.Balance = a.Balance.Add(amount).Round(2)
	default:
		a.Balance = a.Balance.Sub(amount).Round(2)
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// ApplyCredit adjusts the running balance for a credit. Credits increase
// liability, equity and revenue accounts and decrease the rest.
func (a *Account) ApplyCredit(amount decimal.Decimal) {
	switch a.Type {
	case AccountTypeAsset, AccountTypeExpense:
		a.Balance = a.Balance.Sub(amount).Round(2)
	default:
		a.Balance = a.Balance.Add(amount).Round(2)
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// DefaultChartOfAccounts returns the accounts the posting engine requires.
// Used by migration/seeding.
func DefaultChartOfAccounts() []*Account {
	mk := func(code, name string, t AccountType) *Account {
		a, _ := NewAccount(code, name, t)
		return a
	}
	return []*Account{
		mk(AccountCodeAccountsReceivable, "Accounts Receivable", AccountTypeAsset),
		mk(AccountCodeInventory, "Inventory", AccountTypeAsset),
		mk(AccountCodeAccountsPayable, "Accounts Payable", AccountTypeLiability),
		mk(AccountCodeSalesRevenue, "Sales Revenue", AccountTypeRevenue),
		mk(AccountCodeCostOfGoodsSold, "Cost of Goods Sold", AccountTypeExpense),
		mk(AccountCodeSupplierExpense, "Supplier Expense", AccountTypeExpense),
	}
}
