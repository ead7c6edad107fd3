package partner

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Customer is a buying party. OutstandingBalance is what the customer owes;
// it is adjusted in the same transaction as the ledger row recording the
// change, under a row-level lock on this record.
type Customer struct {
	shared.BaseAggregateRoot
	Name               string          `gorm:"size:200;not null" json:"name"`
	Phone              string          `gorm:"size:30" json:"phone,omitempty"`
	Email              string          `gorm:"size:200" json:"email,omitempty"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"outstanding_balance"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer
func NewCustomer(name string) (*Customer, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	return &Customer{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Name:               name,
		OutstandingBalance: decimal.Zero,
	}, nil
}

// IncreaseOutstanding raises what the customer owes (e.g. invoice issued)
func (c *Customer) IncreaseOutstanding(amount decimal.Decimal) {
	c.OutstandingBalance = c.OutstandingBalance.Add(amount).Round(2)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// DecreaseOutstanding lowers what the customer owes (e.g. payment received)
func (c *Customer) DecreaseOutstanding(amount decimal.Decimal) {
	c.OutstandingBalance = c.OutstandingBalance.Sub(amount).Round(2)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Vendor is a supplying party. Balance is what the business owes the vendor;
// the same transactional discipline as Customer applies.
type Vendor struct {
	shared.BaseAggregateRoot
	Name    string          `gorm:"size:200;not null" json:"name"`
	Phone   string          `gorm:"size:30" json:"phone,omitempty"`
	Email   string          `gorm:"size:200" json:"email,omitempty"`
	Balance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Vendor) TableName() string {
	return "vendors"
}

// NewVendor creates a vendor
func NewVendor(name string) (*Vendor, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name cannot be empty")
	}
	return &Vendor{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Balance:           decimal.Zero,
	}, nil
}

// IncreaseBalance raises what is owed to the vendor (e.g. bill recorded)
func (v *Vendor) IncreaseBalance(amount decimal.Decimal) {
	v.Balance = v.Balance.Add(amount).Round(2)
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}

// DecreaseBalance lowers what is owed to the vendor (e.g. bill paid)
func (v *Vendor) DecreaseBalance(amount decimal.Decimal) {
	v.Balance = v.Balance.Sub(amount).Round(2)
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}
