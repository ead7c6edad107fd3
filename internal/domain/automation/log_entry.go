package automation

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// ActionType enumerates the posting-engine entry points
type ActionType string

const (
	ActionPurchaseCompleted ActionType = "PURCHASE_COMPLETED"
	ActionBillFromPO        ActionType = "BILL_FROM_PURCHASE_ORDER"
	ActionSupplierExpense   ActionType = "SUPPLIER_EXPENSE_POSTED"
	ActionInvoicePaid       ActionType = "INVOICE_PAID_INVENTORY_UPDATE"
)

// IsValid checks if the action type is valid
func (a ActionType) IsValid() bool {
	switch a {
	case ActionPurchaseCompleted, ActionBillFromPO, ActionSupplierExpense, ActionInvoicePaid:
		return true
	}
	return false
}

// LogStatus is the lifecycle of one automation run
type LogStatus string

const (
	LogStatusInProgress LogStatus = "IN_PROGRESS"
	LogStatusSuccess    LogStatus = "SUCCESS"
	LogStatusFailed     LogStatus = "FAILED"
)

// AffectedRecord names one record mutated by an automation run
type AffectedRecord struct {
	Model  string    `json:"model"`
	ID     uuid.UUID `json:"id"`
	Action string    `json:"action"`
}

// AffectedRecordList is stored as a JSON column
type AffectedRecordList []AffectedRecord

// Value implements driver.Valuer
func (l AffectedRecordList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *AffectedRecordList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into AffectedRecordList", value)
	}
}

// LogEntry records one business-event-triggered operation. It is created at
// the start of the operation and updated exactly once on completion. The
// entry is the durable handle for manual retry; it is never used for
// control flow.
type LogEntry struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Action          ActionType         `gorm:"size:50;not null;index" json:"action"`
	SourceType      string             `gorm:"size:40;not null;index:idx_automation_source" json:"source_type"`
	SourceID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_automation_source" json:"source_id"`
	Status          LogStatus          `gorm:"size:20;not null;index" json:"status"`
	AffectedRecords AffectedRecordList `gorm:"type:jsonb" json:"affected_records"`
	ErrorMessage    string             `gorm:"size:2000" json:"error_message,omitempty"`
	StartedAt       time.Time          `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

// TableName returns the table name for GORM
func (LogEntry) TableName() string {
	return "automation_log_entries"
}

// NewLogEntry opens a log entry for an automation run
func NewLogEntry(action ActionType, sourceType string, sourceID uuid.UUID) (*LogEntry, error) {
	if !action.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_ACTION", "unknown automation action %q", action)
	}
	if sourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source ID cannot be empty")
	}
	return &LogEntry{
		ID:         uuid.New(),
		Action:     action,
		SourceType: sourceType,
		SourceID:   sourceID,
		Status:     LogStatusInProgress,
		StartedAt:  time.Now(),
	}, nil
}

// Complete closes the entry as successful with the mutated record list
func (e *LogEntry) Complete(affected []AffectedRecord) {
	now := time.Now()
	e.Status = LogStatusSuccess
	e.AffectedRecords = affected
	e.ErrorMessage = ""
	e.CompletedAt = &now
}

// Fail closes the entry with the error that aborted the run
func (e *LogEntry) Fail(err error) {
	now := time.Now()
	e.Status = LogStatusFailed
	e.ErrorMessage = err.Error()
	e.CompletedAt = &now
}

// CanRetry reports whether the entry may be replayed manually
func (e *LogEntry) CanRetry() bool {
	return e.Status == LogStatusFailed
}

// LogEntryRepository persists automation log entries
type LogEntryRepository interface {
	// FindByID finds a log entry by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*LogEntry, error)

	// FindBySource returns log entries for a source document, newest first
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]LogEntry, error)

	// FindFailed returns failed entries for manual retry, oldest first
	FindFailed(ctx context.Context, limit int) ([]LogEntry, error)

	// Save creates or updates a log entry
	Save(ctx context.Context, entry *LogEntry) error
}
