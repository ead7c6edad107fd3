package automation

import (
	"github.com/stockledger/backend/internal/domain/automation"
)

// PostingResult reports one automation run: the closed log entry and the
// records it touched
type PostingResult struct {
	Log      *automation.LogEntry        `json:"log"`
	Affected []automation.AffectedRecord `json:"affected"`
}
