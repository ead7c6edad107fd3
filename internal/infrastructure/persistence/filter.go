package persistence

import (
	"fmt"

	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// applyFilter applies pagination and ordering from a Filter. The order column
// is validated against the caller's allowlist so filter input can never reach
// the SQL as an arbitrary expression.
func applyFilter(query *gorm.DB, filter shared.Filter, allowedColumns map[string]bool) *gorm.DB {
	orderBy := filter.OrderBy
	if orderBy == "" || !allowedColumns[orderBy] {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if filter.OrderDir == "asc" {
		orderDir = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}
