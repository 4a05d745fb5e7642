package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns the default sort configuration (createdAt DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to database column names; unknown fields fall
// back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyAccountFilter restricts a query to rows owned by the authenticated account.
// A context without an account matches no rows.
func ApplyAccountFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	return ApplyAccountFilterWithColumn(ctx, query, "account_id")
}

// ApplyAccountFilterWithColumn applies the account filter using a specific column name
// Use this when the column needs table qualification in joins
func ApplyAccountFilterWithColumn(ctx context.Context, query *gorm.DB, columnName string) *gorm.DB {
	accountID, ok := auth.AccountID(ctx)
	if !ok {
		return query.Where(columnName+" = ?", uuid.Nil)
	}
	return query.Where(columnName+" = ?", accountID)
}

// likeEscaper escapes LIKE wildcards so user input matches literally. '!' is
// used because backslash escaping differs between dialects.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a case-insensitive substring pattern for containsClause
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

// containsClause matches any of the columns against one likePattern argument each
func containsClause(columns ...string) string {
	conditions := make([]string, len(columns))
	for i, column := range columns {
		conditions[i] = "LOWER(" + column + ") LIKE ? ESCAPE '!'"
	}
	return strings.Join(conditions, " OR ")
}

// textColumn renders an identity column as text so it can be matched with LIKE
// on every supported dialect
func textColumn(db *gorm.DB, column string) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "CAST(" + column + " AS TEXT)"
	case "mysql":
		return "CAST(" + column + " AS CHAR)"
	default:
		return column
	}
}

// normalizePage clamps page and page size to sane bounds
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
