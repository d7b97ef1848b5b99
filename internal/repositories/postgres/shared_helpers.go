package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

// resolveDB returns the transaction DB if provided, otherwise the default DB
func resolveDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// handleDBError is a package-level helper for handling database errors.
// Lookup misses are normalized to repositories.ErrNotFound.
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// applyPaginationAndSorting applies pagination and whitelisted sorting.
// sortKeyToColumn maps API sort keys to SQL identifiers.
func applyPaginationAndSorting(query *gorm.DB, sortKeyToColumn map[string]string, defaultColumn string, limit, offset int, sortBy, sortOrder string) *gorm.DB {
	column, ok := sortKeyToColumn[sortBy]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		order = "ASC"
	}

	// Secondary key keeps ordering stable for equal timestamps
	query = query.Order(fmt.Sprintf("%s %s", column, order)).Order("id " + order)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes user input match literally inside a LIKE pattern using '\' as escape
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
