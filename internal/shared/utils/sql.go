package utils

import (
	"strings"
)

// JoinWithAnd joins a slice of WHERE clauses with AND
func JoinWithAnd(clauses []string) string {
	return strings.Join(clauses, " AND ")
}

// JoinWithOr joins a slice of WHERE clauses with OR
func JoinWithOr(clauses []string) string {
	return strings.Join(clauses, " OR ")
}
