package engine

import (
	"fmt"

	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

// BuildSoftDeleteSQL marks a live record deleted.
func BuildSoftDeleteSQL(entity *metadata.Entity, dialect store.Dialect, id string) (string, []any) {
	pb := dialect.NewParamBuilder()
	sql := fmt.Sprintf("UPDATE %s SET deleted_at = %s WHERE %s = %s AND deleted_at IS NULL",
		store.QuoteIdent(entity.Table), dialect.NowExpr(), store.QuoteIdent(metadata.IDField), pb.Add(id))
	return sql, pb.Params()
}

// BuildHardDeleteSQL removes a record.
func BuildHardDeleteSQL(entity *metadata.Entity, dialect store.Dialect, id string) (string, []any) {
	pb := dialect.NewParamBuilder()
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		store.QuoteIdent(entity.Table), store.QuoteIdent(metadata.IDField), pb.Add(id))
	return sql, pb.Params()
}
