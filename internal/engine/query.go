package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

const defaultLimit = 25

// ListPlan is a parsed list request.
type ListPlan struct {
	Entity *metadata.Entity
	Fields []string
	Search string
	Offset int
	Limit  int
}

type QueryResult struct {
	SQL    string
	Params []any
}

// ParseListParams reads offset, limit, searchString and fields from the query
// string. Limit is capped at maxLimit; Id is always selected.
func ParseListParams(c *fiber.Ctx, entity *metadata.Entity, maxLimit int) (*ListPlan, error) {
	plan := &ListPlan{
		Entity: entity,
		Limit:  defaultLimit,
		Search: strings.TrimSpace(c.Query("searchString")),
	}

	if o := c.Query("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			return nil, NewAppError("INVALID_PARAM", 400, fmt.Sprintf("Invalid offset: %s", o))
		}
		plan.Offset = v
	}
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			return nil, NewAppError("INVALID_PARAM", 400, fmt.Sprintf("Invalid limit: %s", l))
		}
		plan.Limit = v
	}
	if maxLimit > 0 && plan.Limit > maxLimit {
		plan.Limit = maxLimit
	}

	fields, err := parseFields(entity, c.Query("fields"))
	if err != nil {
		return nil, err
	}
	plan.Fields = fields
	return plan, nil
}

func parseFields(entity *metadata.Entity, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.FieldNames(), nil
	}
	fields := []string{metadata.IDField}
	seen := map[string]bool{metadata.IDField: true}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		if !entity.HasField(name) {
			return nil, NewAppError("UNKNOWN_FIELD", 400, fmt.Sprintf("Unknown field: %s", name))
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields, nil
}

// BuildSelectSQL builds a parameterized SELECT for one page.
func BuildSelectSQL(plan *ListPlan, dialect store.Dialect) QueryResult {
	pb := dialect.NewParamBuilder()
	entity := plan.Entity

	cols := make([]string, len(plan.Fields))
	for i, f := range plan.Fields {
		cols[i] = store.QuoteIdent(f)
	}

	var where []string

	// Soft delete filter
	if entity.SoftDelete {
		where = append(where, "deleted_at IS NULL")
	}

	if plan.Search != "" {
		if clause := buildSearchClause(entity, dialect, pb, plan.Search); clause != "" {
			where = append(where, clause)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), store.QuoteIdent(entity.Table))
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}

	// Stable order so offsets page predictably
	order := []string{}
	if len(entity.ListFields) > 0 && entity.ListFields[0] != metadata.IDField {
		order = append(order, store.QuoteIdent(entity.ListFields[0]))
	}
	order = append(order, store.QuoteIdent(metadata.IDField))
	sql += " ORDER BY " + strings.Join(order, ", ")

	limit := pb.Add(plan.Limit)
	offset := pb.Add(plan.Offset)
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)

	return QueryResult{SQL: sql, Params: pb.Params()}
}

// buildSearchClause matches the search string case-insensitively against any
// of the entity's search columns.
func buildSearchClause(entity *metadata.Entity, dialect store.Dialect, pb store.ParamBuilder, search string) string {
	columns := entity.SearchColumns()
	if len(columns) == 0 {
		return ""
	}
	ph := pb.Add("%" + escapeLike(strings.ToLower(search)) + "%")
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = dialect.LikeExpr(store.QuoteIdent(col), ph)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// escapeLike escapes LIKE wildcards in user input with a backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
