package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

// WritePlan describes a single-record create or update.
type WritePlan struct {
	IsCreate bool
	Entity   *metadata.Entity
	Fields   map[string]any
	ID       string // empty for create
}

// PlanWrite builds a WritePlan from a request payload without executing any
// SQL. Id is never written: the server assigns it on create and it selects
// the row on update.
func PlanWrite(entity *metadata.Entity, body map[string]any, existingID string) (*WritePlan, []ErrorDetail) {
	isCreate := existingID == ""

	var errs []ErrorDetail
	fields := make(map[string]any, len(body))
	for key, raw := range body {
		if key == metadata.IDField {
			continue
		}
		f := entity.GetField(key)
		if f == nil {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "unknown",
				Message: fmt.Sprintf("Unknown field: %s", key),
			})
			continue
		}
		val, err := coerceField(f, raw)
		if err != nil {
			errs = append(errs, ErrorDetail{Field: key, Rule: "type", Message: err.Error()})
			continue
		}
		fields[key] = val
	}
	if len(errs) > 0 {
		sortDetails(errs)
		return nil, errs
	}

	if isCreate {
		applyDefaults(entity, fields)
	}

	if errs := ValidateFields(entity, fields, isCreate); len(errs) > 0 {
		return nil, errs
	}

	return &WritePlan{
		IsCreate: isCreate,
		Entity:   entity,
		Fields:   fields,
		ID:       existingID,
	}, nil
}

// ValidateFields checks required and enum constraints in declaration order.
// On update only the submitted fields are checked.
func ValidateFields(entity *metadata.Entity, fields map[string]any, isCreate bool) []ErrorDetail {
	var errs []ErrorDetail
	for _, f := range entity.Fields {
		val, present := fields[f.Name]
		if !present && !isCreate {
			continue
		}

		if f.Required && isBlank(val) {
			errs = append(errs, ErrorDetail{
				Field:   f.Name,
				Rule:    "required",
				Message: fmt.Sprintf("%s is required", f.Name),
			})
			continue
		}

		if s, ok := val.(string); ok && s != "" && !f.AllowsValue(s) {
			errs = append(errs, ErrorDetail{
				Field:   f.Name,
				Rule:    "enum",
				Message: fmt.Sprintf("%s must be one of: %s", f.Name, strings.Join(f.Enum, ", ")),
			})
		}
	}
	return errs
}

// ExecuteWritePlan evaluates rules and runs the write inside one transaction,
// then returns the stored record.
func ExecuteWritePlan(ctx context.Context, s *store.Store, plan *WritePlan) (map[string]any, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var old map[string]any
	merged := make(map[string]any, len(plan.Fields))
	if !plan.IsCreate {
		old, err = fetchRecord(ctx, tx, s.Dialect, plan.Entity, plan.ID)
		if err != nil {
			return nil, err
		}
		for k, v := range old {
			merged[k] = v
		}
	}
	for k, v := range plan.Fields {
		merged[k] = v
	}

	if ruleErrs := EvaluateRules(plan.Entity, merged, old, plan.IsCreate); len(ruleErrs) > 0 {
		return nil, ValidationError(ruleErrs)
	}

	id := plan.ID
	if plan.IsCreate {
		id = uuid.NewString()
		sql, params := BuildInsertSQL(plan.Entity, s.Dialect, id, plan.Fields)
		if _, err := store.Exec(ctx, tx, sql, params...); err != nil {
			return nil, fmt.Errorf("insert %s: %w", plan.Entity.Table, store.MapError(s.Dialect, err))
		}
	} else {
		sql, params := BuildUpdateSQL(plan.Entity, s.Dialect, id, plan.Fields)
		if sql != "" {
			if _, err := store.Exec(ctx, tx, sql, params...); err != nil {
				return nil, fmt.Errorf("update %s: %w", plan.Entity.Table, store.MapError(s.Dialect, err))
			}
		}
	}

	record, err := fetchRecord(ctx, tx, s.Dialect, plan.Entity, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", plan.Entity.Name, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

// BuildInsertSQL builds an INSERT with the assigned Id first and the
// remaining columns in name order.
func BuildInsertSQL(entity *metadata.Entity, dialect store.Dialect, id string, fields map[string]any) (string, []any) {
	pb := dialect.NewParamBuilder()
	cols := []string{store.QuoteIdent(metadata.IDField)}
	vals := []string{pb.Add(id)}
	for _, name := range sortedKeys(fields) {
		cols = append(cols, store.QuoteIdent(name))
		vals = append(vals, pb.Add(fields[name]))
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		store.QuoteIdent(entity.Table), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return sql, pb.Params()
}

// BuildUpdateSQL builds an UPDATE of the given fields. Returns "" when there
// is nothing to set.
func BuildUpdateSQL(entity *metadata.Entity, dialect store.Dialect, id string, fields map[string]any) (string, []any) {
	if len(fields) == 0 {
		return "", nil
	}
	pb := dialect.NewParamBuilder()
	sets := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		sets = append(sets, fmt.Sprintf("%s = %s", store.QuoteIdent(name), pb.Add(fields[name])))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		store.QuoteIdent(entity.Table), strings.Join(sets, ", "),
		store.QuoteIdent(metadata.IDField), pb.Add(id))
	if entity.SoftDelete {
		sql += " AND deleted_at IS NULL"
	}
	return sql, pb.Params()
}

func fetchRecord(ctx context.Context, q store.Querier, dialect store.Dialect, entity *metadata.Entity, id string) (map[string]any, error) {
	cols := entity.FieldNames()
	for i, c := range cols {
		cols[i] = store.QuoteIdent(c)
	}
	pb := dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "), store.QuoteIdent(entity.Table),
		store.QuoteIdent(metadata.IDField), pb.Add(id))
	if entity.SoftDelete {
		sql += " AND deleted_at IS NULL"
	}

	row, err := store.QueryRow(ctx, q, sql, pb.Params()...)
	if err != nil {
		return nil, err
	}
	if dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, boolFields(entity))
	}
	return row, nil
}

// coerceField converts a decoded JSON value to the field's storage type.
// Form submissions arrive as strings, so numbers and booleans are parsed.
func coerceField(f *metadata.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Type {
	case "int", "integer", "bigint":
		switch v := raw.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("%s must be a whole number", f.Name)
			}
			return int64(v), nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a whole number", f.Name)
			}
			return n, nil
		}
		return nil, fmt.Errorf("%s must be a whole number", f.Name)

	case "decimal", "float":
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", f.Name)
			}
			return n, nil
		}
		return nil, fmt.Errorf("%s must be a number", f.Name)

	case "boolean":
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("%s must be true or false", f.Name)
			}
			return b, nil
		}
		return nil, fmt.Errorf("%s must be true or false", f.Name)

	default:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
		return nil, fmt.Errorf("%s must be a string", f.Name)
	}
}

func applyDefaults(entity *metadata.Entity, fields map[string]any) {
	for _, f := range entity.Fields {
		if f.Default == nil {
			continue
		}
		if _, ok := fields[f.Name]; ok {
			continue
		}
		if v, err := coerceField(&f, f.Default); err == nil {
			fields[f.Name] = v
		} else {
			fields[f.Name] = f.Default
		}
	}
}

func boolFields(entity *metadata.Entity) []string {
	var names []string
	for _, f := range entity.Fields {
		if f.Type == "boolean" {
			names = append(names, f.Name)
		}
	}
	return names
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortDetails(d []ErrorDetail) {
	sort.Slice(d, func(i, j int) bool { return d[i].Field < d[j].Field })
}
