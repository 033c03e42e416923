package storage

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldValue is one column assignment of a partial update.
type FieldValue struct {
	Column string
	Value  any
}

// Patch is an ordered sparse update. The SET clause is built in patch order.
type Patch []FieldValue

func (p Patch) Set(column string, value any) Patch {
	return append(p, FieldValue{Column: column, Value: value})
}

// PatchFromMap builds a Patch with keys in sorted order.
func PatchFromMap(fields map[string]any) Patch {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Patch, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldValue{Column: k, Value: fields[k]})
	}
	return out
}

func (p Patch) Has(column string) bool {
	for _, f := range p {
		if f.Column == column {
			return true
		}
	}
	return false
}

// Get returns the last value assigned to column.
func (p Patch) Get(column string) (any, bool) {
	var (
		value any
		found bool
	)
	for _, f := range p {
		if f.Column == column {
			value, found = f.Value, true
		}
	}
	return value, found
}

// updateSpec describes which columns of a table a Patch may touch.
type updateSpec struct {
	table   string
	allowed map[string]struct{}
	rules   map[string]string
}

func newUpdateSpec(table string, columns []string, rules map[string]string) updateSpec {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "id" || c == "user_id" {
			continue
		}
		allowed[c] = struct{}{}
	}
	return updateSpec{table: table, allowed: allowed, rules: rules}
}

// filter drops columns outside the allow-list, collapses duplicates (last
// value wins, first position kept) and normalizes nil pointers to NULL.
func (s updateSpec) filter(patch Patch) Patch {
	out := make(Patch, 0, len(patch))
	index := map[string]int{}
	for _, f := range patch {
		if _, ok := s.allowed[f.Column]; !ok {
			continue
		}
		value := normalizeValue(f.Value)
		if i, seen := index[f.Column]; seen {
			out[i].Value = value
			continue
		}
		index[f.Column] = len(out)
		out = append(out, FieldValue{Column: f.Column, Value: value})
	}
	return out
}

func (s updateSpec) check(fields Patch) error {
	for _, f := range fields {
		rule, ok := s.rules[f.Column]
		if !ok || f.Value == nil {
			continue
		}
		if !ruleAccepts(rule, f.Value) {
			return fmt.Errorf("%w: %s: unsupported value type %T", ErrValidation, f.Column, f.Value)
		}
		if err := validate.Var(f.Value, rule); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrValidation, f.Column, err)
		}
	}
	return nil
}

// ruleAccepts reports whether value has a kind the validator rule can
// inspect. Text rules need a string and gte needs a number; the validator
// panics on anything else.
func ruleAccepts(rule string, value any) bool {
	kind := reflect.ValueOf(value).Kind()
	switch {
	case strings.HasPrefix(rule, "datetime="), strings.HasPrefix(rule, "oneof="), strings.Contains(rule, "email"):
		return kind == reflect.String
	case strings.HasPrefix(rule, "gte="):
		switch kind {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	}
	return true
}

// apply runs UPDATE <table> SET ... WHERE id = ?.
func (s updateSpec) apply(ctx context.Context, c *conn, entity, id string, patch Patch) error {
	op := "update " + entity
	if err := c.checkReady(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if id == "" {
		return fmt.Errorf("%s: id is required", op)
	}

	fields := s.filter(patch)
	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoValidFields)
	}
	if err := s.check(fields); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		assignments = append(assignments, f.Column+" = ?")
		args = append(args, f.Value)
	}
	args = append(args, id)

	query := `UPDATE ` + s.table + ` SET ` + strings.Join(assignments, ", ") + ` WHERE id = ?`
	result, err := c.db.ExecContext(ctx, query, args...)
	c.observe(entity, "update", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classifyError(err))
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		switch typed := v.(type) {
		case PhoneType:
			return string(typed)
		case ReturnType:
			return string(typed)
		}
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return normalizeValue(rv.Elem().Interface())
}
