package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/haven/api/internal/database"
)

// record is a single decoded SurrealDB row with ids and datetimes flattened
// to strings and time.Time
type record = map[string]interface{}

// normalize walks a decoded value and converts SurrealDB driver types into
// plain JSON-friendly values
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case models.RecordID:
		return convertSurrealID(t)
	case *models.RecordID:
		if t == nil {
			return nil
		}
		return convertSurrealID(*t)
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case string, bool, float64, float32, int, int64, uint64, time.Time:
		return t
	}

	// NONE decodes to an empty marker struct
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Struct && rv.NumField() == 0 {
		return nil
	}
	return v
}

// decode converts a normalized record into dst through its JSON tags
func decode(data record, dst interface{}) error {
	if id, ok := data["id"]; ok {
		data["id"] = convertSurrealID(id)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// statementRows returns the rows produced by statement i of a query result
func statementRows(results []interface{}, i int) []record {
	if i >= len(results) {
		return nil
	}

	var rows []interface{}
	switch r := results[i].(type) {
	case map[string]interface{}:
		if _, wrapped := r["status"]; wrapped {
			switch inner := r["result"].(type) {
			case []interface{}:
				rows = inner
			case map[string]interface{}:
				rows = []interface{}{inner}
			}
		} else {
			rows = []interface{}{r}
		}
	case []interface{}:
		rows = r
	}

	out := make([]record, 0, len(rows))
	for _, row := range rows {
		if m, ok := normalize(row).(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// selectOne runs query and parses its first row. It returns nil, nil when
// the query produced no rows.
func selectOne[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}, parse func(record) (*T, error)) (*T, error) {
	result, err := db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := normalize(result).(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}
	return parse(data)
}

// selectMany runs query and parses every row of its first statement
func selectMany[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}, parse func(record) (*T, error)) ([]*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseRows(statementRows(results, 0), parse)
}

func parseRows[T any](rows []record, parse func(record) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		item, err := parse(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// createOne runs a CREATE (or UPDATE ... RETURN AFTER) and parses the record
func createOne[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}, parse func(record) (*T, error)) (*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return nil, errors.New("no result returned")
	}
	return parse(rows[0])
}

// parseInto builds a parse func for types whose fields all decode from JSON
func parseInto[T any]() func(record) (*T, error) {
	return func(data record) (*T, error) {
		var v T
		if err := decode(data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	}
}

// countOf runs a `SELECT count() AS count ... GROUP ALL` query
func countOf(ctx context.Context, db database.Database, query string, vars map[string]interface{}) (int, error) {
	result, err := db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

// extractCount extracts count from a count query row
func extractCount(result interface{}) int {
	if resp, ok := result.(map[string]interface{}); ok {
		return extractCountValue(resp["count"])
	}
	return extractCountValue(result)
}

// extractCountValue converts various numeric types to int
func extractCountValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return int(c)
	case float32:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}

// isDuplicate reports a unique index violation
func isDuplicate(err error) bool {
	return errors.Is(err, database.ErrDuplicate)
}

// getStringPtr extracts an optional string value from a record
func getStringPtr(m record, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%s:%v", v.Table, v.ID)
		}
		return ""
	case map[string]interface{}:
		tb, _ := v["tb"].(string)
		if tb == "" {
			tb, _ = v["Table"].(string)
		}
		idPart := ""
		if raw, ok := v["id"]; ok {
			idPart = fmt.Sprint(raw)
		} else if raw, ok := v["ID"]; ok {
			idPart = fmt.Sprint(raw)
		}
		if tb != "" && idPart != "" {
			return tb + ":" + idPart
		}
		return idPart
	}
	return fmt.Sprintf("%v", id)
}

// ptrToNone passes nil through so SurrealDB stores NULL for unset optionals
func ptrToNone[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// timeVar formats a time for a <datetime>$var cast
func timeVar(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timePtrVar formats an optional time, nil when unset
func timePtrVar(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return timeVar(*t)
}

// page clamps pagination arguments
func page(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
