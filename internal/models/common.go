package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Pagination describes paging metadata attached to list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Fields is a JSONB-backed map holding the kind specific portion of a
// document or child row. Keys are dotted field paths as declared in the
// permission matrix and tracked field lists.
type Fields map[string]interface{}

// Value implements driver.Valuer.
func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *Fields) Scan(src interface{}) error {
	if src == nil {
		*f = Fields{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported fields source type %T", src)
	}
	if len(raw) == 0 {
		*f = Fields{}
		return nil
	}
	return json.Unmarshal(raw, f)
}

// Clone returns a deep copy produced via JSON round trip. Values inside a
// Fields map are JSON types only, so the round trip is loss free.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return Fields{}
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Fields{}
	}
	return out
}

// String fetches a string valued field, empty when absent or mistyped.
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Bool fetches a boolean valued field, false when absent.
func (f Fields) Bool(key string) bool {
	v, _ := f[key].(bool)
	return v
}

// Float fetches a numeric field, zero when absent. JSON numbers decode as
// float64 so monetary fields default to zero, never null.
func (f Fields) Float(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		out, _ := v.Float64()
		return out
	}
	return 0
}
