package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap is a JSONB-backed map used for free-form metadata columns.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*m = make(JSONMap)
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		if v == "" {
			*m = make(JSONMap)
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("model: type assertion to []byte or string failed for JSONMap")
	}
}
