package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/siherrmann/docqa/helper"
)

// Metadata is free form information about an upload (content type, size, pages).
// It is stored as JSONB next to the session.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return helper.NewError("scan metadata", fmt.Errorf("unsupported type %T", value))
	}

	result := Metadata{}
	if err := json.Unmarshal(data, &result); err != nil {
		return helper.NewError("unmarshal metadata", err)
	}
	*m = result
	return nil
}

// String returns the value stored under key if it is a string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
