package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*ContentBag)(nil)
	_ driver.Valuer = ContentBag(nil)
)

// ContentBag is the open-ended part of a recipe or meal plan. Its keys are
// opaque to the application and round-trip through storage unchanged.
type ContentBag map[string]any

// Merge returns a new bag holding b's keys overwritten by patch's keys.
// Nested values are replaced, not merged.
func (b ContentBag) Merge(patch ContentBag) ContentBag {
	if len(patch) == 0 {
		return b
	}
	out := make(ContentBag, len(b)+len(patch))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Scan implements sql.Scanner for JSONB columns.
func (b *ContentBag) Scan(value any) error {
	if value == nil {
		*b = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, b)
}

// Value implements driver.Valuer for JSONB columns.
func (b ContentBag) Value() (driver.Value, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b)
}
