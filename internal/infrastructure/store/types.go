package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// stringList is a []string stored as a JSONB array.
type stringList []string

func (s stringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (s *stringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = stringList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("stringList: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*s = out
	return nil
}
