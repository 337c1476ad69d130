package domain

import (
	"database/sql/driver"
	"encoding/json"
)

type PairResults []PairResult

func (r PairResults) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *PairResults) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" || string(data) == "[]" {
		*r = nil
		return nil
	}

	return json.Unmarshal(data, r)
}
