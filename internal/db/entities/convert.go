package entities

import "time"

// Decoding helpers shared by the entity mappers. Backend rows are loosely
// typed maps, so each accessor tolerates a missing or nil field.

func getString(record map[string]interface{}, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

func getStringPtr(record map[string]interface{}, key string) *string {
	if v, ok := record[key].(string); ok {
		return &v
	}
	return nil
}

func getInt(record map[string]interface{}, key string) int {
	switch v := record[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func getFloatPtr(record map[string]interface{}, key string) *float64 {
	switch v := record[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func getBool(record map[string]interface{}, key string) bool {
	if v, ok := record[key].(bool); ok {
		return v
	}
	return false
}

func getTime(record map[string]interface{}, key string) time.Time {
	switch v := record[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
