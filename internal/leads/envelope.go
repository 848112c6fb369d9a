package leads

import (
	"encoding/json"
	"sort"
)

// Envelope keys the platform has been seen wrapping lead lists in.
var envelopeKeys = []string{"data", "leads", "items", "results", "response"}

// ExtractRecords pulls the lead list out of whatever envelope the platform
// used: a bare array, a known wrapper key, or (for paginated responses that
// carry total_leads) any key holding a list. Non-object entries are dropped.
func ExtractRecords(payload any) []RawRecord {
	switch v := payload.(type) {
	case []any:
		return coerceRecords(v)
	case map[string]any:
		for _, key := range envelopeKeys {
			if list, ok := v[key].([]any); ok {
				return coerceRecords(list)
			}
		}
		if _, ok := v["total_leads"]; ok {
			return coerceRecords(scanForList(v))
		}
	}
	return nil
}

// DecodeRecords unmarshals a raw response body and extracts its lead records.
func DecodeRecords(body []byte) ([]RawRecord, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return ExtractRecords(payload), nil
}

// scanForList finds the list hiding under an unspecified key. Keys are walked
// in sorted order so the result is deterministic; a list of objects wins over
// a list of anything else.
func scanForList(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fallback []any
	for _, k := range keys {
		list, ok := m[k].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if _, ok := list[0].(map[string]any); ok {
			return list
		}
		if fallback == nil {
			fallback = list
		}
	}
	return fallback
}

func coerceRecords(list []any) []RawRecord {
	records := make([]RawRecord, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			records = append(records, RawRecord(m))
		}
	}
	return records
}
