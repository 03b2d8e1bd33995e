package apiclient

import (
	"bytes"
	"encoding/json"
)

// UnwrapList extracts the record list from a list response. Objects with a
// list-valued "results" field yield that field; bare lists yield themselves.
// Any other payload, malformed JSON included, yields an empty list and
// ok=false.
func UnwrapList(body []byte) (items []json.RawMessage, ok bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []json.RawMessage{}, false
	}

	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return []json.RawMessage{}, false
		}
		return items, true
	case '{':
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return []json.RawMessage{}, false
		}
		results := bytes.TrimSpace(envelope.Results)
		if len(results) == 0 || results[0] != '[' {
			return []json.RawMessage{}, false
		}
		if err := json.Unmarshal(results, &items); err != nil {
			return []json.RawMessage{}, false
		}
		return items, true
	}
	return []json.RawMessage{}, false
}

// decodeRecords decodes each raw record into T, skipping records that do not fit.
func decodeRecords[T any](raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var rec T
		if err := json.Unmarshal(item, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
