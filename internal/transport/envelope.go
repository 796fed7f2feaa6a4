package transport

import (
	"encoding/json"
	"fmt"
)

// Envelope is the single normalized response shape the rest of the engine
// sees. The authority wraps payloads as {success, message, data}, but backend
// revisions drifted on where the payload actually sits (data, data.data,
// data.user). Normalization happens here so stores never chase schema drift.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode unmarshals the envelope payload into out, unwrapping a single
// redundant {"data": ...} nesting when present.
func (e *Envelope) Decode(out any) error {
	if out == nil {
		return nil
	}
	payload := e.Data
	if len(payload) == 0 {
		return fmt.Errorf("envelope carries no data")
	}

	// Some backend revisions double-wrap: {"data": {"data": {...}}}.
	var nested struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &nested); err == nil && len(nested.Data) > 0 && onlyDataKey(payload) {
		payload = nested.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode envelope payload: %w", err)
	}
	return nil
}

// onlyDataKey reports whether raw is a JSON object whose only key is "data".
// Unwrapping is restricted to that shape so legitimate payloads that happen
// to contain a "data" field alongside others are left untouched.
func onlyDataKey(raw json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if len(probe) != 1 {
		return false
	}
	_, ok := probe["data"]
	return ok
}
