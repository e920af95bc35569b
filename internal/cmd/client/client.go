// Package client contains Cobra CLI commands for talking to a rangeflow
// server over its HTTP API.
package client

import (
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// decodedItem renders a scanned record for terminal output: seq plus one of
// payload_json, payload_text, or payload_b64 depending on what the bytes
// look like.
func decodedItem(space string, seq uint64, payload []byte) map[string]any {
	out := map[string]any{
		"space": space,
		"seq":   seq,
	}
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}
