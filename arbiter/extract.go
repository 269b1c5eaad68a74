/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package arbiter

import (
	"bytes"
	"encoding/json"
	"strings"
)

// The renderer responds with one of three JSON shapes:
//
//   - an array of entries, each either an object {"type": ..., "value": "<base64>"}
//     or a bare string;
//   - a single object {"value": "<base64>"};
//   - a bare string "<base64>".
//
// extractPayload decodes the shape explicitly and returns the base64 payload,
// or a ProtocolError carrying a truncated copy of the raw response.
func extractPayload(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", &ProtocolError{Reason: "empty response", Payload: ""}
	}

	var (
		payload string
		err     error
	)
	switch trimmed[0] {
	case '[':
		payload, err = extractFromArray(trimmed)
	case '{':
		payload, err = extractFromObject(trimmed)
	case '"':
		payload, err = extractFromString(trimmed)
	default:
		return "", &ProtocolError{Reason: "unsupported JSON shape", Payload: truncate(string(raw))}
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(payload) == "" {
		return "", &ProtocolError{Reason: "no usable value found", Payload: truncate(string(raw))}
	}
	return payload, nil
}

// valueEntry is the object shape carried in renderer responses.
type valueEntry struct {
	Value string `json:"value"`
}

// extractFromArray scans the entries from the end to the start and returns
// the first non-blank value, accepting both object- and string-shaped
// entries. Blank values are skipped so trailing placeholder entries do not
// mask the real payload.
func extractFromArray(raw []byte) (string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return "", &ProtocolError{Reason: "malformed JSON array", Payload: truncate(string(raw))}
	}
	if len(entries) == 0 {
		return "", &ProtocolError{Reason: "empty array", Payload: truncate(string(raw))}
	}

	for i := len(entries) - 1; i >= 0; i-- {
		entry := bytes.TrimSpace(entries[i])
		if len(entry) == 0 {
			continue
		}
		var candidate string
		switch entry[0] {
		case '{':
			var v valueEntry
			if err := json.Unmarshal(entry, &v); err != nil {
				continue
			}
			candidate = v.Value
		case '"':
			if err := json.Unmarshal(entry, &candidate); err != nil {
				continue
			}
		}
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}
	return "", &ProtocolError{Reason: "no usable value found", Payload: truncate(string(raw))}
}

// extractFromObject returns the "value" field of a single-object response.
func extractFromObject(raw []byte) (string, error) {
	var v valueEntry
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &ProtocolError{Reason: "malformed JSON object", Payload: truncate(string(raw))}
	}
	return v.Value, nil
}

// extractFromString returns a bare JSON string response.
func extractFromString(raw []byte) (string, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &ProtocolError{Reason: "malformed JSON string", Payload: truncate(string(raw))}
	}
	return v, nil
}
