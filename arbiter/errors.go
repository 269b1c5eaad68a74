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

import "fmt"

// payloadTruncateLimit caps the raw response copy embedded in protocol
// errors for diagnostics.
const payloadTruncateLimit = 1000

// ProtocolError is returned when the renderer responds with a payload that
// cannot be parsed into usable image bytes. Payload holds a truncated copy
// of the raw response.
type ProtocolError struct {
	Reason  string
	Payload string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected renderer response: %s. Raw: %s", e.Reason, e.Payload)
}

// UnavailableError is returned on transport failures or non-success HTTP
// statuses from the renderer. Retries beyond the client's configured count
// are the caller's decision.
type UnavailableError struct {
	Status string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("renderer unavailable: %v", e.Err)
	}
	return fmt.Sprintf("renderer unavailable: status %s", e.Status)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// truncate returns s cut to the payload truncate limit.
func truncate(s string) string {
	if len(s) <= payloadTruncateLimit {
		return s
	}
	return s[:payloadTruncateLimit]
}
