package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	return e.Message
}

// IsAuth reports whether err is a rejected credential (401 or 403).
func IsAuth(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsTransient reports whether err may succeed on retry: transport failures
// and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.Status >= 500
}

// parseError builds an Error from a DRF-style error body. Field errors are
// folded into one message sorted by field name.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = fallbackMessage(status, body)
		return e
	}

	for _, key := range []string{"detail", "error", "message"} {
		if v, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				e.Message = s
				delete(raw, key)
				break
			}
		}
	}

	for key, v := range raw {
		msgs := stringList(v)
		if len(msgs) == 0 {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string][]string)
		}
		e.Fields[key] = msgs
	}

	if e.Message == "" && len(e.Fields) > 0 {
		e.Message = joinFields(e.Fields)
	}
	if e.Message == "" {
		e.Message = fallbackMessage(status, body)
	}
	return e
}

func stringList(v json.RawMessage) []string {
	var list []string
	if json.Unmarshal(v, &list) == nil {
		return list
	}
	var s string
	if json.Unmarshal(v, &s) == nil && s != "" {
		return []string{s}
	}
	return nil
}

func joinFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(fields[k], " ")
		if k == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, msg))
	}
	return strings.Join(parts, "; ")
}

func fallbackMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("request failed with status %d", status)
}
