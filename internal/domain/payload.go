package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Payload is a decoded JSON request object. Values keep their JSON types:
// string, bool, float64, nil, []any or map[string]any.
type Payload map[string]any

// DecodePayload never fails. Malformed JSON, an empty body or a document
// that is not an object all decode to an empty payload.
func DecodePayload(body []byte) Payload {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil || p == nil {
		return Payload{}
	}
	return p
}

// ParseID parses a path id. It must be a positive base-10 integer.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, Validation(MsgInvalidID)
	}
	return id, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the zone-less forms a date input
// produces. Zone-less values are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// NewTaskFromPayload validates a create request.
func NewTaskFromPayload(p Payload) (NewTask, error) {
	title, _ := p["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return NewTask{}, Validation(MsgTitleRequired)
	}

	n := NewTask{Title: title}

	if s, ok := p["description"].(string); ok {
		n.Description = trimmedOrNil(s)
	}

	if v, ok := p["dueDate"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return NewTask{}, Validation(MsgInvalidDueDate)
		}
		if strings.TrimSpace(s) != "" {
			due, err := ParseTimestamp(s)
			if err != nil {
				return NewTask{}, Validation(MsgInvalidDueDate)
			}
			n.DueDate = &due
		}
	}

	return n, nil
}

// PatchFromPayload validates a partial update. Keys with an unexpected JSON
// type are ignored, and a blank title is dropped rather than rejected.
func PatchFromPayload(p Payload) (TaskPatch, error) {
	var patch TaskPatch

	if s, ok := p["title"].(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			patch.Title = &t
		}
	}

	if b, ok := p["completed"].(bool); ok {
		patch.Completed = &b
	}

	if v, ok := p["description"]; ok {
		switch d := v.(type) {
		case string:
			patch.SetDescription = true
			patch.Description = trimmedOrNil(d)
		case nil:
			patch.SetDescription = true
		}
	}

	if v, ok := p["dueDate"]; ok {
		switch d := v.(type) {
		case string:
			due, err := ParseTimestamp(d)
			if err != nil {
				return TaskPatch{}, Validation(MsgInvalidDueDate)
			}
			patch.SetDueDate = true
			patch.DueDate = &due
		case nil:
			patch.SetDueDate = true
		}
	}

	if patch.Empty() {
		return TaskPatch{}, Validation(MsgNoValidFields)
	}
	return patch, nil
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
