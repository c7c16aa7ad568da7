package ingest

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"callsight/internal/engine/calls"
)

// RawPayload is whatever shape a call-tracking platform decided to POST.
// No keys are guaranteed; field names vary by source.
type RawPayload map[string]interface{}

// fieldAliases maps each canonical field to the source key spellings seen
// across platforms, probed in order; the first present non-empty value
// wins. New platform integrations add rows here, not branches.
var fieldAliases = map[string][]string{
	"call_id":         {"call_id", "id"},
	"status":          {"status", "call_status", "disposition"},
	"duration":        {"duration", "duration_seconds", "call_duration"},
	"caller_number":   {"caller_number", "from", "caller"},
	"receiver_number": {"receiver_number", "to", "receiver"},
	"platform":        {"platform", "provider"},
	"utm_source":      {"utm_source", "source"},
	"utm_medium":      {"utm_medium", "medium"},
	"utm_campaign":    {"utm_campaign", "campaign"},
	"recording_url":   {"recording_url", "recording"},
	"transcript":      {"transcript"},
	"qa_score":        {"qa_score", "score"},
	"timestamp":       {"timestamp", "start_time", "created_at"},
}

var statusMap = map[string]calls.Status{
	"answered":    calls.StatusCompleted,
	"completed":   calls.StatusCompleted,
	"no-answer":   calls.StatusMissed,
	"no_answer":   calls.StatusMissed,
	"missed":      calls.StatusMissed,
	"busy":        calls.StatusMissed,
	"voicemail":   calls.StatusVoicemail,
	"in-progress": calls.StatusInProgress,
	"in_progress": calls.StatusInProgress,
	"ringing":     calls.StatusInProgress,
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// Normalize maps a raw platform payload onto the canonical call shape.
// Pure aside from the clock (timestamp default) and randomness (QA score
// placeholder). Workspace, campaign and the generated row ID are filled
// in later by the ingestion service.
func Normalize(raw RawPayload) (*calls.Call, error) {
	sourceCallID := pickString(raw, "call_id")
	if sourceCallID == "" {
		return nil, &MissingFieldError{Field: "call_id"}
	}

	call := &calls.Call{
		SourceCallID:   sourceCallID,
		Status:         normalizeStatus(pickString(raw, "status")),
		CallerNumber:   pickString(raw, "caller_number"),
		ReceiverNumber: pickString(raw, "receiver_number"),
		Platform:       pickString(raw, "platform"),
		UTMSource:      pickString(raw, "utm_source"),
		UTMMedium:      pickString(raw, "utm_medium"),
		UTMCampaign:    pickString(raw, "utm_campaign"),
		RecordingURL:   pickString(raw, "recording_url"),
		Transcript:     pickString(raw, "transcript"),
	}

	if call.Platform == "" {
		call.Platform = "Web"
	}

	call.DurationSeconds = toInt(pick(raw, "duration"))
	if call.DurationSeconds < 0 {
		call.DurationSeconds = 0
	}

	if score, ok := pickPresent(raw, "qa_score"); ok {
		call.QAScore = clampScore(toInt(score))
		call.QAScored = true
	} else {
		// Placeholder until a real scoring integration lands; QAScored
		// stays false so consumers can tell the value is synthetic.
		call.QAScore = rand.Intn(100)
	}

	call.CreatedAt = normalizeTimestamp(pick(raw, "timestamp"))

	return call, nil
}

func normalizeStatus(s string) calls.Status {
	if status, ok := statusMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return status
	}
	// Lossy but intentional: unrecognized dispositions count as completed
	return calls.StatusCompleted
}

// pick probes the alias list for a canonical field and returns the first
// present, non-empty value.
func pick(raw RawPayload, field string) interface{} {
	v, _ := pickPresent(raw, field)
	return v
}

func pickPresent(raw RawPayload, field string) (interface{}, bool) {
	for _, key := range fieldAliases[field] {
		if v, ok := raw[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func pickString(raw RawPayload, field string) string {
	return toString(pick(raw, field))
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// toInt parses best-effort; fields are tolerant, not strict, so failure
// yields 0 rather than an error.
func toInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
		return 0
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// normalizeTimestamp accepts RFC3339 strings and unix second/millisecond
// numbers; anything else defaults to now.
func normalizeTimestamp(v interface{}) string {
	switch val := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC().Format(time.RFC3339)
			}
		}
	case float64:
		return unixToRFC3339(int64(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return unixToRFC3339(n)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func unixToRFC3339(n int64) string {
	// Heuristic: values this large are milliseconds
	if n > 1e12 {
		return time.UnixMilli(n).UTC().Format(time.RFC3339)
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}
