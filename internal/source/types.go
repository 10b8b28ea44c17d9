package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// RawEntry is one line of a session log. Every field is optional.
type RawEntry struct {
	Timestamp string      `json:"timestamp,omitempty"`
	Cwd       string      `json:"cwd,omitempty"`
	CostUSD   flexFloat   `json:"costUSD,omitempty"`
	Message   *RawMessage `json:"message,omitempty"`
}

// RawMessage is the assistant message envelope.
type RawMessage struct {
	ID    string    `json:"id"`
	Role  string    `json:"role"`
	Model string    `json:"model"`
	Usage *RawUsage `json:"usage,omitempty"`
}

// RawUsage holds token counts from the API response.
type RawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// Time parses the entry timestamp.
func (e RawEntry) Time() (time.Time, bool) {
	if e.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil || ts.IsZero() {
		return time.Time{}, false
	}
	return ts, true
}

// Usage returns the token counts, zero when the entry carries none.
func (e RawEntry) Usage() model.TokenUsage {
	if e.Message == nil || e.Message.Usage == nil {
		return model.TokenUsage{}
	}
	u := e.Message.Usage
	return model.TokenUsage{
		Input:         max(u.InputTokens, 0),
		Output:        max(u.OutputTokens, 0),
		CacheCreation: max(u.CacheCreationInputTokens, 0),
		CacheRead:     max(u.CacheReadInputTokens, 0),
	}
}

// Model returns message.model, or "" when absent.
func (e RawEntry) Model() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Model
}

// AuthoritativeCost returns the billed cost recorded in the log, if positive.
func (e RawEntry) AuthoritativeCost() (float64, bool) {
	if e.CostUSD > 0 {
		return float64(e.CostUSD), true
	}
	return 0, false
}

// Record returns the usage record carried by the entry. ok is false unless the
// entry has a timestamp, a usage object and at least one non-zero token count.
func (e RawEntry) Record() (Record, bool) {
	ts, ok := e.Time()
	if !ok || e.Message == nil || e.Message.Usage == nil {
		return Record{}, false
	}
	usage := e.Usage()
	if !usage.HasUsage() {
		return Record{}, false
	}
	cost, _ := e.AuthoritativeCost()
	return Record{
		Timestamp: ts,
		Model:     e.Model(),
		Usage:     usage,
		CostUSD:   cost,
	}, true
}

// Record is a validated usage-bearing log line.
type Record struct {
	Timestamp time.Time
	Model     string
	Usage     model.TokenUsage
	CostUSD   float64 // 0 when the log has no billed cost
}

// flexFloat accepts a JSON number or a numeric string. Anything else decodes
// to zero instead of failing the whole line.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil //nolint:nilerr // malformed cost is treated as absent
	}
	switch x := v.(type) {
	case float64:
		*f = flexFloat(x)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			*f = 0
			return nil //nolint:nilerr // malformed cost is treated as absent
		}
		*f = flexFloat(n)
	default:
		*f = 0
	}
	return nil
}
