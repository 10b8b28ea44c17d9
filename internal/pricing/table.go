package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TableTTL is how long a fetched price table stays valid.
const TableTTL = 24 * time.Hour

// CacheFileName is the price table file inside the data root.
const CacheFileName = "pricing_cache.json"

// PriceTable is a persisted snapshot of remote prices.
type PriceTable struct {
	Models    map[string]ModelPricing `json:"models"`
	Timestamp int64                   `json:"timestamp"` // unix seconds
}

// FetchedAt returns the fetch time.
func (t *PriceTable) FetchedAt() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// Expired reports whether the table has reached TableTTL at now.
func (t *PriceTable) Expired(now time.Time) bool {
	return now.Sub(t.FetchedAt()) >= TableTTL
}

// Lookup finds prices for name: exact key first, then a loose match on a
// "claude" key sharing name's tier keyword. Among loose matches the key whose
// bare model id is the longest prefix of name wins; ties go to the
// lexically smallest key.
func (t *PriceTable) Lookup(name string) (ModelPricing, bool) {
	if t == nil || len(t.Models) == 0 {
		return ModelPricing{}, false
	}
	if p, ok := t.Models[name]; ok {
		return p, true
	}

	lower := strings.ToLower(name)
	tier, ok := TierOf(lower)
	if !ok || !strings.Contains(lower, "claude") {
		return ModelPricing{}, false
	}

	keys := lo.Keys(t.Models)
	slices.Sort(keys)
	candidates := lo.Filter(keys, func(k string, _ int) bool {
		lk := strings.ToLower(k)
		return strings.Contains(lk, "claude") && strings.Contains(lk, string(tier))
	})
	if len(candidates) == 0 {
		return ModelPricing{}, false
	}

	best := lo.MaxBy(candidates, func(a, b string) bool {
		return prefixScore(lower, a) > prefixScore(lower, b)
	})
	return t.Models[best], true
}

// prefixScore is the length of key's bare id when it prefixes name, else 0.
// "anthropic/claude-sonnet-4.5" becomes "claude-sonnet-4-5".
func prefixScore(name, key string) int {
	bare := strings.ToLower(key)
	if i := strings.LastIndexByte(bare, '/'); i >= 0 {
		bare = bare[i+1:]
	}
	bare = strings.ReplaceAll(bare, ".", "-")
	if strings.HasPrefix(name, bare) {
		return len(bare)
	}
	return 0
}

// LoadTable reads a price table file. A missing, unparsable or expired file
// yields nil with no error.
func LoadTable(path string, now time.Time) (*PriceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading price table: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var t PriceTable
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Debug("ignoring unparsable price table", "path", path, "err", err)
		return nil, nil
	}
	if t.Models == nil || t.Expired(now) {
		return nil, nil
	}
	return &t, nil
}

// SaveTable writes the table atomically, creating parent directories.
func SaveTable(path string, t *PriceTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating price table dir: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding price table: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pricing-*.json")
	if err != nil {
		return fmt.Errorf("writing price table: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing price table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing price table: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing price table: %w", err)
	}
	return nil
}
