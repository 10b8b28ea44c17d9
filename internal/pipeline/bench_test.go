package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/pricing"
	"github.com/melonicecream/cc-enhanced/internal/source"
	"github.com/melonicecream/cc-enhanced/internal/store"
)

// benchRoot writes projects x sessions logs of lines records each.
func benchRoot(b *testing.B, projects, sessions, lines int) string {
	b.Helper()
	root := b.TempDir()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for p := 0; p < projects; p++ {
		for s := 0; s < sessions; s++ {
			entries := make([]string, lines)
			for i := range entries {
				ts := start.Add(time.Duration(p*sessions*lines+s*lines+i) * time.Minute).Format(time.RFC3339)
				entries[i] = fmt.Sprintf(`{"type":"assistant","timestamp":%q,"cwd":"/tmp/p%d","message":{"model":"claude-sonnet-4","usage":{"input_tokens":%d,"output_tokens":50,"cache_read_input_tokens":1000}}}`, ts, p, i+1)
			}
			writeProject(b, root, fmt.Sprintf("-tmp-p%d", p), fmt.Sprintf("s%d.jsonl", s), entries...)
		}
	}
	return root
}

func BenchmarkLoad(b *testing.B) {
	root := benchRoot(b, 8, 8, 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(context.Background(), source.NewScanner(root, root), LoadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadWithCache(b *testing.B) {
	root := benchRoot(b, 8, 8, 200)
	cache, err := store.Open(filepath.Join(b.TempDir(), store.DBName))
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	opts := LoadOptions{Cache: cache}
	if _, err := Load(context.Background(), source.NewScanner(root, root), opts); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(context.Background(), source.NewScanner(root, root), opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComprehensive(b *testing.B) {
	root := benchRoot(b, 4, 4, 500)
	ds, err := Load(context.Background(), source.NewScanner(root, root), LoadOptions{})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewAggregator(ds, pricing.FallbackCatalog()).Comprehensive()
	}
}
