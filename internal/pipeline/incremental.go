package pipeline

import (
	"context"
	"log/slog"

	"github.com/melonicecream/cc-enhanced/internal/source"
	"github.com/melonicecream/cc-enhanced/internal/store"
)

// CollectRecords parses files on a bounded worker pool. With a cache, files
// whose mtime and size match the tracked entry are served from it and the
// rest are reparsed and saved back. Unreadable files are counted and skipped.
func CollectRecords(ctx context.Context, files []source.DiscoveredFile, opts LoadOptions) ([]source.FileResult, LoadStats, error) {
	stats := LoadStats{TotalFiles: len(files)}
	if len(files) == 0 {
		return nil, stats, ctx.Err()
	}

	var tracked map[string]store.FileInfo
	if opts.Cache != nil {
		var err error
		tracked, err = opts.Cache.TrackedFiles()
		if err != nil {
			slog.Warn("reading record cache", "err", err)
			tracked = nil
		}
	}

	type slot struct {
		res    source.FileResult
		err    error
		cached bool
	}
	slots := make([]slot, len(files))

	err := forEach(ctx, len(files), func(i int) {
		f := files[i]
		if fi, ok := tracked[f.Path]; ok && fi.Matches(f.ModTime, f.Size) {
			res, hit, err := opts.Cache.LoadFile(f.Path)
			if err == nil && hit {
				slots[i] = slot{res: res, cached: true}
				return
			}
			if err != nil {
				slog.Debug("cache read failed, reparsing", "path", f.Path, "err", err)
			}
		}
		res, err := source.ParseFile(f.Path)
		slots[i] = slot{res: res, err: err}
	}, opts.Progress)
	if err != nil {
		return nil, stats, err
	}

	results := make([]source.FileResult, 0, len(files))
	for i, s := range slots {
		if s.err != nil {
			stats.FileErrors++
			slog.Debug("skipping session file", "path", files[i].Path, "err", s.err)
			continue
		}
		stats.ParsedFiles++
		stats.ParseErrors += s.res.ParseErrors
		if s.cached {
			stats.CacheHits++
		} else {
			stats.Reparsed++
			if opts.Cache != nil {
				if err := opts.Cache.SaveFile(s.res); err != nil {
					slog.Debug("saving to record cache", "path", s.res.Path, "err", err)
				}
			}
		}
		results = append(results, s.res)
	}
	return results, stats, nil
}
