// Package source discovers session logs, parses them into usage records and
// maps each sanitized project directory back to the real project path.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

const (
	initialBufSize = 256 * 1024
	maxLineSize    = 8 * 1024 * 1024
)

// Byte patterns for field extraction.
var (
	patUsage      = []byte(`"usage"`)
	patTimestamp1 = []byte(`"timestamp":"`)
	patTimestamp2 = []byte(`"timestamp": "`)
	patCwd1       = []byte(`"cwd":"`)
	patCwd2       = []byte(`"cwd": "`)
)

// FileResult holds the output of parsing a single session log.
type FileResult struct {
	Path        string
	Records     []Record // file order
	Lines       int      // non-blank lines
	Prompts     int      // user entries
	ParseErrors int
	LastCwd     string // newest recorded cwd other than "/"
	Start       time.Time // earliest line timestamp
	End         time.Time // latest line timestamp
	ModTime     time.Time
	Size        int64
}

// ParseFile reads a session log and extracts its usage records.
//
// Only lines that mention "usage" are fully decoded; everything else is
// handled with byte scanning for the timestamp, cwd and entry type.
func ParseFile(path string) (FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return FileResult{}, fmt.Errorf("stat %s: %w", path, err)
	}

	res := FileResult{Path: path, ModTime: info.ModTime(), Size: info.Size()}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, initialBufSize), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		if extractTopLevelType(line) == "user" {
			res.Prompts++
		}
		if ts, ok := extractTimestampBytes(line); ok {
			updateTimeRange(&res.Start, &res.End, ts)
		}

		if !bytes.Contains(line, patUsage) {
			if c := extractCwdBytes(line); c != "" && c != "/" {
				res.LastCwd = c
			}
			continue
		}

		var entry RawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			res.ParseErrors++
			continue
		}
		if entry.Cwd != "" && entry.Cwd != "/" {
			res.LastCwd = entry.Cwd
		}
		if rec, ok := entry.Record(); ok {
			res.Records = append(res.Records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return FileResult{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return res, nil
}

// Session describes the parsed log as a project session. ok is false when
// the file has no non-blank lines.
func (r FileResult) Session() (model.Session, bool) {
	if r.Lines == 0 {
		return model.Session{}, false
	}
	return model.Session{
		ID:           strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path)),
		Path:         r.Path,
		LastModified: r.ModTime,
		MessageCount: r.Lines,
	}, true
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a log line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				if val, isKey := classifyType(line, i+len(typeKey)); isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key and returns its string
// value. isKey=false means "type" appeared as a value.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	return string(line[i : i+end]), true
}

//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}

func extractTimestampBytes(line []byte) (time.Time, bool) {
	for _, pat := range [][]byte{patTimestamp1, patTimestamp2} {
		idx := bytes.Index(line, pat)
		if idx < 0 {
			continue
		}
		start := idx + len(pat)
		end := bytes.IndexByte(line[start:], '"')
		if end < 0 || end > 40 {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, string(line[start:start+end]))
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// extractCwdBytes returns the decoded "cwd" value of a log line, or "" when
// the line has none or the value is malformed.
func extractCwdBytes(line []byte) string {
	for _, pat := range [][]byte{patCwd1, patCwd2} {
		idx := bytes.Index(line, pat)
		if idx < 0 {
			continue
		}
		q := idx + len(pat) - 1
		end := skipJSONString(line, q)
		if end > len(line) || end-q < 2 || line[end-1] != '"' || end-q > 4096 {
			continue
		}
		raw := line[q:end]
		if bytes.IndexByte(raw[1:len(raw)-1], '\\') < 0 {
			return string(raw[1 : len(raw)-1])
		}
		var c string
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		return c
	}
	return ""
}

func updateTimeRange(minTime, maxTime *time.Time, ts time.Time) {
	if minTime.IsZero() || ts.Before(*minTime) {
		*minTime = ts
	}
	if maxTime.IsZero() || ts.After(*maxTime) {
		*maxTime = ts
	}
}
