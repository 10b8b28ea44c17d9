package pipeline

import "time"

// burnWindow is how recently a session must have been written to count as
// burning.
const burnWindow = time.Hour

// burnRate is tokens per minute for the most recently written session of
// files, if it was written within the last hour. Input and output tokens
// count; cache traffic does not.
func burnRate(files []pricedFile, now time.Time) float64 {
	var latest *pricedFile
	for i := range files {
		f := &files[i]
		if len(f.records) == 0 || now.Sub(f.ModTime) > burnWindow {
			continue
		}
		if latest == nil || f.ModTime.After(latest.ModTime) {
			latest = f
		}
	}
	if latest == nil {
		return 0
	}

	first := latest.records[0].Timestamp
	var tokens int64
	for _, r := range latest.records {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		tokens += r.Usage.Input + r.Usage.Output
	}
	mins := now.Sub(first).Minutes()
	if mins <= 0 {
		return 0
	}
	return float64(tokens) / mins
}
