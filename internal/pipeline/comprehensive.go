package pipeline

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// daysPerMonth scales the daily average into a monthly projection.
const daysPerMonth = 30

// Comprehensive analyses every loaded record across all projects.
func (a *Aggregator) Comprehensive() model.UsageAnalytics {
	ua := model.UsageAnalytics{GeneratedAt: a.now()}
	for h := range ua.Hourly {
		ua.Hourly[h].Hour = h
	}

	type dayAcc struct {
		usage    model.UsageStats
		sessions map[string]bool
		models   map[string]bool
		hours    [24]int64
	}
	type modelAcc struct {
		usage       model.UsageStats
		first, last time.Time
	}
	type projectAcc struct {
		usage       model.UsageStats
		sessions    int
		models      map[string]int
		first, last time.Time
		sessionMins []float64
	}
	days := make(map[string]*dayAcc)
	models := make(map[string]*modelAcc)
	projects := make(map[string]*projectAcc)

	for _, f := range a.priced() {
		if len(f.records) == 0 {
			continue
		}
		sa := model.SessionAnalytics{
			SessionID: strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)),
			Project:   f.Project,
			Start:     f.Start,
			End:       f.End,
			Prompts:   f.Prompts,
		}
		pacc, ok := projects[f.Project]
		if !ok {
			pacc = &projectAcc{models: make(map[string]int)}
			projects[f.Project] = pacc
		}
		pacc.sessions++

		for _, r := range f.records {
			local := r.Timestamp.In(a.loc())
			name := modelName(r.Model)

			date := local.Format(dateLayout)
			d, ok := days[date]
			if !ok {
				d = &dayAcc{sessions: make(map[string]bool), models: make(map[string]bool)}
				days[date] = d
			}
			d.usage.AddUsage(r.Usage, r.Cost, r.Billed)
			d.sessions[f.Path] = true
			d.models[name] = true
			d.hours[local.Hour()] += r.Usage.Total()

			m, ok := models[name]
			if !ok {
				m = &modelAcc{first: r.Timestamp, last: r.Timestamp}
				models[name] = m
			}
			m.usage.AddUsage(r.Usage, r.Cost, r.Billed)
			m.first = minTime(m.first, r.Timestamp)
			m.last = maxTime(m.last, r.Timestamp)

			hr := &ua.Hourly[local.Hour()]
			hr.Tokens += r.Usage.Total()
			hr.Cost += r.Cost
			hr.MessageCount++

			pacc.usage.AddUsage(r.Usage, r.Cost, r.Billed)
			pacc.models[name]++
			pacc.first = minTime(pacc.first, r.Timestamp)
			pacc.last = maxTime(pacc.last, r.Timestamp)

			sa.Usage.AddUsage(r.Usage, r.Cost, r.Billed)
			sa.Start = minTime(sa.Start, r.Timestamp)
			sa.End = maxTime(sa.End, r.Timestamp)
			if !slices.Contains(sa.Models, name) {
				sa.Models = append(sa.Models, name)
			}
		}
		sa.Duration = sa.End.Sub(sa.Start)
		slices.Sort(sa.Models)
		pacc.sessionMins = append(pacc.sessionMins, sa.Duration.Minutes())
		ua.Sessions = append(ua.Sessions, sa)
	}

	for date, d := range days {
		peak := 0
		for h, t := range d.hours {
			if t > d.hours[peak] {
				peak = h
			}
		}
		ms := lo.Keys(d.models)
		slices.Sort(ms)
		ua.Daily = append(ua.Daily, model.DailyUsageDetail{
			Date:            date,
			Usage:           d.usage,
			SessionCount:    len(d.sessions),
			Models:          ms,
			PeakHour:        peak,
			EfficiencyScore: efficiencyScore(d.usage),
		})
	}
	slices.SortFunc(ua.Daily, func(x, y model.DailyUsageDetail) int {
		return cmp.Compare(y.Date, x.Date)
	})

	for name, m := range models {
		row := model.ModelUsageStats{Model: name, Usage: m.usage, FirstUsed: m.first, LastUsed: m.last}
		if m.usage.MessageCount > 0 {
			row.AvgCostPerCall = m.usage.TotalCost / float64(m.usage.MessageCount)
		}
		ua.Models = append(ua.Models, row)

		ua.Cache.CreationTokens += m.usage.CacheCreationTokens
		ua.Cache.ReadTokens += m.usage.CacheReadTokens
		ua.Cache.Savings += a.prices(name).CacheSavings(m.usage.CacheReadTokens)
	}
	slices.SortFunc(ua.Models, func(x, y model.ModelUsageStats) int {
		if c := cmp.Compare(y.Usage.TotalCost, x.Usage.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(x.Model, y.Model)
	})
	if traffic := ua.Cache.CreationTokens + ua.Cache.ReadTokens; traffic > 0 {
		ua.Cache.HitRate = float64(ua.Cache.ReadTokens) / float64(traffic) * 100
	}

	totals, _ := a.CostBreakdown()
	ua.Costs = model.CostBreakdown{
		InputCost:         totals.InputCost,
		OutputCost:        totals.OutputCost,
		CacheCreationCost: totals.CacheCreationCost,
		CacheReadCost:     totals.CacheReadCost,
		TotalCost:         totals.TotalCost,
		ActiveDays:        len(days),
	}
	if len(days) > 0 {
		ua.Costs.DailyAverage = totals.TotalCost / float64(len(days))
		ua.Costs.ProjectedMonthly = ua.Costs.DailyAverage * daysPerMonth
	}

	for name, p := range projects {
		ms := lo.Keys(p.models)
		slices.Sort(ms)
		most := lo.MaxBy(ms, func(x, y string) bool { return p.models[x] > p.models[y] })
		ua.Projects = append(ua.Projects, model.ProjectUsageStats{
			Project:           name,
			Usage:             p.usage,
			SessionCount:      p.sessions,
			Models:            ms,
			FirstActivity:     p.first,
			LastActivity:      p.last,
			CacheEfficiency:   cacheHitPercent(p.usage),
			MostUsedModel:     most,
			AvgSessionMinutes: lo.Sum(p.sessionMins) / float64(len(p.sessionMins)),
		})
	}
	slices.SortFunc(ua.Projects, func(x, y model.ProjectUsageStats) int {
		if c := cmp.Compare(y.Usage.TotalCost, x.Usage.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(x.Project, y.Project)
	})

	slices.SortFunc(ua.Sessions, func(x, y model.SessionAnalytics) int {
		return y.Start.Compare(x.Start)
	})
	return ua
}

// efficiencyScore is the percentage of input-side tokens served from cache.
func efficiencyScore(u model.UsageStats) float64 {
	side := u.InputTokens + u.CacheCreationTokens + u.CacheReadTokens
	if side == 0 {
		return 0
	}
	return float64(u.CacheReadTokens) / float64(side) * 100
}

func minTime(a, b time.Time) time.Time {
	if a.IsZero() || b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
