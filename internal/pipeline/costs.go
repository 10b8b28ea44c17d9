package pipeline

import (
	"cmp"
	"slices"
)

// TokenTypeCosts holds aggregate costs split by token type.
type TokenTypeCosts struct {
	InputCost         float64
	OutputCost        float64
	CacheCreationCost float64
	CacheReadCost     float64
	CacheCost         float64
	TotalCost         float64
}

func (c *TokenTypeCosts) add(in, out, cc, cr float64) {
	c.InputCost += in
	c.OutputCost += out
	c.CacheCreationCost += cc
	c.CacheReadCost += cr
}

func (c *TokenTypeCosts) finish() {
	c.CacheCost = c.CacheCreationCost + c.CacheReadCost
	c.TotalCost = c.InputCost + c.OutputCost + c.CacheCost
}

// ModelCostBreakdown holds cost components for one model.
type ModelCostBreakdown struct {
	Model string
	TokenTypeCosts
}

// CostBreakdown computes token-type and per-model cost splits over every
// record. Billed records keep their logged cost; it is split across token
// types in proportion to what list prices would have charged.
func (a *Aggregator) CostBreakdown() (TokenTypeCosts, []ModelCostBreakdown) {
	var totals TokenTypeCosts
	byModel := make(map[string]*ModelCostBreakdown)

	for _, f := range a.priced() {
		for _, r := range f.records {
			in, out, cc, cr := a.splitCost(r)
			totals.add(in, out, cc, cr)

			name := modelName(r.Model)
			row, ok := byModel[name]
			if !ok {
				row = &ModelCostBreakdown{Model: name}
				byModel[name] = row
			}
			row.add(in, out, cc, cr)
		}
	}
	totals.finish()

	rows := make([]ModelCostBreakdown, 0, len(byModel))
	for _, row := range byModel {
		row.finish()
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(x, y ModelCostBreakdown) int {
		if c := cmp.Compare(y.TotalCost, x.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(x.Model, y.Model)
	})
	return totals, rows
}

func (a *Aggregator) splitCost(r PricedRecord) (in, out, cc, cr float64) {
	in, out, cc, cr = a.prices(r.Model).Breakdown(r.Usage)
	if !r.Billed {
		return in, out, cc, cr
	}
	listed := in + out + cc + cr
	if listed <= 0 {
		return r.Cost, 0, 0, 0
	}
	k := r.Cost / listed
	return in * k, out * k, cc * k, cr * k
}
