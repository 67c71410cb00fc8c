// Package pricing computes the price of a single hall slot.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/timegrid"
)

// Rules holds the prime-time surcharge window. Start hours in [PrimeFrom, PrimeTo)
// are multiplied by PrimeCoef after the weekend adjustment.
type Rules struct {
	PrimeFrom int
	PrimeTo   int
	PrimeCoef float64
}

func DefaultRules() Rules {
	return Rules{PrimeFrom: 17, PrimeTo: 21, PrimeCoef: 1.3}
}

type Engine struct {
	rules Rules
}

func NewEngine(r Rules) *Engine {
	return &Engine{rules: r}
}

// Compute returns the total for one slot. Multipliers compound and each step is
// rounded half away from zero; add-ons are a flat sum on top.
func (e *Engine) Compute(h domain.Hall, date time.Time, startMin int, addons domain.Addons) int64 {
	price := decimal.NewFromInt(h.BasePrice)
	if timegrid.IsWeekend(date) {
		price = price.Mul(decimal.NewFromFloat(h.WeekendCoef)).Round(0)
	}
	if hour := startMin / 60; hour >= e.rules.PrimeFrom && hour < e.rules.PrimeTo {
		price = price.Mul(decimal.NewFromFloat(e.rules.PrimeCoef)).Round(0)
	}
	total := price.IntPart() + addons.Total()
	if total < 0 {
		return 0
	}
	return total
}

// Catalog maps add-on names to their current price.
type Catalog map[string]int64

// Resolve snapshots the prices of the named add-ons. Unknown names are kept
// with a zero price rather than rejected.
func (c Catalog) Resolve(names []string) domain.Addons {
	out := make(domain.Addons, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Addon{Name: n, Price: c[n]})
	}
	return out
}
