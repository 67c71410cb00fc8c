// Package catalog holds the studio's reference data: seeded halls and the
// add-on price list. It is loaded once at startup and handed to the ledger.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/pricing"
)

type Catalog struct {
	Halls  []domain.Hall    `yaml:"halls"`
	Addons map[string]int64 `yaml:"addons"`
	Prime  PrimeTime        `yaml:"prime_time"`
}

type PrimeTime struct {
	From int     `yaml:"from"`
	To   int     `yaml:"to"`
	Coef float64 `yaml:"coef"`
}

func Default() *Catalog {
	return &Catalog{
		Halls: []domain.Hall{
			{ID: "A", Title: "Daylight", BasePrice: 10000, WeekendCoef: 1.10},
			{ID: "B", Title: "Loft", BasePrice: 12000, WeekendCoef: 1.15},
			{ID: "C", Title: "Cyclorama", BasePrice: 15000, WeekendCoef: 1.20},
		},
		Addons: map[string]int64{
			"Light kit A":    3000,
			"White backdrop": 1500,
			"Stands":         1000,
		},
		Prime: PrimeTime{From: 17, To: 21, Coef: 1.3},
	}
}

// Load reads a YAML catalog. An empty path returns the built-in defaults;
// sections missing from the file keep their default values.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var in Catalog
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &in); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(in.Halls) > 0 {
		c.Halls = in.Halls
	}
	if in.Addons != nil {
		c.Addons = in.Addons
	}
	if in.Prime.Coef > 0 {
		c.Prime = in.Prime
	}
	return c, c.Validate()
}

func (c *Catalog) Validate() error {
	seen := map[string]struct{}{}
	for _, h := range c.Halls {
		if h.ID == "" {
			return fmt.Errorf("catalog: hall without id")
		}
		if _, dup := seen[h.ID]; dup {
			return fmt.Errorf("catalog: duplicate hall %q", h.ID)
		}
		seen[h.ID] = struct{}{}
		if h.BasePrice < 0 {
			return fmt.Errorf("catalog: hall %q has negative base price", h.ID)
		}
		if h.WeekendCoef < 1 {
			return fmt.Errorf("catalog: hall %q weekend coef %.2f < 1", h.ID, h.WeekendCoef)
		}
	}
	for name, p := range c.Addons {
		if p < 0 {
			return fmt.Errorf("catalog: add-on %q has negative price", name)
		}
	}
	if c.Prime.From < 0 || c.Prime.To > 24 || c.Prime.From > c.Prime.To {
		return fmt.Errorf("catalog: bad prime time window %d-%d", c.Prime.From, c.Prime.To)
	}
	return nil
}

func (c *Catalog) PriceList() pricing.Catalog {
	return pricing.Catalog(c.Addons)
}

func (c *Catalog) Rules() pricing.Rules {
	return pricing.Rules{PrimeFrom: c.Prime.From, PrimeTo: c.Prime.To, PrimeCoef: c.Prime.Coef}
}
