package model

import (
	"fmt"
	"math"
	"time"
)

// Categories lists the canonical waste composition categories.
var Categories = []string{"plastic", "paper", "glass", "metal", "organic"}

// Composition maps waste categories to percentages. A valid composition sums
// to 100 within a configured tolerance.
type Composition map[string]float64

// Sum returns the total of all category percentages.
func (c Composition) Sum() float64 {
	total := 0.0
	for _, pct := range c {
		total += pct
	}
	return total
}

// Validate checks that every percentage is non-negative and that the total is
// 100 within tol.
func (c Composition) Validate(tol float64) error {
	if len(c) == 0 {
		return fmt.Errorf("composition is empty")
	}
	for cat, pct := range c {
		if pct < 0 {
			return fmt.Errorf("category %s has negative percentage %.2f", cat, pct)
		}
	}
	if sum := c.Sum(); math.Abs(sum-100) > tol {
		return fmt.Errorf("composition sums to %.2f, want 100±%.1f", sum, tol)
	}
	return nil
}

// Normalize rescales the percentages so they sum to exactly 100. It absorbs
// floating-point drift after weighted averaging. A zero-sum composition is
// left untouched.
func (c Composition) Normalize() {
	sum := c.Sum()
	if sum == 0 {
		return
	}
	for cat := range c {
		c[cat] = c[cat] / sum * 100
	}
}

// Clone returns an independent copy of the composition.
func (c Composition) Clone() Composition {
	if c == nil {
		return nil
	}
	cp := make(Composition, len(c))
	for cat, pct := range c {
		cp[cat] = pct
	}
	return cp
}

// Facility is a recycling/waste site with finite capacity and a composition
// profile. Capacity and composition are owned by the capacity ledger.
type Facility struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Location          string      `json:"location"`
	CurrentCapacityKg float64     `json:"current_capacity"`
	MaxCapacityKg     float64     `json:"max_capacity"`
	Composition       Composition `json:"composition"`
	LastUpdated       time.Time   `json:"last_updated"`
}

// Utilization returns the fill percentage of the facility.
func (f Facility) Utilization() float64 {
	if f.MaxCapacityKg <= 0 {
		return 0
	}
	return f.CurrentCapacityKg / f.MaxCapacityKg * 100
}
