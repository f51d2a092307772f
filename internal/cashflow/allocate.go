package cashflow

import (
	"math"
	"sort"
	"time"
)

// Target is one invoice competing for a payment pool.
type Target struct {
	InvoiceID int64
	CreatedAt time.Time
	Seq       int64 // insertion order, tie-break for equal timestamps
	Debt      float64
	Paid      float64
}

// Balance is the unpaid remainder on the target.
func (t Target) Balance() float64 {
	return t.Debt - t.Paid
}

// Allocate distributes the pool across targets oldest-first, capping
// each share at the target's open balance, and returns what is left.
// Targets with the same timestamp keep their insertion order.
func Allocate(pool float64, targets []Target) float64 {
	sort.SliceStable(targets, func(i, j int) bool {
		if !targets[i].CreatedAt.Equal(targets[j].CreatedAt) {
			return targets[i].CreatedAt.Before(targets[j].CreatedAt)
		}
		return targets[i].Seq < targets[j].Seq
	})
	for i := range targets {
		if pool <= 0 {
			break
		}
		share := math.Min(pool, targets[i].Balance())
		if share <= 0 {
			continue
		}
		targets[i].Paid += share
		pool -= share
	}
	return pool
}
