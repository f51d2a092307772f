package billing

import (
	"math"

	"github.com/mandi-erp/mandi-erp/internal/entries"
)

const (
	// WageRatePerUnit is the fixed handling charge per qualifying unit.
	WageRatePerUnit = 5.0
	// HeavyItemAvgWeight is the average nett weight per unit above which
	// an item is exempt from the per-unit wage count.
	HeavyItemAvgWeight = 100.0
)

// AggregateLines folds sold entry items into supplier invoice lines.
// Aggregation key is (product, rate): the same product at a different
// rate produces a separate line. Line order follows first occurrence.
func AggregateLines(items []entries.Item) []SupplierInvoiceItem {
	type key struct {
		productID int64
		rate      float64
	}
	index := make(map[key]int)
	var lines []SupplierInvoiceItem
	for _, it := range items {
		if !it.Sold() {
			continue
		}
		k := key{productID: it.ProductID, rate: *it.RatePerQuantity}
		if i, ok := index[k]; ok {
			lines[i].Quantity += it.Quantity
			lines[i].GrossWeight += it.GrossWeight
			lines[i].ShuteWeight += it.ShuteWeight
			lines[i].NettWeight += it.NettWeight
			lines[i].SubTotal += it.SubTotal
			continue
		}
		index[k] = len(lines)
		lines = append(lines, SupplierInvoiceItem{
			ProductID:       it.ProductID,
			RatePerQuantity: *it.RatePerQuantity,
			Quantity:        it.Quantity,
			GrossWeight:     it.GrossWeight,
			ShuteWeight:     it.ShuteWeight,
			NettWeight:      it.NettWeight,
			SubTotal:        it.SubTotal,
		})
	}
	return lines
}

// CommissionAmount rounds up to the next whole currency unit, always.
// Commission never rounds in the business's favour.
func CommissionAmount(grossTotal, rate float64) float64 {
	return math.Ceil(grossTotal * rate / 100)
}

// AutoWages counts every unit of the entries' items except heavy lots,
// at the fixed per-unit rate. A lot is heavy when its average nett
// weight per unit exceeds HeavyItemAvgWeight.
func AutoWages(items []entries.Item) float64 {
	var qty float64
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if it.NettWeight/it.Quantity > HeavyItemAvgWeight {
			continue
		}
		qty += it.Quantity
	}
	return qty * WageRatePerUnit
}

// SupplierNett computes the supplier payable after deductions.
func SupplierNett(grossTotal, commission, wages, adjustments float64) float64 {
	return math.Round(grossTotal - commission - wages + adjustments)
}

// BuyerNett computes the buyer receivable. Adjustments are algebraic:
// positive increases the payable.
func BuyerNett(totalAmount, wages, adjustments float64) float64 {
	return math.Round(totalAmount + wages + adjustments)
}

// GrossTotal sums sold subtotals, rounded to a whole currency unit.
func GrossTotal(lines []SupplierInvoiceItem) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.SubTotal
	}
	return math.Round(sum)
}

// ResolveSupplierInvoiceStatus derives the payment status.
func ResolveSupplierInvoiceStatus(paidAmount, nettAmount float64) SupplierInvoiceStatus {
	switch {
	case paidAmount >= nettAmount:
		return SupplierInvoicePaid
	case paidAmount > 0:
		return SupplierInvoicePartiallyPaid
	default:
		return SupplierInvoiceUnpaid
	}
}
