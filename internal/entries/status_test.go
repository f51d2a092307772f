package entries

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func soldItem() Item {
	return Item{BuyerID: ptr(int64(7)), RatePerQuantity: ptr(100.0), SubTotal: 1000}
}

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		items   []Item
		want    Status
	}{
		{
			name:  "no items is pending",
			items: nil,
			want:  StatusPending,
		},
		{
			name:  "unsold items stay pending",
			items: []Item{{}, soldItem()},
			want:  StatusPending,
		},
		{
			name:  "all sold but uninvoiced is draft",
			items: []Item{soldItem(), soldItem()},
			want:  StatusDraft,
		},
		{
			name: "all on buyer invoice is auctioned",
			items: func() []Item {
				a, b := soldItem(), soldItem()
				a.InvoiceID = ptr(int64(1))
				b.InvoiceID = ptr(int64(2))
				return []Item{a, b}
			}(),
			want: StatusAuctioned,
		},
		{
			name: "one supplier-invoiced item drags the whole entry",
			items: func() []Item {
				a := soldItem()
				a.SupplierInvoiceID = ptr(int64(9))
				return []Item{a, {}} // second item never sold
			}(),
			want: StatusInvoiced,
		},
		{
			name:    "cancelled is terminal",
			current: StatusCancelled,
			items:   []Item{soldItem()},
			want:    StatusCancelled,
		},
		{
			name: "supplier invoice wins over full buyer invoicing",
			items: func() []Item {
				a := soldItem()
				a.InvoiceID = ptr(int64(1))
				a.SupplierInvoiceID = ptr(int64(2))
				return []Item{a}
			}(),
			want: StatusInvoiced,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveStatus(tc.current, tc.items)
			require.Equal(t, tc.want, got)
			// pure and idempotent: same input, same output
			require.Equal(t, got, ResolveStatus(tc.current, tc.items))
		})
	}
}
