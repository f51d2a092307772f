package cashflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllocateOldestFirst(t *testing.T) {
	older := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)

	targets := []Target{
		{InvoiceID: 2, CreatedAt: newer, Seq: 2, Debt: 300},
		{InvoiceID: 1, CreatedAt: older, Seq: 1, Debt: 500},
	}
	remainder := Allocate(700, targets)
	require.Equal(t, 0.0, remainder)

	// sorted oldest-first: 500 fully, then 200 of 300
	require.Equal(t, int64(1), targets[0].InvoiceID)
	require.Equal(t, 500.0, targets[0].Paid)
	require.Equal(t, int64(2), targets[1].InvoiceID)
	require.Equal(t, 200.0, targets[1].Paid)
}

func TestAllocateReturnsSurplus(t *testing.T) {
	targets := []Target{
		{InvoiceID: 1, CreatedAt: time.Now(), Debt: 100},
	}
	require.Equal(t, 50.0, Allocate(150, targets))
	require.Equal(t, 100.0, targets[0].Paid)
}

func TestAllocateRespectsPriorPayments(t *testing.T) {
	targets := []Target{
		{InvoiceID: 1, CreatedAt: time.Now(), Debt: 100, Paid: 80},
	}
	require.Equal(t, 0.0, Allocate(20, targets))
	require.Equal(t, 100.0, targets[0].Paid)
}

func TestAllocateStableForEqualTimestamps(t *testing.T) {
	ts := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	targets := []Target{
		{InvoiceID: 10, CreatedAt: ts, Seq: 10, Debt: 100},
		{InvoiceID: 11, CreatedAt: ts, Seq: 11, Debt: 100},
	}
	Allocate(100, targets)
	// insertion order breaks the tie
	require.Equal(t, 100.0, targets[0].Paid)
	require.Equal(t, 0.0, targets[1].Paid)
	require.Equal(t, int64(10), targets[0].InvoiceID)
}
