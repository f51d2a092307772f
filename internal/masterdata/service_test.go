package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandi-erp/mandi-erp/internal/shared"
)

func TestDeleteBuyerRequiresZeroBalance(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	buyer, err := svc.CreateBuyer(ctx, BuyerInput{Name: "Ravi Traders"})
	require.NoError(t, err)

	repo.SetBuyerOutstanding(buyer.ID, 150.0)
	err = svc.DeleteBuyer(ctx, buyer.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.SetBuyerOutstanding(buyer.ID, 0.005) // inside tolerance
	require.NoError(t, svc.DeleteBuyer(ctx, buyer.ID))
}

func TestDeleteSupplierRequiresZeroBalance(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	supplier, err := svc.CreateSupplier(ctx, SupplierInput{Name: "Green Farms"})
	require.NoError(t, err)

	repo.SetSupplierOutstanding(supplier.ID, -1725.0) // payable
	err = svc.DeleteSupplier(ctx, supplier.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.SetSupplierOutstanding(supplier.ID, 0)
	require.NoError(t, svc.DeleteSupplier(ctx, supplier.ID))
}

func TestGetBuyerByAlias(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateBuyer(ctx, BuyerInput{Name: "Ravi Traders", Alias: "ext-b1"})
	require.NoError(t, err)

	byID, err := svc.GetBuyer(ctx, RefByID(created.ID))
	require.NoError(t, err)
	byAlias, err := svc.GetBuyer(ctx, RefByAlias("ext-b1"))
	require.NoError(t, err)
	require.Equal(t, byID.ID, byAlias.ID)

	_, err = svc.GetBuyer(ctx, RefByAlias("missing"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateBuyerRequiresName(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.CreateBuyer(context.Background(), BuyerInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateSupplierRequiresName(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.CreateSupplier(context.Background(), SupplierInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
